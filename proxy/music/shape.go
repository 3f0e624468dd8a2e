package music

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/liuran001/MusicProxy-Go/meting"
)

// ClientTrack is the track shape handed to players.
type ClientTrack struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
	URL    string `json:"url"`
	Cover  string `json:"cover"`
	Lrc    string `json:"lrc"`
}

// Sign computes the auth token for one server/type/id triple.
func Sign(salt, server, typ, id string) string {
	sum := md5.Sum([]byte(salt + server + typ + id + salt))
	return hex.EncodeToString(sum[:])
}

func (s *Service) link(base, server, typ, id string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	b.WriteString("/api/music?server=")
	b.WriteString(url.QueryEscape(server))
	b.WriteString("&type=")
	b.WriteString(typ)
	b.WriteString("&id=")
	b.WriteString(url.QueryEscape(id))
	if s.salt != "" {
		b.WriteString("&auth=")
		b.WriteString(Sign(s.salt, server, typ, id))
	}
	return b.String()
}

func (s *Service) shapeTracks(raw, server, base string) []ClientTrack {
	items := gjson.Parse(raw).Array()
	out := make([]ClientTrack, 0, len(items))
	for _, item := range items {
		source := item.Get("source").String()
		if source == "" {
			source = server
		}
		out = append(out, ClientTrack{
			Name:   item.Get("name").String(),
			Artist: joinArtists(item.Get("artist")),
			URL:    s.link(base, source, TypeURL, item.Get("url_id").String()),
			Cover:  s.link(base, source, TypePic, item.Get("pic_id").String()),
			Lrc:    s.link(base, source, TypeLyric, item.Get("lyric_id").String()),
		})
	}
	return out
}

func lyricText(raw string) string {
	if text := gjson.Get(raw, "lyric").String(); text != "" {
		return text
	}
	return gjson.Get(raw, "lrc").String()
}

func urlResult(raw string) meting.URLResult {
	res := gjson.Parse(raw)
	return meting.URLResult{
		URL:  res.Get("url").String(),
		Size: res.Get("size").Int(),
		BR:   int(res.Get("br").Int()),
	}
}

func joinArtists(node gjson.Result) string {
	names := make([]string, 0, 2)
	for _, v := range node.Array() {
		names = append(names, v.String())
	}
	return strings.Join(names, " / ")
}

// valid decides whether a fresh result is worth keeping without a cookie
// refresh. Cover urls are templated and always valid.
func valid(typ, raw string) bool {
	switch typ {
	case TypeSearch, TypeSong, TypePlaylist:
		trimmed := strings.TrimSpace(raw)
		return trimmed != "" && trimmed != "[]"
	case TypeURL:
		return gjson.Get(raw, "url").String() != ""
	case TypeLyric:
		return lyricText(raw) != ""
	default:
		return true
	}
}
