package netease

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/liuran001/MusicProxy-Go/meting"
	"github.com/tidwall/gjson"
)

const (
	providerName = "netease"
	referer      = "https://music.163.com"
	apiBase      = "http://music.163.com"
)

// Provider talks to the NetEase Cloud Music weapi endpoints.
type Provider struct{}

// New creates a NetEase provider.
func New() *Provider {
	return &Provider{}
}

func (p *Provider) Name() string    { return providerName }
func (p *Provider) Referer() string { return referer }

// Normalize maps a NetEase song object. Search results carry "ar"/"al",
// older endpoints "artists"/"album".
func (p *Provider) Normalize(item gjson.Result) meting.Track {
	artists := item.Get("ar")
	if !artists.Exists() || artists.Type == gjson.Null {
		artists = item.Get("artists")
	}

	var id string
	if v := item.Get("id"); v.Exists() && v.Type != gjson.Null {
		id = v.String()
	}

	return meting.Track{
		Name:    item.Get("name").String(),
		Artist:  meting.StringList(artists, "name"),
		URLID:   id,
		PicID:   meting.FirstString(item, "al.id", "album.id"),
		LyricID: id,
		Source:  providerName,
	}
}

func (p *Provider) Search(ctx context.Context, exec meting.Executor, keyword string, opt meting.SearchOption) (string, error) {
	return exec.Exec(ctx, meting.Request{
		Method: http.MethodPost,
		URL:    apiBase + "/api/cloudsearch/pc",
		Body: map[string]any{
			"s":      keyword,
			"type":   opt.Type,
			"limit":  opt.Limit,
			"total":  "true",
			"offset": (opt.Page - 1) * opt.Limit,
		},
		Encode: meting.EncodeNeteaseWeapi,
		Format: meting.Path("result.songs"),
	})
}

func (p *Provider) Song(ctx context.Context, exec meting.Executor, id string) (string, error) {
	return exec.Exec(ctx, meting.Request{
		Method: http.MethodPost,
		URL:    apiBase + "/api/v3/song/detail/",
		Body: map[string]any{
			"c": fmt.Sprintf(`[{"id":%s,"v":0}]`, jsonID(id)),
		},
		Encode: meting.EncodeNeteaseWeapi,
		Format: meting.Path("songs"),
	})
}

func (p *Provider) Playlist(ctx context.Context, exec meting.Executor, id string) (string, error) {
	return exec.Exec(ctx, meting.Request{
		Method: http.MethodPost,
		URL:    apiBase + "/api/v6/playlist/detail",
		Body: map[string]any{
			"s":  "0",
			"id": id,
			"n":  "1000",
			"t":  "0",
		},
		Encode: meting.EncodeNeteaseWeapi,
		Format: meting.Path("playlist.tracks"),
	})
}

func (p *Provider) URL(ctx context.Context, exec meting.Executor, id string, br int) (string, error) {
	return exec.Exec(ctx, meting.Request{
		Method: http.MethodPost,
		URL:    apiBase + "/api/song/enhance/player/url",
		Body: map[string]any{
			"ids": []string{id},
			"br":  br * 1000,
		},
		Encode: meting.EncodeNeteaseWeapi,
		Decode: meting.DecodeNeteaseURL,
	})
}

func (p *Provider) Lyric(ctx context.Context, exec meting.Executor, id string) (string, error) {
	return exec.Exec(ctx, meting.Request{
		Method: http.MethodPost,
		URL:    apiBase + "/api/song/lyric",
		Body: map[string]any{
			"id": id,
			"lv": -1,
			"tv": -1,
		},
		Encode: meting.EncodeNeteaseWeapi,
		Decode: meting.DecodeNeteaseLyric,
	})
}

func (p *Provider) PicURL(id string, size int) string {
	return fmt.Sprintf("https://p3.music.126.net/%s/%s.jpg?param=%dy%d", id, id, size, size)
}

// jsonID keeps numeric ids bare inside the song detail "c" parameter.
func jsonID(id string) string {
	if _, err := strconv.ParseInt(id, 10, 64); err == nil {
		return id
	}
	return strconv.Quote(id)
}
