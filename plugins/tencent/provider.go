package tencent

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"

	"github.com/liuran001/MusicProxy-Go/meting"
	"github.com/tidwall/gjson"
)

const (
	providerName = "tencent"
	referer      = "https://y.qq.com"

	searchEndpoint   = "https://c.y.qq.com/soso/fcgi-bin/client_search_cp"
	songEndpoint     = "https://c.y.qq.com/v8/fcg-bin/fcg_play_single_song.fcg"
	playlistEndpoint = "https://c.y.qq.com/v8/fcg-bin/fcg_v8_playlist_cp.fcg"
	lyricEndpoint    = "https://c.y.qq.com/lyric/fcgi-bin/fcg_query_lyric_new.fcg"
	musicuEndpoint   = "https://u.y.qq.com/cgi-bin/musicu.fcg"
)

type qualityTier struct {
	sizeKey string
	br      int
	prefix  string
	ext     string
}

// qualityTiers is ordered by descending bitrate; the vkey batch is indexed
// the same way.
var qualityTiers = []qualityTier{
	{"size_320mp3", 320, "M800", "mp3"},
	{"size_192aac", 192, "C600", "m4a"},
	{"size_128mp3", 128, "M500", "mp3"},
	{"size_96aac", 96, "C400", "m4a"},
	{"size_48aac", 48, "C200", "m4a"},
	{"size_24aac", 24, "C100", "m4a"},
}

// Provider talks to the QQ Music web endpoints.
type Provider struct {
	guid func() string
}

// New creates a Tencent provider.
func New() *Provider {
	return &Provider{guid: randomGUID}
}

func randomGUID() string {
	return strconv.FormatInt(rand.Int63n(10000000000), 10)
}

func (p *Provider) Name() string    { return providerName }
func (p *Provider) Referer() string { return referer }

// Normalize maps a QQ Music song object. The album picture id sits at a
// different depth depending on the endpoint.
func (p *Provider) Normalize(item gjson.Result) meting.Track {
	mid := meting.FirstString(item, "songmid", "mid")
	return meting.Track{
		Name:    meting.FirstString(item, "songname", "name"),
		Artist:  meting.StringList(item.Get("singer"), "name"),
		URLID:   mid,
		PicID:   meting.FirstString(item, "albummid", "album.mid", "album.pmid"),
		LyricID: mid,
		Source:  providerName,
	}
}

func (p *Provider) Search(ctx context.Context, exec meting.Executor, keyword string, opt meting.SearchOption) (string, error) {
	return exec.Exec(ctx, meting.Request{
		Method: http.MethodGet,
		URL:    searchEndpoint,
		Body: map[string]any{
			"format":   "json",
			"p":        opt.Page,
			"n":        opt.Limit,
			"w":        keyword,
			"aggr":     1,
			"lossless": 1,
			"cr":       1,
			"new_json": 1,
		},
		Format: meting.Path("data.song.list"),
	})
}

func (p *Provider) Song(ctx context.Context, exec meting.Executor, id string) (string, error) {
	return exec.Exec(ctx, songDetailRequest(id, meting.Path("data")))
}

func (p *Provider) Playlist(ctx context.Context, exec meting.Executor, id string) (string, error) {
	return exec.Exec(ctx, meting.Request{
		Method: http.MethodGet,
		URL:    playlistEndpoint,
		Body: map[string]any{
			"id":       id,
			"format":   "json",
			"newsong":  1,
			"platform": "jqspaframe.json",
		},
		Format: meting.Path("data.cdlist.0.songlist"),
	})
}

func (p *Provider) Lyric(ctx context.Context, exec meting.Executor, id string) (string, error) {
	return exec.Exec(ctx, meting.Request{
		Method: http.MethodGet,
		URL:    lyricEndpoint,
		Body: map[string]any{
			"songmid":  id,
			"format":   "json",
			"nobase64": 1,
		},
		Decode: meting.DecodeTencentLyric,
	})
}

func (p *Provider) PicURL(id string, size int) string {
	return fmt.Sprintf("https://y.gtimg.cn/music/photo_new/T002R%dx%dM000%s.jpg", size, size, id)
}

// URL resolves playback in two steps: the song detail lists which quality
// tiers exist, then one batched vkey call signs a filename per tier.
func (p *Provider) URL(ctx context.Context, exec meting.Executor, id string, br int) (string, error) {
	detail, err := exec.Exec(ctx, songDetailRequest(id, nil))
	if err != nil {
		return "", err
	}

	song := gjson.Get(detail, "data.0")
	if !song.Exists() || song.Type == gjson.Null {
		return emptyURL(), nil
	}

	payload, err := p.vkeyPayload(song)
	if err != nil {
		return "", err
	}
	vkeyText, err := exec.Exec(ctx, meting.Request{
		Method: http.MethodGet,
		URL:    musicuEndpoint,
		Body: map[string]any{
			"format":      "json",
			"platform":    "yqq.json",
			"needNewCode": 0,
			"data":        payload,
		},
	})
	if err != nil {
		return "", err
	}

	return selectTier(song, gjson.Get(vkeyText, "req_0.data"), br), nil
}

func songDetailRequest(id string, format meting.Extraction) meting.Request {
	return meting.Request{
		Method: http.MethodGet,
		URL:    songEndpoint,
		Body: map[string]any{
			"songmid":  id,
			"platform": "yqq",
			"format":   "json",
		},
		Format: format,
	}
}

type vkeyParam struct {
	GUID      string   `json:"guid"`
	SongMID   []string `json:"songmid"`
	Filename  []string `json:"filename"`
	SongType  []int64  `json:"songtype"`
	UIN       string   `json:"uin"`
	LoginFlag int      `json:"loginflag"`
	Platform  string   `json:"platform"`
}

type vkeyRequest struct {
	Module string    `json:"module"`
	Method string    `json:"method"`
	Param  vkeyParam `json:"param"`
}

func (p *Provider) vkeyPayload(song gjson.Result) (string, error) {
	mid := song.Get("mid").String()
	mediaMID := song.Get("file.media_mid").String()
	songType := song.Get("type").Int()

	param := vkeyParam{
		GUID:      p.guid(),
		UIN:       "0",
		LoginFlag: 1,
		Platform:  "20",
	}
	for _, tier := range qualityTiers {
		param.SongMID = append(param.SongMID, mid)
		param.Filename = append(param.Filename, tier.prefix+mediaMID+"."+tier.ext)
		param.SongType = append(param.SongType, songType)
	}

	data, err := json.Marshal(map[string]vkeyRequest{
		"req_0": {Module: "vkey.GetVkeyServer", Method: "CgiGetVkey", Param: param},
	})
	if err != nil {
		return "", fmt.Errorf("vkey payload: %w", err)
	}
	return string(data), nil
}

// selectTier picks the first tier at or below br that the song has a file for
// and the vendor signed.
func selectTier(song, vkeyData gjson.Result, br int) string {
	if !vkeyData.Exists() || vkeyData.Type == gjson.Null {
		return emptyURL()
	}
	infos := vkeyData.Get("midurlinfo").Array()
	sip := vkeyData.Get("sip.0").String()

	for i, tier := range qualityTiers {
		if tier.br > br {
			continue
		}
		size := song.Get("file." + tier.sizeKey).Int()
		if size <= 0 || i >= len(infos) {
			continue
		}
		if infos[i].Get("vkey").String() == "" {
			continue
		}
		return meting.EncodeJSON(meting.URLResult{
			URL:  sip + infos[i].Get("purl").String(),
			Size: size,
			BR:   tier.br,
		})
	}
	return emptyURL()
}

func emptyURL() string {
	return meting.EncodeJSON(meting.EmptyURLResult)
}
