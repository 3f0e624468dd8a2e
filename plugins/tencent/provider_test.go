package tencent

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/liuran001/MusicProxy-Go/meting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// vendor serves canned bodies keyed by request path and records queries.
type vendor struct {
	mu      sync.Mutex
	bodies  map[string]string
	queries []*http.Request
}

func (v *vendor) client() *http.Client {
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		v.mu.Lock()
		v.queries = append(v.queries, r)
		body := v.bodies[r.URL.Path]
		v.mu.Unlock()
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    r,
		}, nil
	})}
}

func newSession(t *testing.T, v *vendor) *meting.Meting {
	t.Helper()
	m, err := meting.New("tencent", meting.WithHTTPClient(v.client()))
	require.NoError(t, err)
	return m.Format(true)
}

const (
	songPath  = "/v8/fcg-bin/fcg_play_single_song.fcg"
	vkeyPath  = "/cgi-bin/musicu.fcg"
	fullVkeys = `{"req_0":{"data":{"sip":["http://ws.stream.qqmusic.qq.com/"],"midurlinfo":[
		{"purl":"M800x.mp3?vkey=a","vkey":"a"},
		{"purl":"C600x.m4a?vkey=b","vkey":"b"},
		{"purl":"M500x.mp3?vkey=c","vkey":"c"},
		{"purl":"C400x.m4a?vkey=d","vkey":"d"},
		{"purl":"C200x.m4a?vkey=e","vkey":"e"},
		{"purl":"C100x.m4a?vkey=f","vkey":"f"}]}}}`
)

func TestNormalizePicFallback(t *testing.T) {
	p := New()
	tests := []struct {
		name string
		raw  string
		pic  string
	}{
		{"search result", `{"songname":"A","songmid":"m1","albummid":"al1","singer":[{"name":"S"}]}`, "al1"},
		{"song detail", `{"name":"A","mid":"m1","album":{"mid":"al2","pmid":"pm2"}}`, "al2"},
		{"pmid only", `{"name":"A","mid":"m1","album":{"mid":"","pmid":"pm3"}}`, "pm3"},
		{"nothing", `{"name":"A","mid":"m1"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track := p.Normalize(gjson.Parse(tt.raw))
			assert.Equal(t, tt.pic, track.PicID)
			assert.Equal(t, "m1", track.URLID)
			assert.Equal(t, "m1", track.LyricID)
			assert.Equal(t, "A", track.Name)
			assert.Equal(t, "tencent", track.Source)
		})
	}
}

func TestPlaylist(t *testing.T) {
	v := &vendor{bodies: map[string]string{
		"/v8/fcg-bin/fcg_v8_playlist_cp.fcg": `{"code":0,"data":{"cdlist":[{"songlist":[
			{"name":"稻香","mid":"003aAYrm3GE0Ac","singer":[{"name":"周杰伦"}],"album":{"mid":"003KNcyk0t3mwC"}}]}]}}`,
	}}
	out, err := newSession(t, v).Playlist(context.Background(), "7256912512")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"稻香","artist":["周杰伦"],"url_id":"003aAYrm3GE0Ac","pic_id":"003KNcyk0t3mwC","lyric_id":"003aAYrm3GE0Ac","source":"tencent"}]`, out)

	q := v.queries[0].URL.Query()
	assert.Equal(t, "7256912512", q.Get("id"))
	assert.Equal(t, "jqspaframe.json", q.Get("platform"))
	assert.Equal(t, "https://y.qq.com", v.queries[0].Header.Get("Referer"))
}

func TestSearchQuery(t *testing.T) {
	v := &vendor{bodies: map[string]string{
		"/soso/fcgi-bin/client_search_cp": `{"data":{"song":{"list":[]}}}`,
	}}
	out, err := newSession(t, v).Search(context.Background(), "jay", meting.SearchOption{Limit: 10, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	q := v.queries[0].URL.Query()
	assert.Equal(t, "jay", q.Get("w"))
	assert.Equal(t, "10", q.Get("n"))
	assert.Equal(t, "2", q.Get("p"))
	assert.Equal(t, "1", q.Get("new_json"))
}

func TestURLPicksHighestTierAtOrBelowRequest(t *testing.T) {
	v := &vendor{bodies: map[string]string{
		songPath: `{"data":[{"mid":"003aAYrm3GE0Ac","type":0,"file":{"media_mid":"MEDIA","size_128mp3":4000000,"size_48aac":1500000}}]}`,
		vkeyPath: fullVkeys,
	}}
	out, err := newSession(t, v).URL(context.Background(), "003aAYrm3GE0Ac", 192)
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"http://ws.stream.qqmusic.qq.com/M500x.mp3?vkey=c","size":4000000,"br":128}`, out)

	require.Len(t, v.queries, 2)
	data := v.queries[1].URL.Query().Get("data")
	param := gjson.Get(data, "req_0.param")
	assert.Equal(t, "vkey.GetVkeyServer", gjson.Get(data, "req_0.module").String())
	assert.Equal(t, "CgiGetVkey", gjson.Get(data, "req_0.method").String())
	assert.Equal(t, `["M800MEDIA.mp3","C600MEDIA.m4a","M500MEDIA.mp3","C400MEDIA.m4a","C200MEDIA.m4a","C100MEDIA.m4a"]`, param.Get("filename").Raw)
	assert.Len(t, param.Get("songmid").Array(), 6)
	assert.Equal(t, "0", param.Get("uin").String())
	assert.NotEmpty(t, param.Get("guid").String())
}

func TestURLSkipsUnsignedTier(t *testing.T) {
	v := &vendor{bodies: map[string]string{
		songPath: `{"data":[{"mid":"m","file":{"media_mid":"M","size_128mp3":400,"size_48aac":150}}]}`,
		vkeyPath: `{"req_0":{"data":{"sip":["http://cdn/"],"midurlinfo":[
			{"purl":"","vkey":""},{"purl":"","vkey":""},{"purl":"","vkey":""},
			{"purl":"","vkey":""},{"purl":"C200M.m4a","vkey":"e"},{"purl":"","vkey":""}]}}}`,
	}}
	out, err := newSession(t, v).URL(context.Background(), "m", 320)
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"http://cdn/C200M.m4a","size":150,"br":48}`, out)
}

func TestURLSentinels(t *testing.T) {
	tests := []struct {
		name   string
		bodies map[string]string
		br     int
	}{
		{"no song data", map[string]string{songPath: `{"code":0,"data":[]}`}, 320},
		{"garbage detail", map[string]string{songPath: `<html>`}, 320},
		{"no vkey data", map[string]string{songPath: `{"data":[{"mid":"m","file":{"size_128mp3":1}}]}`, vkeyPath: `{"req_0":{}}`}, 320},
		{"bitrate too low", map[string]string{songPath: `{"data":[{"mid":"m","file":{"size_128mp3":1}}]}`, vkeyPath: fullVkeys}, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := newSession(t, &vendor{bodies: tt.bodies}).URL(context.Background(), "m", tt.br)
			require.NoError(t, err)
			assert.JSONEq(t, `{"url":"","size":0,"br":-1}`, out)
		})
	}
}

func TestLyric(t *testing.T) {
	v := &vendor{bodies: map[string]string{
		"/lyric/fcgi-bin/fcg_query_lyric_new.fcg": `MusicJsonCallback({"retcode":0,"lyric":"[00&#58;01&#46;00]hello","trans":""})`,
	}}
	out, err := newSession(t, v).Lyric(context.Background(), "m")
	require.NoError(t, err)
	assert.JSONEq(t, `{"lyric":"[00:01.00]hello","tlyric":""}`, out)
	assert.Equal(t, "1", v.queries[0].URL.Query().Get("nobase64"))
}

func TestPicURL(t *testing.T) {
	assert.Equal(t, "https://y.gtimg.cn/music/photo_new/T002R500x500M000abc.jpg", New().PicURL("abc", 500))
}
