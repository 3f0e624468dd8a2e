package meting

import (
	"encoding/base64"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// URLResult is the playback descriptor returned by URL.
type URLResult struct {
	URL  string `json:"url"`
	Size int64  `json:"size"`
	BR   int    `json:"br"`
}

// EmptyURLResult is the sentinel for "no playable url".
var EmptyURLResult = URLResult{URL: "", Size: 0, BR: -1}

// LyricResult is the normalized lyric payload.
type LyricResult struct {
	Lyric  string `json:"lyric"`
	TLyric string `json:"tlyric"`
}

type plainURL struct {
	URL string `json:"url"`
}

func decodeResponse(raw string, d Decoding) string {
	switch d {
	case DecodeNeteaseURL:
		return decodeNeteaseURL(raw)
	case DecodeNeteaseLyric:
		return decodeNeteaseLyric(raw)
	case DecodeTencentLyric:
		return decodeTencentLyric(raw)
	default:
		return raw
	}
}

func decodeNeteaseURL(raw string) string {
	return EncodeJSON(plainURL{URL: gjson.Get(raw, "data.0.url").String()})
}

func decodeNeteaseLyric(raw string) string {
	return EncodeJSON(LyricResult{
		Lyric:  gjson.Get(raw, "lrc.lyric").String(),
		TLyric: gjson.Get(raw, "tlyric.lyric").String(),
	})
}

func decodeTencentLyric(raw string) string {
	body := stripJSONP(raw)
	return EncodeJSON(LyricResult{
		Lyric:  decodeLyricText(gjson.Get(body, "lyric").String()),
		TLyric: decodeLyricText(gjson.Get(body, "trans").String()),
	})
}

// stripJSONP removes a callback wrapper such as MusicJsonCallback({...}).
func stripJSONP(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}
	start := strings.IndexByte(trimmed, '(')
	end := strings.LastIndexByte(trimmed, ')')
	if start < 0 || end <= start {
		return trimmed
	}
	return trimmed[start+1 : end]
}

// decodeLyricText accepts both base64 and plain lyric bodies and resolves
// HTML entities the vendor leaves in plain ones.
func decodeLyricText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if decoded, err := base64.StdEncoding.DecodeString(trimmed); err == nil && utf8.Valid(decoded) {
		trimmed = string(decoded)
	}
	return html.UnescapeString(trimmed)
}
