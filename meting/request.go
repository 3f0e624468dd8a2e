package meting

import (
	"fmt"
	"strconv"
	"strings"
)

// Encoding is a request pre-encoding transform.
type Encoding int

const (
	EncodeNone Encoding = iota
	// EncodeNeteaseWeapi replaces the body with NetEase's {params, encSecKey} envelope.
	EncodeNeteaseWeapi
)

func (e Encoding) String() string {
	switch e {
	case EncodeNeteaseWeapi:
		return "netease_weapi"
	default:
		return "none"
	}
}

// Decoding is a response pre-decoding transform.
type Decoding int

const (
	DecodeNone Decoding = iota
	DecodeNeteaseURL
	DecodeNeteaseLyric
	DecodeTencentLyric
)

func (d Decoding) String() string {
	switch d {
	case DecodeNeteaseURL:
		return "netease_url"
	case DecodeNeteaseLyric:
		return "netease_lyric"
	case DecodeTencentLyric:
		return "tencent_lyric"
	default:
		return "none"
	}
}

// Extraction locates the payload array inside a vendor response. A nil
// Extraction means the decoded text is returned as is.
type Extraction []string

// Path parses a dotted path such as "data.cdlist.0.songlist". An empty path
// selects the document root.
func Path(dotted string) Extraction {
	if dotted == "" {
		return Extraction{}
	}
	return Extraction(strings.Split(dotted, "."))
}

func (e Extraction) String() string {
	return strings.Join(e, ".")
}

// gjsonPath renders the segments with gjson's metacharacters escaped.
func (e Extraction) gjsonPath() string {
	parts := make([]string, len(e))
	for i, seg := range e {
		var b strings.Builder
		for _, r := range seg {
			switch r {
			case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
		parts[i] = b.String()
	}
	return strings.Join(parts, ".")
}

// Request declares one vendor HTTP call.
type Request struct {
	Method string
	URL    string
	// Body goes to the query string for GET and to a form body for POST.
	Body   map[string]any
	Encode Encoding
	Decode Decoding
	Format Extraction
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
