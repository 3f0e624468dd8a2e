package meting

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

const emptyList = "[]"

// clean walks raw along path and maps every element found there through
// normalize. It never fails: unparsable input or a missing segment yields "[]".
func clean(raw string, path Extraction, normalize func(gjson.Result) Track) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !gjson.Valid(raw) {
		return emptyList
	}

	node := gjson.Parse(raw)
	if len(path) > 0 {
		node = node.Get(path.gjsonPath())
		if !node.Exists() {
			return emptyList
		}
	}

	var items []gjson.Result
	switch {
	case node.Type == gjson.Null:
	case node.IsArray():
		items = node.Array()
	default:
		items = []gjson.Result{node}
	}

	tracks := make([]Track, 0, len(items))
	for _, item := range items {
		tracks = append(tracks, normalize(item))
	}
	return EncodeJSON(tracks)
}

// EncodeJSON renders v without HTML escaping. Callers pass plain structs, so
// a failure only renders as "null".
func EncodeJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "null"
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// StringList collects the named field of every element of an array node.
// Providers use it for artist lists.
func StringList(node gjson.Result, field string) []string {
	out := make([]string, 0)
	if !node.IsArray() {
		return out
	}
	node.ForEach(func(_, v gjson.Result) bool {
		out = append(out, v.Get(field).String())
		return true
	})
	return out
}

// FirstString returns the first of paths that resolves to a non-empty string.
func FirstString(item gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := item.Get(p); v.Exists() && v.Type != gjson.Null {
			if s := v.String(); s != "" {
				return s
			}
		}
	}
	return ""
}
