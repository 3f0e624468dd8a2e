package meting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func titleOnly(item gjson.Result) Track {
	return Track{
		Name:   item.Get("title").String(),
		Artist: StringList(item.Get("ar"), "name"),
		URLID:  item.Get("id").String(),
		Source: "stub",
	}
}

func TestCleanNeverFails(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		path Extraction
		want string
	}{
		{"empty input", "", Path("a"), "[]"},
		{"malformed json", "{not json", Path("a"), "[]"},
		{"missing segment", `{"a":{"b":[{"c":1}]}}`, Path("a.b.0.c.d"), "[]"},
		{"path through scalar", `{"a":"text"}`, Path("a.b"), "[]"},
		{"missing index", `{"a":{"b":[]}}`, Path("a.b.0.c"), "[]"},
		{"null target", `{"a":null}`, Path("a"), "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clean(tt.raw, tt.path, titleOnly))
		})
	}
}

func TestCleanMapsArrayAndWrapsSingleton(t *testing.T) {
	raw := `{"data":{"cdlist":[{"songlist":[{"title":"One","id":11,"ar":[{"name":"A"},{"name":"B"}]},{"title":"Two","id":12}]}]}}`
	got := clean(raw, Path("data.cdlist.0.songlist"), titleOnly)
	assert.JSONEq(t, `[
		{"name":"One","artist":["A","B"],"url_id":"11","pic_id":"","lyric_id":"","source":"stub"},
		{"name":"Two","artist":[],"url_id":"12","pic_id":"","lyric_id":"","source":"stub"}
	]`, got)

	single := clean(`{"song":{"title":"Solo","id":"x"}}`, Path("song"), titleOnly)
	assert.JSONEq(t, `[{"name":"Solo","artist":[],"url_id":"x","pic_id":"","lyric_id":"","source":"stub"}]`, single)
}

func TestCleanRootPath(t *testing.T) {
	got := clean(`[{"title":"Root"}]`, Path(""), titleOnly)
	assert.JSONEq(t, `[{"name":"Root","artist":[],"url_id":"","pic_id":"","lyric_id":"","source":"stub"}]`, got)
}

func TestPathEscapesMetacharacters(t *testing.T) {
	raw := `{"a*b":{"c?":[1,2]}}`
	assert.Equal(t, "[1,2]", gjson.Get(raw, Path("a*b.c?").gjsonPath()).Raw)
}

func TestFirstString(t *testing.T) {
	item := gjson.Parse(`{"albummid":"","album":{"mid":null,"pmid":"P1"}}`)
	assert.Equal(t, "P1", FirstString(item, "albummid", "album.mid", "album.pmid"))
	assert.Equal(t, "", FirstString(item, "nothing"))
}
