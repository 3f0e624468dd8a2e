package meting

import (
	"context"

	"github.com/tidwall/gjson"
)

// Track is the provider-agnostic record produced by the normalizers.
type Track struct {
	Name    string   `json:"name"`
	Artist  []string `json:"artist"`
	URLID   string   `json:"url_id"`
	PicID   string   `json:"pic_id"`
	LyricID string   `json:"lyric_id"`
	Source  string   `json:"source"`
}

// SearchOption tunes a keyword search.
type SearchOption struct {
	Limit int
	Page  int
	// Type is the vendor search type; zero means songs.
	Type int
}

func (o SearchOption) withDefaults() SearchOption {
	if o.Limit <= 0 {
		o.Limit = 30
	}
	if o.Page <= 0 {
		o.Page = 1
	}
	if o.Type <= 0 {
		o.Type = 1
	}
	return o
}

// Executor runs one vendor request descriptor for a provider.
type Executor interface {
	Exec(ctx context.Context, req Request) (string, error)
}

// Provider describes one music vendor. Implementations build request
// descriptors and run them through the Executor they are handed, so they hold
// no session state of their own.
type Provider interface {
	Name() string
	Referer() string

	// Normalize maps one vendor item onto a Track.
	Normalize(item gjson.Result) Track

	Search(ctx context.Context, exec Executor, keyword string, opt SearchOption) (string, error)
	Song(ctx context.Context, exec Executor, id string) (string, error)
	Playlist(ctx context.Context, exec Executor, id string) (string, error)
	URL(ctx context.Context, exec Executor, id string, br int) (string, error)
	Lyric(ctx context.Context, exec Executor, id string) (string, error)

	// PicURL renders the cover image URL. It never touches the network.
	PicURL(id string, size int) string
}
