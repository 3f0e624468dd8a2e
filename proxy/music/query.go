package music

import (
	"strconv"
	"strings"
	"time"
)

// Request types.
const (
	TypeSong     = "song"
	TypeAlbum    = "album"
	TypeSearch   = "search"
	TypeArtist   = "artist"
	TypePlaylist = "playlist"
	TypeLyric    = "lrc"
	TypeURL      = "url"
	TypePic      = "pic"
)

var knownServers = map[string]bool{
	"netease": true,
	"tencent": true,
	"baidu":   true,
	"xiami":   true,
	"kugou":   true,
}

var knownTypes = map[string]bool{
	TypeSong:     true,
	TypeAlbum:    true,
	TypeSearch:   true,
	TypeArtist:   true,
	TypePlaylist: true,
	TypeLyric:    true,
	TypeURL:      true,
	TypePic:      true,
}

var cacheTTL = map[string]time.Duration{
	TypeSearch:   time.Hour,
	TypeSong:     2 * time.Hour,
	TypePlaylist: 2 * time.Hour,
	TypeURL:      20 * time.Minute,
	TypeLyric:    24 * time.Hour,
	TypePic:      24 * time.Hour,
}

// Query is one /api/music request.
type Query struct {
	Server  string `form:"server"`
	Type    string `form:"type"`
	ID      string `form:"id"`
	Keyword string `form:"keyword"`
	Limit   int    `form:"limit,default=30"`
	Page    int    `form:"page,default=1"`
	BR      int    `form:"br,default=320"`
	Size    int    `form:"size,default=300"`
	Auth    string `form:"auth"`
}

// Normalize trims fields and fills zero values with defaults.
func (q Query) Normalize() Query {
	q.Server = strings.TrimSpace(q.Server)
	q.Type = strings.TrimSpace(q.Type)
	q.ID = strings.TrimSpace(q.ID)
	q.Keyword = strings.TrimSpace(q.Keyword)
	if q.Keyword == "" {
		q.Keyword = q.ID
	}
	if q.Limit <= 0 {
		q.Limit = 30
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.BR <= 0 {
		q.BR = 320
	}
	if q.Size <= 0 {
		q.Size = 300
	}
	return q
}

// Validate checks server, type and id. A pic request may omit the id.
func (q Query) Validate() error {
	if !knownServers[q.Server] || !knownTypes[q.Type] {
		return ErrInvalidParams
	}
	if q.Type != TypePic && q.ID == "" {
		return ErrInvalidParams
	}
	return nil
}

// CacheKey is server:type:id, with search, url and pic folding in their
// extra parameters.
func (q Query) CacheKey() string {
	switch q.Type {
	case TypeSearch:
		return strings.Join([]string{q.Server, TypeSearch, q.Keyword, strconv.Itoa(q.Limit), strconv.Itoa(q.Page)}, ":")
	case TypeURL:
		return strings.Join([]string{q.Server, TypeURL, q.ID, strconv.Itoa(q.BR)}, ":")
	case TypePic:
		return strings.Join([]string{q.Server, TypePic, q.ID, strconv.Itoa(q.Size)}, ":")
	default:
		return strings.Join([]string{q.Server, q.Type, q.ID}, ":")
	}
}
