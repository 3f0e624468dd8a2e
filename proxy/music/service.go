package music

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/liuran001/MusicProxy-Go/meting"
	"github.com/liuran001/MusicProxy-Go/proxy"
)

// Options wires a Service.
type Options struct {
	Cache    proxy.CacheStore
	Cookies  proxy.CookieStore
	Factory  AdapterFactory
	AuthSalt string
	Logger   proxy.Logger
}

// Result is a shaped response. Exactly one of the payload fields is
// meaningful, selected by Type.
type Result struct {
	Type   string
	Server string
	Tracks []ClientTrack
	Lyric  string
	URL    meting.URLResult
	Pic    string
}

// Service answers /api/music queries: validation, cache, vendor call and the
// single cookie-refresh retry.
type Service struct {
	cache   proxy.CacheStore
	cookies proxy.CookieStore
	factory AdapterFactory
	salt    string
	logger  proxy.Logger
}

// NewService builds a Service. Cache, Cookies and Factory are required.
func NewService(opts Options) (*Service, error) {
	if opts.Cache == nil || opts.Cookies == nil || opts.Factory == nil {
		return nil, fmt.Errorf("music service: cache, cookie store and adapter factory are required")
	}
	return &Service{
		cache:   opts.Cache,
		cookies: opts.Cookies,
		factory: opts.Factory,
		salt:    opts.AuthSalt,
		logger:  opts.Logger,
	}, nil
}

// AuthEnabled reports whether requests must carry an auth token.
func (s *Service) AuthEnabled() bool {
	return s.salt != ""
}

// Handle serves one query. base is the absolute origin used for the links
// embedded in track lists. A url or pic query that resolves to no link
// returns ErrNotFound.
func (s *Service) Handle(ctx context.Context, q Query, base string) (*Result, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkAuth(q); err != nil {
		return nil, err
	}
	if q.Type == TypeAlbum || q.Type == TypeArtist {
		return nil, meting.NewUnsupportedError(q.Server, q.Type)
	}

	raw, err := s.fetch(ctx, q)
	if err != nil {
		return nil, err
	}

	res := &Result{Type: q.Type, Server: q.Server}
	switch q.Type {
	case TypeLyric:
		res.Lyric = lyricText(raw)
	case TypeURL:
		res.URL = urlResult(raw)
		if res.URL.URL == "" {
			return nil, fmt.Errorf("%w: %s url %q", ErrNotFound, q.Server, q.ID)
		}
	case TypePic:
		res.Pic = urlResult(raw).URL
		if res.Pic == "" {
			return nil, fmt.Errorf("%w: %s pic %q", ErrNotFound, q.Server, q.ID)
		}
	default:
		res.Tracks = s.shapeTracks(raw, q.Server, base)
	}
	return res, nil
}

func (s *Service) checkAuth(q Query) error {
	if s.salt == "" {
		return nil
	}
	want := Sign(s.salt, q.Server, q.Type, q.ID)
	if subtle.ConstantTimeCompare([]byte(want), []byte(q.Auth)) != 1 {
		return ErrInvalidAuth
	}
	return nil
}

func (s *Service) fetch(ctx context.Context, q Query) (string, error) {
	key := q.CacheKey()
	if raw, ok := s.cache.Get(key); ok {
		s.debug("cache hit", "key", key)
		return raw, nil
	}

	adapter, err := s.factory(q.Server)
	if err != nil {
		return "", err
	}
	if cookie := s.cookies.Get(ctx, q.Server); cookie != "" {
		adapter.SetCookie(cookie)
	}

	raw, err := call(ctx, adapter, q)
	if err != nil {
		return "", err
	}

	if !valid(q.Type, raw) {
		fresh := s.cookies.Refresh(ctx, q.Server)
		if fresh != "" {
			s.info("retrying with refreshed cookie", "server", q.Server, "type", q.Type, "id", q.ID)
			adapter.SetCookie(fresh)
			raw, err = call(ctx, adapter, q)
			if err != nil {
				return "", err
			}
		}
	}

	s.cache.Set(key, raw, cacheTTL[q.Type])
	return raw, nil
}

func call(ctx context.Context, a Adapter, q Query) (string, error) {
	switch q.Type {
	case TypeSearch:
		return a.Search(ctx, q.Keyword, meting.SearchOption{Limit: q.Limit, Page: q.Page})
	case TypeSong:
		return a.Song(ctx, q.ID)
	case TypePlaylist:
		return a.Playlist(ctx, q.ID)
	case TypeURL:
		return a.URL(ctx, q.ID, q.BR)
	case TypeLyric:
		return a.Lyric(ctx, q.ID)
	case TypePic:
		return a.Pic(ctx, q.ID, q.Size)
	default:
		return "", meting.NewUnsupportedError(q.Server, q.Type)
	}
}

func (s *Service) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Service) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}
