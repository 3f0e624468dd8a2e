package music

import (
	"context"

	"github.com/liuran001/MusicProxy-Go/meting"
)

// Adapter is the slice of a Meting session the service drives.
type Adapter interface {
	SetCookie(value string)
	Search(ctx context.Context, keyword string, opt meting.SearchOption) (string, error)
	Song(ctx context.Context, id string) (string, error)
	Playlist(ctx context.Context, id string) (string, error)
	URL(ctx context.Context, id string, br int) (string, error)
	Lyric(ctx context.Context, id string) (string, error)
	Pic(ctx context.Context, id string, size int) (string, error)
}

// AdapterFactory opens a fresh adapter for server.
type AdapterFactory func(server string) (Adapter, error)

type metingAdapter struct {
	*meting.Meting
}

func (a metingAdapter) SetCookie(value string) {
	a.Cookie(value)
}

// MetingFactory returns a factory opening formatted Meting sessions.
func MetingFactory(opts ...meting.Option) AdapterFactory {
	return func(server string) (Adapter, error) {
		m, err := meting.New(server, opts...)
		if err != nil {
			return nil, err
		}
		return metingAdapter{m.Format(true)}, nil
	}
}
