package proxy

import (
	"context"
	"time"
)

// Logger is the minimal logging abstraction used across modules.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// CacheStore stores serialized payloads with a per-entry TTL.
type CacheStore interface {
	Get(key string) (string, bool)
	Set(key, value string, ttl time.Duration)
}

// CookieStore keeps per-provider session cookies.
type CookieStore interface {
	Get(ctx context.Context, provider string) string
	Set(ctx context.Context, provider, value string)
	Refresh(ctx context.Context, provider string) string
}

// CookieRepository persists provider cookies in a database.
type CookieRepository interface {
	All(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, provider, value string) error
}

// WorkerPool limits concurrency for background tasks.
type WorkerPool interface {
	Submit(task func()) error
	SubmitWaitContext(ctx context.Context, task func() error) error
	Shutdown(ctx context.Context) error
	Size() int
}
