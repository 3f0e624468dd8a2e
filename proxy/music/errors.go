package music

import (
	"errors"

	"github.com/liuran001/MusicProxy-Go/meting"
)

// Errors returned by Service.Handle, checked with errors.Is.
var (
	// ErrInvalidParams covers unknown servers or types and a missing id.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrInvalidAuth means the auth token does not match the configured salt.
	ErrInvalidAuth = errors.New("invalid auth")

	// ErrUnsupported is a valid request no registered provider can serve.
	ErrUnsupported = meting.ErrUnsupported

	// ErrNotFound means the request resolved to nothing, e.g. a cover without a url.
	ErrNotFound = errors.New("not found")
)
