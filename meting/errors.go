package meting

import (
	"errors"
	"fmt"
)

// Common adapter errors that can be checked with errors.Is.
var (
	// ErrUnsupported is returned for providers or operations the adapter cannot serve.
	ErrUnsupported = errors.New("meting: not supported")

	// ErrUnavailable is returned when the vendor cannot be reached or its breaker is open.
	ErrUnavailable = errors.New("meting: upstream unavailable")
)

// ProviderError wraps an error with the provider and operation that produced it.
type ProviderError struct {
	// Provider is the vendor name, e.g. "netease".
	Provider string

	// Op is the adapter operation, e.g. "search" or "url".
	Op string

	// ID is the vendor identifier involved, if any.
	ID string

	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Provider, e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewUnsupportedError reports that provider cannot perform op.
func NewUnsupportedError(provider, op string) error {
	return &ProviderError{Provider: provider, Op: op, Err: ErrUnsupported}
}
