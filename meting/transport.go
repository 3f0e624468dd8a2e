package meting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/liuran001/MusicProxy-Go/proxy"
	"github.com/sony/gobreaker"
)

// DefaultTimeout bounds a single vendor call.
const DefaultTimeout = 15 * time.Second

// TransportOptions configures the shared vendor transport.
type TransportOptions struct {
	// Timeout bounds every vendor call. Zero means DefaultTimeout.
	Timeout time.Duration
	// RetryMax is the number of transport-level retries. Zero disables them.
	RetryMax int
	// HTTPClient overrides the underlying client, mostly for tests.
	HTTPClient *http.Client
	Logger     proxy.Logger
}

// Transport issues vendor HTTP calls. It is safe for concurrent use and is
// meant to be shared by every adapter session in the process.
type Transport struct {
	retry   *retryablehttp.Client
	timeout time.Duration
	logger  proxy.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewTransport creates a transport with a retrying client and per-provider
// circuit breakers.
func NewTransport(opts TransportOptions) *Transport {
	client := retryablehttp.NewClient()
	client.RetryMax = opts.RetryMax
	if client.RetryMax < 0 {
		client.RetryMax = 0
	}
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = nil
	// Non-2xx bodies are still handed to the caller as text.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.HTTPClient != nil {
		client.HTTPClient = opts.HTTPClient
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Transport{
		retry:    client,
		timeout:  timeout,
		logger:   opts.Logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

var defaultTransport = sync.OnceValue(func() *Transport {
	return NewTransport(TransportOptions{})
})

func (t *Transport) breaker(provider string) *gobreaker.CircuitBreaker {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cb, ok := t.breakers[provider]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider + "-api",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// A caller hanging up says nothing about the vendor's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if t.logger != nil {
				t.logger.Warn("vendor circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
	})
	t.breakers[provider] = cb
	return cb
}

// Do sends one request and returns the body text. Only network failures are
// errors, wrapping ErrUnavailable; any HTTP status is returned as text.
func (t *Transport) Do(ctx context.Context, provider string, method, endpoint string, form url.Values, header http.Header) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	result, err := t.breaker(provider).Execute(func() (interface{}, error) {
		return t.send(ctx, method, endpoint, form, header)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return result.(string), nil
}

func (t *Transport) send(ctx context.Context, method, endpoint string, form url.Values, header http.Header) (string, error) {
	var body interface{}
	target := endpoint
	switch method {
	case http.MethodGet:
		if len(form) > 0 {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + form.Encode()
		}
	default:
		if form != nil {
			body = strings.NewReader(form.Encode())
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return "", err
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if method != http.MethodGet && form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := t.retry.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if t.logger != nil && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		t.logger.Warn("vendor returned non-2xx status", "url", endpoint, "status", resp.StatusCode)
	}
	return string(data), nil
}
