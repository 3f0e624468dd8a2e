package meting

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/liuran001/MusicProxy-Go/proxy"
)

const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8"
)

// Option configures a Meting session.
type Option func(*Meting)

// WithTransport shares a vendor transport between sessions.
func WithTransport(t *Transport) Option {
	return func(m *Meting) {
		if t != nil {
			m.transport = t
		}
	}
}

// WithHTTPClient builds a private transport around c.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Meting) {
		m.transport = NewTransport(TransportOptions{HTTPClient: c, Logger: m.logger})
	}
}

// WithRand sets the source used for NetEase secret keys.
func WithRand(r *rand.Rand) Option {
	return func(m *Meting) {
		if r != nil {
			m.rng = r
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l proxy.Logger) Option {
	return func(m *Meting) {
		m.logger = l
	}
}

// Meting is one adapter session bound to a provider. A session is cheap and
// not meant to be shared between goroutines while its cookie changes.
type Meting struct {
	provider  Provider
	header    http.Header
	cookie    string
	format    bool
	transport *Transport
	logger    proxy.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a session for server. Unknown servers fail with ErrUnsupported.
func New(server string, opts ...Option) (*Meting, error) {
	factory, ok := Lookup(server)
	if !ok {
		return nil, NewUnsupportedError(server, "provider")
	}
	provider := factory()

	header := http.Header{}
	header.Set("User-Agent", userAgent)
	header.Set("Accept", "*/*")
	header.Set("Accept-Language", acceptLanguage)
	header.Set("Connection", "keep-alive")
	if ref := provider.Referer(); ref != "" {
		header.Set("Referer", ref)
	}

	m := &Meting{
		provider: provider,
		header:   header,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.transport == nil {
		m.transport = defaultTransport()
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return m, nil
}

// Server returns the provider name.
func (m *Meting) Server() string {
	return m.provider.Name()
}

// Cookie sets the session cookie sent with every vendor call.
func (m *Meting) Cookie(value string) *Meting {
	m.cookie = value
	if value == "" {
		m.header.Del("Cookie")
	} else {
		m.header.Set("Cookie", value)
	}
	return m
}

// Format toggles normalization. With formatting off every call returns the
// vendor's raw response text.
func (m *Meting) Format(enabled bool) *Meting {
	m.format = enabled
	return m
}

// Header returns a copy of the outgoing header bag.
func (m *Meting) Header() http.Header {
	return m.header.Clone()
}

// Search looks up songs by keyword.
func (m *Meting) Search(ctx context.Context, keyword string, opt SearchOption) (string, error) {
	out, err := m.provider.Search(ctx, m, keyword, opt.withDefaults())
	return out, m.wrap("search", keyword, err)
}

// Song returns a single track as a one-element list.
func (m *Meting) Song(ctx context.Context, id string) (string, error) {
	out, err := m.provider.Song(ctx, m, id)
	return out, m.wrap("song", id, err)
}

// Playlist returns the tracks of a playlist.
func (m *Meting) Playlist(ctx context.Context, id string) (string, error) {
	out, err := m.provider.Playlist(ctx, m, id)
	return out, m.wrap("playlist", id, err)
}

// URL resolves a playable url for id at no more than br kbps.
func (m *Meting) URL(ctx context.Context, id string, br int) (string, error) {
	if br <= 0 {
		br = 320
	}
	out, err := m.provider.URL(ctx, m, id, br)
	return out, m.wrap("url", id, err)
}

// Lyric returns the lyric payload for id.
func (m *Meting) Lyric(ctx context.Context, id string) (string, error) {
	out, err := m.provider.Lyric(ctx, m, id)
	return out, m.wrap("lyric", id, err)
}

// Pic renders the cover url for id without any network call.
func (m *Meting) Pic(_ context.Context, id string, size int) (string, error) {
	if id == "" {
		return EncodeJSON(plainURL{}), nil
	}
	if size <= 0 {
		size = 300
	}
	return EncodeJSON(plainURL{URL: m.provider.PicURL(id, size)}), nil
}

// Exec runs one request descriptor: encode, send, then decode and extract
// when formatting is on.
func (m *Meting) Exec(ctx context.Context, req Request) (string, error) {
	body := req.Body
	if req.Encode == EncodeNeteaseWeapi {
		enc, err := neteaseWeapi(body, m.secretKey())
		if err != nil {
			return "", err
		}
		body = enc
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var form url.Values
	if body != nil {
		form = toValues(body)
	}

	if m.logger != nil {
		m.logger.Debug("vendor request", "provider", m.Server(), "method", method, "url", req.URL, "encode", req.Encode.String())
	}
	raw, err := m.transport.Do(ctx, m.Server(), method, req.URL, form, m.header)
	if err != nil {
		return "", err
	}

	if !m.format {
		return raw, nil
	}
	data := decodeResponse(raw, req.Decode)
	if req.Format != nil {
		return clean(data, req.Format, m.provider.Normalize), nil
	}
	return data, nil
}

func (m *Meting) secretKey() string {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return createSecretKey(m.rng, 16)
}

func (m *Meting) wrap(op, id string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: m.Server(), Op: op, ID: id, Err: err}
}

func toValues(body map[string]any) url.Values {
	form := make(url.Values, len(body))
	for key, value := range body {
		switch v := value.(type) {
		case []string:
			for _, item := range v {
				form.Add(key, item)
			}
		default:
			form.Set(key, formatValue(v))
		}
	}
	return form
}
