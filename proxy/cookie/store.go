package cookie

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/liuran001/MusicProxy-Go/proxy"
	"github.com/liuran001/MusicProxy-Go/proxy/worker"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultCredentialURL issues QQ Music credentials.
	DefaultCredentialURL = "http://local.zeusai.top:8898/credentials"

	defaultCredentialTimeout = 10 * time.Second
	persistTimeout           = 10 * time.Second
)

// Options configures a Store.
type Options struct {
	Backend Backend
	// Seeds are configured cookies used while the backend holds none.
	Seeds             map[string]string
	CredentialURL     string
	CredentialTimeout time.Duration
	// HTTPClient overrides the credential client, mostly for tests.
	HTTPClient *http.Client
	Logger     proxy.Logger
}

type refresher func(ctx context.Context) (string, error)

// Store keeps an in-memory mirror of provider cookies backed by persistent
// storage. The mirror is authoritative: a failed write is logged and the
// in-memory value keeps being served.
type Store struct {
	mu     sync.Mutex
	mirror Record

	backend Backend
	seeds   map[string]string
	pool    proxy.WorkerPool
	logger  proxy.Logger

	group      singleflight.Group
	refreshers map[string]refresher

	client        *retryablehttp.Client
	credentialURL string
	timeout       time.Duration
}

// New creates a Store. Persistence runs on a dedicated single worker so
// writes land in call order.
func New(opts Options) *Store {
	backend := opts.Backend
	if backend == nil {
		backend = NewFileBackend("secrets/music-cookie.json")
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.HTTPClient != nil {
		client.HTTPClient = opts.HTTPClient
	}

	credentialURL := strings.TrimSpace(opts.CredentialURL)
	if credentialURL == "" {
		credentialURL = DefaultCredentialURL
	}
	timeout := opts.CredentialTimeout
	if timeout <= 0 {
		timeout = defaultCredentialTimeout
	}

	seeds := make(map[string]string, len(opts.Seeds))
	for provider, value := range opts.Seeds {
		if value = strings.TrimSpace(value); value != "" {
			seeds[provider] = value
		}
	}

	s := &Store{
		backend:       backend,
		seeds:         seeds,
		pool:          worker.New(1),
		logger:        opts.Logger,
		client:        client,
		credentialURL: credentialURL,
		timeout:       timeout,
	}
	s.refreshers = map[string]refresher{
		"tencent": s.refreshTencent,
	}
	return s
}

// Get returns the cookie for provider, reloading from storage when the
// mirror has no value for it. It returns "" when nothing is known.
func (s *Store) Get(ctx context.Context, provider string) string {
	s.mu.Lock()
	if s.mirror != nil {
		if v := s.mirror[provider]; v != "" {
			s.mu.Unlock()
			return v
		}
	}
	s.mu.Unlock()

	loaded := s.load(ctx)

	s.mu.Lock()
	s.mergeLocked(loaded)
	value := s.mirror[provider]
	s.mu.Unlock()

	if value == "" {
		value = s.seeds[provider]
	}
	return value
}

// Set updates the mirror and schedules a write of the whole record.
func (s *Store) Set(ctx context.Context, provider, value string) {
	s.mu.Lock()
	needLoad := s.mirror == nil
	s.mu.Unlock()

	var loaded Record
	if needLoad {
		loaded = s.load(ctx)
	}

	s.mu.Lock()
	if needLoad {
		s.mergeLocked(loaded)
	}
	if s.mirror == nil {
		s.mirror = Record{}
	}
	s.mirror[provider] = value
	s.mu.Unlock()

	if err := s.pool.Submit(s.persist); err != nil {
		s.logWarn("cookie write queue closed, writing inline", "error", err)
		s.persist()
	}
}

// Refresh obtains a new cookie for provider from its credential source and
// stores it. It returns "" when the provider has no refresh protocol or the
// refresh fails. Concurrent refreshes of one provider share a single call.
func (s *Store) Refresh(ctx context.Context, provider string) string {
	fn, ok := s.refreshers[provider]
	if !ok {
		s.logWarn("no cookie refresh protocol for provider", "provider", provider)
		return ""
	}

	v, err, shared := s.group.Do(provider, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		cookie, err := fn(callCtx)
		if err != nil {
			return "", err
		}
		s.Set(callCtx, provider, cookie)
		return cookie, nil
	})
	if err != nil {
		s.logError("cookie refresh failed", "provider", provider, "error", err)
		return ""
	}
	if s.logger != nil {
		s.logger.Info("cookie refreshed", "provider", provider, "shared", shared)
	}
	return v.(string)
}

// Flush waits until every write queued so far has been attempted.
func (s *Store) Flush(ctx context.Context) error {
	return s.pool.SubmitWaitContext(ctx, func() error { return nil })
}

// Close drains pending writes and stops the writer.
func (s *Store) Close(ctx context.Context) error {
	return s.pool.Shutdown(ctx)
}

func (s *Store) load(ctx context.Context) Record {
	rec, err := s.backend.Load(ctx)
	if err != nil {
		s.logWarn("load cookies failed, using empty record", "error", err)
		return Record{}
	}
	if rec == nil {
		return Record{}
	}
	return rec
}

// mergeLocked folds loaded values into the mirror without overriding values
// the mirror already holds.
func (s *Store) mergeLocked(loaded Record) {
	if s.mirror == nil {
		s.mirror = Record{}
	}
	for provider, value := range loaded {
		if s.mirror[provider] == "" {
			s.mirror[provider] = value
		}
	}
}

func (s *Store) persist() {
	s.mu.Lock()
	snapshot := s.mirror.clone()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.backend.Save(ctx, snapshot); err != nil {
		s.logError("persist cookies failed", "error", err)
	}
}

func (s *Store) refreshTencent(ctx context.Context) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.credentialURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("credential request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read credential response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("credential server returned status %d", resp.StatusCode)
	}
	return tencentCookieFromCredentials(string(body))
}

var errBadCredentials = errors.New("credential response has no usable entry")

// tencentCookieFromCredentials expects {"code":200,"data":[{"str_musicid":..,"musickey":..}]}.
func tencentCookieFromCredentials(body string) (string, error) {
	if !gjson.Valid(body) {
		return "", fmt.Errorf("%w: invalid json", errBadCredentials)
	}
	doc := gjson.Parse(body)
	if doc.Get("code").Int() != 200 {
		return "", fmt.Errorf("%w: code %s", errBadCredentials, doc.Get("code").Raw)
	}
	entry := doc.Get("data.0")
	if !doc.Get("data").IsArray() || !entry.Exists() {
		return "", fmt.Errorf("%w: empty data", errBadCredentials)
	}
	uin := entry.Get("str_musicid").String()
	key := entry.Get("musickey").String()
	if uin == "" || key == "" {
		return "", fmt.Errorf("%w: missing str_musicid or musickey", errBadCredentials)
	}
	return fmt.Sprintf("uin=%s; qm_keyst=%s;", uin, key), nil
}

func (s *Store) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *Store) logError(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
