package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/liuran001/MusicProxy-Go/meting"
	"github.com/liuran001/MusicProxy-Go/proxy"
	"github.com/liuran001/MusicProxy-Go/proxy/music"
	"github.com/liuran001/MusicProxy-Go/proxy/ratelimit"
)

// Options configures the HTTP surface.
type Options struct {
	Service *music.Service
	Cookies proxy.CookieStore
	// Limiter is optional; nil disables rate limiting.
	Limiter *ratelimit.RateLimiter
	Logger  proxy.Logger

	AllowedOrigins []string
	// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For is
	// believed when keying the rate limiter. Empty trusts nobody.
	TrustedProxies []string
	// PublicBaseURL pins the origin used in generated links. Empty derives it
	// from each request.
	PublicBaseURL string

	// StreamServers lists providers whose audio is piped through instead of
	// redirected.
	StreamServers       []string
	UseServerCookie     bool
	ForwardClientCookie bool
	SuppressSetCookie   bool
	// StreamClient overrides the client used for audio upstreams.
	StreamClient *http.Client

	Now func() time.Time
}

// Server owns the gin engine and the handlers behind it.
type Server struct {
	engine  *gin.Engine
	service *music.Service
	cookies proxy.CookieStore
	limiter *ratelimit.RateLimiter
	logger  proxy.Logger

	origins    map[string]bool
	publicBase string

	streams             map[string]bool
	useServerCookie     bool
	forwardClientCookie bool
	suppressSetCookie   bool
	streamClient        *retryablehttp.Client

	now     func() time.Time
	started time.Time
}

// New builds the router. Call gin.SetMode beforehand to pick the mode.
func New(opts Options) (*Server, error) {
	s := &Server{
		service:             opts.Service,
		cookies:             opts.Cookies,
		limiter:             opts.Limiter,
		logger:              opts.Logger,
		origins:             toSet(opts.AllowedOrigins),
		publicBase:          strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/"),
		streams:             toSet(opts.StreamServers),
		useServerCookie:     opts.UseServerCookie,
		forwardClientCookie: opts.ForwardClientCookie,
		suppressSetCookie:   opts.SuppressSetCookie,
		now:                 opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.started = s.now()

	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.StreamClient != nil {
		client.HTTPClient = opts.StreamClient
	}
	s.streamClient = client

	r := gin.New()
	var trusted []string
	for _, p := range opts.TrustedProxies {
		if p = strings.TrimSpace(p); p != "" {
			trusted = append(trusted, p)
		}
	}
	if err := r.SetTrustedProxies(trusted); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(s.logging(), s.recovery(), s.cors(), s.rateLimit())

	api := r.Group("/api")
	{
		api.GET("/music", s.handleMusic)
		api.OPTIONS("/music", s.preflight)
		api.GET("/health", s.handleHealth)
		api.OPTIONS("/health", s.preflight)
	}
	r.NoRoute(func(c *gin.Context) {
		abortError(c, http.StatusNotFound, "Not found")
	})

	s.engine = r
	return s, nil
}

// Handler exposes the engine for http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) preflight(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (s *Server) handleHealth(c *gin.Context) {
	now := s.now()
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"uptime":    now.Sub(s.started).Seconds(),
	})
}

func (s *Server) handleMusic(c *gin.Context) {
	if link := c.Query("url"); link != "" {
		parsed, ok := meting.ParseTencentURL(link)
		if !ok {
			abortError(c, http.StatusBadRequest, "Unsupported URL")
			return
		}
		c.JSON(http.StatusOK, parsed)
		return
	}

	var q music.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		abortError(c, http.StatusBadRequest, "Invalid query")
		return
	}

	res, err := s.service.Handle(c.Request.Context(), q, s.baseURL(c.Request))
	if err != nil {
		s.fail(c, err)
		return
	}

	switch res.Type {
	case music.TypeLyric:
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(res.Lyric))
	case music.TypePic:
		c.Redirect(http.StatusFound, res.Pic)
	case music.TypeURL:
		if s.streams[res.Server] {
			s.stream(c, res.Server, res.URL.URL)
			return
		}
		c.Redirect(http.StatusTemporaryRedirect, res.URL.URL)
	default:
		c.PureJSON(http.StatusOK, res.Tracks)
	}
}

// fail maps service errors onto status codes. Anything unexpected is logged
// and reported without detail.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, music.ErrInvalidParams):
		abortError(c, http.StatusForbidden, "Invalid parameters")
	case errors.Is(err, music.ErrInvalidAuth):
		abortError(c, http.StatusForbidden, "Invalid auth")
	case errors.Is(err, music.ErrUnsupported):
		abortError(c, http.StatusBadRequest, "Unsupported server or type")
	case errors.Is(err, music.ErrNotFound):
		abortError(c, http.StatusNotFound, "Not found")
	default:
		if s.logger != nil {
			s.logger.Error("music request failed", "query", c.Request.URL.RawQuery, "error", err)
		}
		abortError(c, http.StatusInternalServerError, "Internal server error")
	}
}

func (s *Server) baseURL(r *http.Request) string {
	if s.publicBase != "" {
		return s.publicBase
	}
	scheme := "http"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	} else if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			set[item] = true
		}
	}
	return set
}
