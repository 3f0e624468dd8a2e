package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/liuran001/MusicProxy-Go/meting"
	_ "github.com/liuran001/MusicProxy-Go/plugins/all"
	"github.com/liuran001/MusicProxy-Go/proxy/cache"
	"github.com/liuran001/MusicProxy-Go/proxy/config"
	"github.com/liuran001/MusicProxy-Go/proxy/cookie"
	"github.com/liuran001/MusicProxy-Go/proxy/db"
	"github.com/liuran001/MusicProxy-Go/proxy/httpapi"
	logpkg "github.com/liuran001/MusicProxy-Go/proxy/logger"
	"github.com/liuran001/MusicProxy-Go/proxy/music"
	"github.com/liuran001/MusicProxy-Go/proxy/ratelimit"
)

const prunerInterval = time.Minute

// App wires all application dependencies.
type App struct {
	Config  *config.Config
	Logger  *logpkg.Logger
	DB      *db.Repository
	Cookies *cookie.Store
	Cache   *cache.Cache
	Music   *music.Service
	Limiter *ratelimit.RateLimiter
	HTTP    *http.Server
	Build   BuildInfo

	listener    net.Listener
	stopPruner  context.CancelFunc
	serveResult chan error
}

// BuildInfo provides build-time metadata.
type BuildInfo struct {
	RuntimeVer string
	BinVersion string
	CommitSHA  string
	BuildTime  string
	BuildArch  string
}

// New builds the application container.
func New(ctx context.Context, configPath string, build BuildInfo) (*App, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logpkg.New(logpkg.Options{
		Level:     conf.GetString("LogLevel"),
		Format:    conf.GetString("LogFormat"),
		AddSource: conf.GetBool("LogSource"),
		Dir:       conf.GetString("LogDir"),
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &App{Config: conf, Logger: log, Build: build}

	backend, err := a.cookieBackend()
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	seeds := make(map[string]string)
	for _, name := range meting.Names() {
		if !conf.PluginEnabled(name) {
			log.Info("provider disabled by config", "provider", name)
			continue
		}
		if value := conf.GetPluginString(name, "cookie"); value != "" {
			seeds[name] = value
		}
	}

	a.Cookies = cookie.New(cookie.Options{
		Backend:           backend,
		Seeds:             seeds,
		CredentialURL:     conf.GetString("CredentialURL"),
		CredentialTimeout: conf.GetSeconds("CredentialTimeout"),
		Logger:            log.With("component", "cookie"),
	})

	transport := meting.NewTransport(meting.TransportOptions{
		Timeout:  conf.GetSeconds("VendorTimeout"),
		RetryMax: conf.GetInt("VendorRetryMax"),
		Logger:   log.With("component", "vendor"),
	})
	a.Cache = cache.New()

	factory := music.MetingFactory(meting.WithTransport(transport), meting.WithLogger(log.With("component", "meting")))
	a.Music, err = music.NewService(music.Options{
		Cache:    a.Cache,
		Cookies:  a.Cookies,
		Factory:  enabledOnly(conf, factory),
		AuthSalt: conf.GetString("AuthSalt"),
		Logger:   log.With("component", "music"),
	})
	if err != nil {
		a.closeStores(ctx)
		_ = log.Close()
		return nil, err
	}

	if rps := conf.GetFloat64("RateLimitPerSecond"); rps > 0 {
		a.Limiter = ratelimit.NewRateLimiter(rps, conf.GetInt("RateLimitBurst"))
	}

	gin.SetMode(ginMode(conf.GetString("GinMode")))
	server, err := httpapi.New(httpapi.Options{
		Service:             a.Music,
		Cookies:             a.Cookies,
		Limiter:             a.Limiter,
		Logger:              log.With("component", "http"),
		AllowedOrigins:      conf.GetStringSlice("AllowedOrigins"),
		TrustedProxies:      conf.GetStringSlice("TrustedProxies"),
		PublicBaseURL:       conf.GetString("PublicBaseURL"),
		StreamServers:       conf.GetStringSlice("StreamProxyServers"),
		UseServerCookie:     conf.GetBool("UseServerCookie"),
		ForwardClientCookie: conf.GetBool("ForwardClientCookie"),
		SuppressSetCookie:   conf.GetBool("SuppressSetCookie"),
	})
	if err != nil {
		a.closeStores(ctx)
		_ = log.Close()
		return nil, err
	}
	a.HTTP = &http.Server{
		Addr:              conf.GetString("ListenAddr"),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

func (a *App) cookieBackend() (cookie.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(a.Config.GetString("CookieBackend"))) {
	case "", "file":
		return cookie.NewFileBackend(a.Config.GetString("CookieFile")), nil
	case "sqlite":
		gormLogger := logpkg.NewGormLogger(a.Logger.Slog(), logpkg.ParseGormLevel(a.Config.GetString("GormLogLevel")))
		repo, err := db.NewSQLiteRepository(a.Config.GetString("Database"), gormLogger)
		if err != nil {
			return nil, fmt.Errorf("init db: %w", err)
		}
		a.DB = repo
		return cookie.NewRepositoryBackend(repo), nil
	default:
		return nil, fmt.Errorf("unknown CookieBackend %q", a.Config.GetString("CookieBackend"))
	}
}

// Start binds the listener and serves in the background.
func (a *App) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.HTTP.Addr, err)
	}
	a.listener = ln

	if a.Limiter != nil {
		pruneCtx, cancel := context.WithCancel(ctx)
		a.stopPruner = cancel
		go a.Limiter.RunPruner(pruneCtx, prunerInterval)
	}

	a.serveResult = make(chan error, 1)
	go func() {
		err := a.HTTP.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			a.Logger.Error("http server stopped", "error", err)
		}
		a.serveResult <- err
	}()

	a.Logger.Info("music proxy listening", "addr", ln.Addr().String(), "version", a.Build.BinVersion, "commit", a.Build.CommitSHA)
	return nil
}

// Addr reports the bound address once Start has run.
func (a *App) Addr() string {
	if a.listener == nil {
		return a.HTTP.Addr
	}
	return a.listener.Addr().String()
}

// Shutdown stops the HTTP server first, then drains pending cookie writes and
// closes storage and the log file.
func (a *App) Shutdown(ctx context.Context) error {
	timeout := a.Config.GetSeconds("ShutdownTimeout")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if a.stopPruner != nil {
		a.stopPruner()
	}
	if a.listener != nil {
		if err := a.HTTP.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := <-a.serveResult; err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, a.closeStores(ctx)...)

	a.Logger.Info("music proxy stopped")
	if err := a.Logger.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeStores(ctx context.Context) []error {
	var errs []error
	if a.Cookies != nil {
		if err := a.Cookies.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close cookie store: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	return errs
}

// enabledOnly hides providers switched off with `enabled = false`.
func enabledOnly(conf *config.Config, next music.AdapterFactory) music.AdapterFactory {
	return func(server string) (music.Adapter, error) {
		if !conf.PluginEnabled(server) {
			return nil, meting.NewUnsupportedError(server, "provider")
		}
		return next(server)
	}
}

func ginMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case gin.DebugMode:
		return gin.DebugMode
	case gin.TestMode:
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}
