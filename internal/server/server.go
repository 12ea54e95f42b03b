package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"gorm.io/gorm"

	"vapex/internal/handlers"
	applog "vapex/internal/log"
	"vapex/internal/metrics"
)

const visitorIdleTimeout = 10 * time.Minute

// Config captures the runtime configuration for the HTTP server.
type Config struct {
	Addr      string
	Session   SessionConfig
	Database  *gorm.DB
	RateLimit RateLimitConfig
	Limits    LimitsConfig
	Metrics   *metrics.Recorder
}

// SessionConfig controls session behavior for the HTTP server.
type SessionConfig struct {
	Lifetime     time.Duration
	CookieName   string
	CookieDomain string
	CookieSecure bool
}

// RateLimitConfig bounds mutating API requests per client. A zero rate
// disables limiting. TrustForwardedFor keys clients by X-Forwarded-For and
// must only be set behind a proxy that overwrites that header.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	TrustForwardedFor bool
}

// LimitsConfig holds the free-tier quotas.
type LimitsConfig struct {
	FreeRecipes     int
	FreeIngredients int
}

// Server wraps an http.Server and exposes helpers for bootstrapping a
// production-ready web service.
type Server struct {
	config     Config
	httpServer *http.Server
	limiter    *ipRateLimiter
	sweepCtx   context.Context
	stopSweep  context.CancelFunc
}

// New builds a new Server using the provided configuration.
func New(cfg Config) (*Server, error) {
	applog.Debug(context.Background(), "initializing server",
		"addr", cfg.Addr,
		"sessionLifetime", cfg.Session.Lifetime.String(),
		"sessionCookie", cfg.Session.CookieName,
	)

	sessionCfg := cfg.Session
	if sessionCfg.Lifetime <= 0 {
		applog.Debug(context.Background(), "session lifetime not provided, using default")
		sessionCfg.Lifetime = 24 * time.Hour
	}
	if strings.TrimSpace(sessionCfg.CookieName) == "" {
		applog.Debug(context.Background(), "session cookie name not provided, using default")
		sessionCfg.CookieName = "vapex_session"
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = sessionCfg.Lifetime
	sessionManager.Cookie.Name = sessionCfg.CookieName
	sessionManager.Cookie.Domain = sessionCfg.CookieDomain
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = sessionCfg.CookieSecure

	applog.Debug(context.Background(), "session manager configured",
		"cookieName", sessionCfg.CookieName,
		"cookieDomain", sessionCfg.CookieDomain,
		"cookieSecure", sessionCfg.CookieSecure,
	)

	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.New()
	}

	handlers.Configure(sessionManager, cfg.Database, handlers.Options{
		FreeRecipeLimit:     cfg.Limits.FreeRecipes,
		FreeIngredientLimit: cfg.Limits.FreeIngredients,
		Metrics:             recorder,
	})

	applog.Debug(context.Background(), "handler dependencies configured")

	var limiter *ipRateLimiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter = newIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		limiter.trustForwarded = cfg.RateLimit.TrustForwardedFor
		applog.Debug(context.Background(), "rate limiter configured",
			"rps", cfg.RateLimit.RequestsPerSecond,
			"burst", cfg.RateLimit.Burst,
		)
	}

	handler := requestID(rateLimit(limiter, recorder, sessionManager.LoadAndSave(newRouter(recorder))))

	applog.Debug(context.Background(), "http handler chain prepared")

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	return &Server{
		config:    cfg,
		limiter:   limiter,
		sweepCtx:  sweepCtx,
		stopSweep: stopSweep,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Start begins serving HTTP traffic using the underlying http.Server.
func (s *Server) Start() error {
	if s.limiter != nil {
		go s.sweepVisitors(s.sweepCtx)
	}
	applog.Debug(context.Background(), "server starting listener", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server with a timeout.
func (s *Server) Stop() error {
	s.stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	applog.Debug(ctx, "server initiating graceful shutdown")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the configured HTTP handler, enabling integration tests.
func (s *Server) Handler() http.Handler {
	applog.Debug(context.Background(), "server handler requested")
	return s.httpServer.Handler
}

func (s *Server) sweepVisitors(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.limiter.sweep(visitorIdleTimeout); removed > 0 {
				applog.Debug(ctx, "rate limiter visitors evicted", "count", removed)
			}
		}
	}
}
