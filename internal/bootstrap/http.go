package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/tempguard-api/config"
	httpx "github.com/target/tempguard-api/internal/http"
	"github.com/target/tempguard-api/internal/observability/metrics"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server and the login rate limiter, both of which must be stopped on shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) (*http.Server, *httpx.LoginRateLimiter) {
	if cfg == nil {
		return nil, nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	handler, limiter := buildHTTPHandler(httpHandlerConfig{
		Logger:   logger,
		Services: cfg.Services,
		App:      appCfg,
	})
	return startServer(logger, handler, appCfg.HTTP.Addr), limiter
}

type httpHandlerConfig struct {
	Logger   *slog.Logger
	Services ServiceContainer
	App      *config.AppConfig
}

func buildHTTPHandler(cfg httpHandlerConfig) (http.Handler, *httpx.LoginRateLimiter) {
	svc := cfg.Services
	httpCfg := cfg.App.HTTP

	limiterCfg := httpx.LoginRateLimiterConfig{
		PerMinute:      cfg.App.Auth.Login.PerMinute,
		Burst:          cfg.App.Auth.Login.Burst,
		TrustForwarded: httpCfg.TrustProxy,
		Logger:         cfg.Logger.With("component", "login_rate_limiter"),
	}
	if svc.Metrics != nil {
		limiterCfg.OnLimited = func() { svc.Metrics.ObserveLogin(metrics.LoginRateLimited) }
	}
	limiter := httpx.NewLoginRateLimiter(limiterCfg)

	rs := httpx.RouterServices{
		Sessions:     svc.Sessions,
		Records:      svc.Records,
		Locations:    svc.Locations,
		Stats:        svc.Stats,
		Users:        svc.Users,
		Maintenance:  svc.Maintenance,
		Readiness:    svc.Readiness,
		LoginLimiter: limiter,
		CookieDomain: httpCfg.CookieDomain,
		Logger:       cfg.Logger,
	}
	if svc.Lookup != nil {
		rs.Lookup = svc.Lookup
	}
	if httpCfg.MetricsEnabled && svc.Metrics != nil {
		rs.Metrics = svc.Metrics
		rs.MetricsHandler = metrics.Handler(svc.Registry)
	}
	if httpCfg.CompressionEnabled {
		cfg.Logger.Info("HTTP compression enabled", "level", httpCfg.CompressionLevel)
		rs.Compression = &httpx.CompressionConfig{Level: httpCfg.CompressionLevel}
	}

	return httpx.NewRouter(rs), limiter
}

func startServer(logger *slog.Logger, handler http.Handler, addr string) *http.Server {
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Limiter *httpx.LoginRateLimiter
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server within 10 seconds.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(cfg.Context, httpShutdownTimeout)
	defer cancel()

	err := cfg.Server.Shutdown(shutdownCtx)
	if cfg.Limiter != nil {
		cfg.Limiter.Stop()
	}
	if err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}
