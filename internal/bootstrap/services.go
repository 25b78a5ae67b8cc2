package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/target/tempguard-api/config"
	"github.com/target/tempguard-api/internal/data"
	"github.com/target/tempguard-api/internal/domain/model"
	httpx "github.com/target/tempguard-api/internal/http"
	"github.com/target/tempguard-api/internal/observability/metrics"
	"github.com/target/tempguard-api/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Auth        *AuthRuntime
	Sessions    *service.SessionManager
	Records     *service.RecordService
	Lookup      *service.LookupService
	Locations   *model.LocationCatalog
	Stats       *service.StatsService
	Users       *service.UserAdminService
	Maintenance *service.MaintenanceService
	// Retention is nil unless the retention service is enabled with RETENTION_DAYS > 0.
	Retention *service.RetentionService
	Readiness map[string]httpx.HealthChecker
	Metrics   *metrics.Collector
	Registry  *prometheus.Registry
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires repositories, adapters and domain services.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	loc, err := time.LoadLocation(cfg.FacilityTimezone)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("load facility timezone %q: %w", cfg.FacilityTimezone, err)
	}
	locations, err := model.LoadLocations(cfg.LocationsFile)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("load locations: %w", err)
	}

	authRuntime, err := BuildAuth(ctx, AuthConfig{
		Auth:        cfg.Auth,
		DB:          deps.DB,
		RedisClient: deps.RedisClient,
		Logger:      logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	sanitizer := model.NewTextSanitizer()
	records, err := service.NewRecordService(service.RecordServiceOptions{
		Repo:      data.NewRecordRepo(deps.DB),
		Location:  loc,
		Sanitizer: sanitizer,
		Locations: locations,
		Logger:    logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create record service: %w", err)
	}

	stats, err := service.NewStatsService(records)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create stats service: %w", err)
	}

	lookup, err := BuildLookupService(ctx, LookupConfig{
		Lookup:      cfg.Lookup,
		Cache:       cfg.Cache,
		RedisClient: deps.RedisClient,
		Metrics:     collector,
		Logger:      logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	users, err := service.NewUserAdminService(service.UserAdminServiceOptions{
		Profiles:   authRuntime.Profiles,
		Identities: authRuntime.Identities,
		Sessions:   authRuntime.Sessions,
		Sanitizer:  sanitizer,
		Logger:     logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create user admin service: %w", err)
	}

	maintenance, err := service.NewMaintenanceService(service.MaintenanceServiceOptions{
		Records:  records,
		Password: cfg.Maintenance.Password,
		Logger:   logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create maintenance service: %w", err)
	}

	var retention *service.RetentionService
	if cfg.IsRetentionEnabled() {
		retention, err = service.NewRetentionService(service.RetentionServiceOptions{
			Records: records,
			Config:  cfg.Retention,
			Logger:  logger,
			Metrics: collector,
		})
		if err != nil {
			return ServiceContainer{}, fmt.Errorf("create retention service: %w", err)
		}
	}

	readiness := map[string]httpx.HealthChecker{}
	if deps.DB != nil {
		readiness["postgres"] = httpx.HealthCheckFunc(PingDB(deps.DB))
	}
	if deps.RedisClient != nil {
		readiness["redis"] = httpx.HealthCheckFunc(PingRedis(deps.RedisClient))
	}

	return ServiceContainer{
		Auth:        authRuntime,
		Sessions:    authRuntime.Sessions,
		Records:     records,
		Lookup:      lookup,
		Locations:   locations,
		Stats:       stats,
		Users:       users,
		Maintenance: maintenance,
		Retention:   retention,
		Readiness:   readiness,
		Metrics:     collector,
		Registry:    registry,
	}, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for background services to stop.
	shutdownWaitTimeout = 15 * time.Second
	httpShutdownTimeout = 10 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error",
					"service", descriptor.name, "error", errMsg)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))
	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}
		handles = append(handles, backgroundServiceHandle{mode: svc.mode, name: svc.name, done: done})
	}
	return handles
}

func newRetentionBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeRetention,
		name: "retention runner",
		start: func(ctx context.Context) error {
			runner := deps.cfg.Services.Retention
			if runner == nil {
				deps.logger.WarnContext(ctx, "retention service enabled but RETENTION_DAYS is 0; nothing to do")
				return nil
			}
			return runner.Run(ctx)
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newRetentionBackgroundService(deps),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// It blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config with AppConfig is required")
	}
	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	deps := &serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	}

	if cfg.Services.Sessions != nil {
		cfg.Services.Sessions.Start(serviceCtx)
		defer cfg.Services.Sessions.Close()
	}

	var (
		server  *http.Server
		limiter *httpx.LoginRateLimiter
	)
	if enabledServices[config.ServiceModeHTTP] {
		server, limiter = StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})
	}
	backgrounds := startBackgroundServices(deps, buildBackgroundServices(deps))

	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  server,
		limiter:     limiter,
		logger:      logger,
		backgrounds: backgrounds,
	})
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	return errorChannelCapacity(enabled) + 1
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	limiter     *httpx.LoginRateLimiter
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop stops the HTTP server, then waits for background services.
func gracefulStop(cfg shutdownConfig) error {
	var httpErr error
	if cfg.httpServer != nil {
		// serviceCtx is already canceled; shutdown gets its own deadline.
		httpErr = ShutdownHTTPServer(ShutdownConfig{
			Context: context.WithoutCancel(cfg.ctx),
			Server:  cfg.httpServer,
			Limiter: cfg.limiter,
			Logger:  cfg.logger,
		})
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}
	return httpErr
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
