package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	"github.com/target/tempguard-api/internal/domain/model"
)

// MetricsSink is the metrics surface used by the router.
type MetricsSink interface {
	RequestObserver
	LoginObserver
}

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Sessions    SessionService
	Records     RecordServiceInterface
	Lookup      ProductLookuper // optional
	Locations   *model.LocationCatalog
	Stats       StatsServiceInterface
	Users       UserServiceInterface
	Maintenance MaintenanceServiceInterface

	// Readiness maps dependency names to /readyz probes.
	Readiness map[string]HealthChecker
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	Metrics        MetricsSink // optional
	// LoginLimiter throttles POST /auth/login when set.
	LoginLimiter *LoginRateLimiter

	CookieDomain string
	Compression  *CompressionConfig // nil disables gzip
	Logger       *slog.Logger
}

// NewRouter creates the API router wrapped in the shared middleware stack.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("HEAD /healthz", healthHandler)
	mux.Handle("GET /readyz", readyHandler(services.Readiness))
	if services.MetricsHandler != nil {
		mux.Handle("GET /metrics", services.MetricsHandler)
	}

	authHandlers := &AuthHandlers{
		Svc:          services.Sessions,
		CookieDomain: services.CookieDomain,
		Logger:       logger.With("component", "auth_handlers"),
	}
	if services.Metrics != nil {
		authHandlers.Observer = services.Metrics
	}
	registerAuthRoutes(mux, authHandlers, services.LoginLimiter)

	protect := func(h http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler {
		return Chain(h, append([]func(http.Handler) http.Handler{RequireAuth(services.Sessions)}, mws...)...)
	}

	records := &RecordHandlers{Svc: services.Records, Lookup: services.Lookup, Locations: services.Locations}
	mux.Handle("GET /api/locations", protect(records.ListLocations, RequirePermission(domainauth.PermRegister)))
	mux.Handle("POST /api/records", protect(records.Create,
		RequirePermission(domainauth.PermRecordsForm, domainauth.PermRegister)))
	mux.Handle("GET /api/records", protect(records.List, RequirePermission(domainauth.PermRecordsView)))
	mux.Handle("DELETE /api/records/{id}", protect(records.Delete, RequirePermission(domainauth.PermDeleteRecords)))
	mux.Handle("GET /api/products/{code}/lookup", protect(records.LookupProduct,
		RequirePermission(domainauth.PermRegister)))

	admin := &AdminHandlers{Stats: services.Stats, Users: services.Users, Maintenance: services.Maintenance}
	mux.Handle("GET /api/stats", protect(admin.StatsSummary, RequirePermission(domainauth.PermCharts)))

	adminOnly := func(perm domainauth.Permission) []func(http.Handler) http.Handler {
		return []func(http.Handler) http.Handler{RequireRole(domainauth.RoleAdmin), RequirePermission(perm)}
	}
	mux.Handle("GET /api/users", protect(admin.ListUsers, adminOnly(domainauth.PermUsers)...))
	mux.Handle("POST /api/users", protect(admin.CreateUser, adminOnly(domainauth.PermUsers)...))
	mux.Handle("DELETE /api/users/{id}", protect(admin.DeleteUser, adminOnly(domainauth.PermUsers)...))
	mux.Handle("POST /api/maintenance/cleanup", protect(admin.Cleanup, adminOnly(domainauth.PermSettings)...))
	mux.Handle("POST /api/maintenance/reset", protect(admin.Reset, adminOnly(domainauth.PermSettings)...))

	mws := []func(http.Handler) http.Handler{
		Recover(logger),
		Logging(logger.With("component", "http")),
	}
	if services.Compression != nil {
		cc := *services.Compression
		if cc.Logger == nil {
			cc.Logger = logger
		}
		mws = append(mws, Compression(cc))
	}
	mws = append(mws, CSRFProtection(CSRFConfig{CookieDomain: services.CookieDomain}))
	if services.Metrics != nil {
		// Metrics reads r.Pattern and so must wrap the mux directly.
		mws = append(mws, Metrics(services.Metrics))
	}
	return Chain(mux, mws...)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, limiter *LoginRateLimiter) {
	var login http.Handler = http.HandlerFunc(h.Login)
	if limiter != nil {
		login = limiter.Middleware(login)
	}
	mux.Handle("POST /auth/login", login)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
	mux.HandleFunc("GET /login", h.Entry)
}
