package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/tempguard-api/config"
	"github.com/target/tempguard-api/internal/adapters/genai"
	"github.com/target/tempguard-api/internal/adapters/httplookup"
	"github.com/target/tempguard-api/internal/core"
	"github.com/target/tempguard-api/internal/data"
	"github.com/target/tempguard-api/internal/ports"
	"github.com/target/tempguard-api/internal/service"
)

// LookupConfig contains configuration for the product lookup service.
type LookupConfig struct {
	Lookup      config.LookupConfig
	Cache       config.CacheConfig
	RedisClient redis.UniversalClient // Optional: enables the suggestion cache
	Metrics     service.LookupMetrics // Optional
	Logger      *slog.Logger
}

// BuildLookupService assembles the LookupService for LOOKUP_MODE. Mode off yields a service
// that always returns no suggestion.
func BuildLookupService(ctx context.Context, cfg LookupConfig) (*service.LookupService, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	backend, err := buildLookupBackend(ctx, cfg.Lookup)
	if err != nil {
		return nil, err
	}

	var cache *core.LookupCache
	if backend != nil && cfg.RedisClient != nil && cfg.Cache.LookupTTL > 0 {
		cache = core.NewLookupCache(data.NewRedisCacheRepo(cfg.RedisClient), cfg.Cache.LookupTTL)
	}

	logger.Info("product lookup configured",
		"mode", cfg.Lookup.Mode,
		"cache", cache != nil,
		"min_confidence", cfg.Lookup.MinConfidence,
	)
	return service.NewLookupService(service.LookupServiceOptions{
		Backend:       backend,
		Cache:         cache,
		Timeout:       cfg.Lookup.Timeout,
		MinConfidence: cfg.Lookup.MinConfidence,
		Logger:        logger,
		Metrics:       cfg.Metrics,
	}), nil
}

//nolint:ireturn // the backend is chosen by configuration.
func buildLookupBackend(ctx context.Context, cfg config.LookupConfig) (ports.ProductLookup, error) {
	switch cfg.Mode {
	case config.LookupModeGenAI:
		l, err := genai.New(ctx, genai.Config{APIKey: cfg.APIKey, Model: cfg.Model})
		if err != nil {
			return nil, fmt.Errorf("create genai product lookup: %w", err)
		}
		return l, nil
	case config.LookupModeHTTP:
		l, err := httplookup.New(httplookup.Config{
			URL:        cfg.HTTPURL,
			Headers:    cfg.HTTPHeaders,
			ResultPath: cfg.HTTPResultPath,
			Client:     &http.Client{Timeout: cfg.Timeout + 2*time.Second},
		})
		if err != nil {
			return nil, fmt.Errorf("create http product lookup: %w", err)
		}
		return l, nil
	default:
		return nil, nil
	}
}
