package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/target/tempguard-api/internal/core"
	"github.com/target/tempguard-api/internal/domain/model"
	"github.com/target/tempguard-api/internal/ports"
	"golang.org/x/sync/singleflight"
)

// Lookup outcomes reported to LookupMetrics.
const (
	LookupOutcomeCacheHit = "cache_hit"
	LookupOutcomeMatch    = "match"
	LookupOutcomeNoMatch  = "no_match"
	LookupOutcomeError    = "error"
)

// LookupMetrics receives one observation per lookup.
type LookupMetrics interface {
	ObserveLookup(outcome string, elapsed time.Duration)
}

// LookupServiceOptions groups dependencies for LookupService.
type LookupServiceOptions struct {
	Backend       ports.ProductLookup // Optional: nil disables lookups.
	Cache         *core.LookupCache   // Optional
	Timeout       time.Duration
	MinConfidence float64
	Logger        *slog.Logger
	Metrics       LookupMetrics // Optional
}

// LookupService wraps a text model backend with a timeout, caching and normalization.
// Backend failures never reach the caller: they yield a nil suggestion.
type LookupService struct {
	backend       ports.ProductLookup
	cache         *core.LookupCache
	timeout       time.Duration
	minConfidence float64
	logger        *slog.Logger
	metrics       LookupMetrics
	group         singleflight.Group
}

// NewLookupService constructs a new LookupService.
func NewLookupService(opts LookupServiceOptions) *LookupService {
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.MinConfidence <= 0 || opts.MinConfidence > 1 {
		opts.MinConfidence = 0.95
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &LookupService{
		backend:       opts.Backend,
		cache:         opts.Cache,
		timeout:       opts.Timeout,
		minConfidence: opts.MinConfidence,
		logger:        opts.Logger.With("component", "lookup_service"),
		metrics:       opts.Metrics,
	}
}

// Enabled reports whether a backend is configured.
func (s *LookupService) Enabled() bool { return s.backend != nil }

// Lookup returns a normalized suggestion for code, or nil when there is none.
func (s *LookupService) Lookup(ctx context.Context, code string) *model.ProductSuggestion {
	code = model.NormalizeProductCode(code)
	if code == "" || s.backend == nil {
		return nil
	}

	if cached, err := s.cache.Get(ctx, code); err != nil {
		s.logger.WarnContext(ctx, "lookup cache read failed", "error", err)
	} else if cached != nil {
		s.observe(LookupOutcomeCacheHit, 0)
		return cached
	}

	v, _, _ := s.group.Do(code, func() (any, error) {
		return s.fetch(ctx, code), nil
	})
	sug, _ := v.(*model.ProductSuggestion)
	if sug == nil {
		return nil
	}
	out := *sug
	return &out
}

func (s *LookupService) fetch(ctx context.Context, code string) *model.ProductSuggestion {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	start := time.Now()
	sug, err := s.backend.LookupProduct(callCtx, code)
	elapsed := time.Since(start)
	if err != nil {
		s.logger.WarnContext(ctx, "product lookup failed", "code", code, "elapsed", elapsed, "error", err)
		s.observe(LookupOutcomeError, elapsed)
		return nil
	}
	if sug == nil {
		s.observe(LookupOutcomeNoMatch, elapsed)
		return nil
	}
	sug.Normalize(s.minConfidence)
	if sug.ProductName == "" {
		s.observe(LookupOutcomeNoMatch, elapsed)
	} else {
		s.observe(LookupOutcomeMatch, elapsed)
	}

	if putErr := s.cache.Put(callCtx, code, sug); putErr != nil {
		s.logger.WarnContext(ctx, "lookup cache write failed", "error", putErr)
	}
	return sug
}

func (s *LookupService) observe(outcome string, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveLookup(outcome, elapsed)
	}
}
