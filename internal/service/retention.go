package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/target/tempguard-api/config"
	obserrors "github.com/target/tempguard-api/internal/observability/errors"
)

// Retention run outcomes reported to RetentionMetrics.
const (
	RetentionResultSuccess = "success"
	RetentionResultNoop    = "noop"
	RetentionResultError   = "error"
)

// RetentionMetrics receives one observation per retention pass.
type RetentionMetrics interface {
	ObserveRetention(result, errorClass string, deleted int64, elapsed time.Duration)
}

// RetentionServiceOptions groups dependencies for RetentionService.
type RetentionServiceOptions struct {
	Records RecordPurger           // Required
	Config  config.RetentionConfig // Required: Days must be positive
	Logger  *slog.Logger
	Metrics RetentionMetrics // Optional
}

// RetentionService periodically deletes records older than the retention window.
type RetentionService struct {
	records RecordPurger
	config  config.RetentionConfig
	logger  *slog.Logger
	metrics RetentionMetrics
}

// NewRetentionService constructs a new RetentionService.
func NewRetentionService(opts RetentionServiceOptions) (*RetentionService, error) {
	if opts.Records == nil {
		return nil, errors.New("RecordPurger is required")
	}
	if opts.Config.Days < 1 {
		return nil, errors.New("retention days must be positive")
	}
	if opts.Config.Interval <= 0 {
		return nil, errors.New("retention interval must be positive")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With("component", "retention_service")
	logger.Debug("RetentionService initialized", "interval", opts.Config.Interval, "days", opts.Config.Days)

	return &RetentionService{
		records: opts.Records,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Run starts the retention loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *RetentionService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting retention service", "interval", s.config.Interval, "days", s.config.Days)

	// Instances started together should not purge in lockstep.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logPassError(ctx, err, "initial retention pass")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "retention service stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logPassError(ctx, err, "retention pass")
			}
		}
	}
}

// RunOnce performs a single retention pass and returns how many records it removed.
func (s *RetentionService) RunOnce(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.records.BulkDeleteOlderThan(ctx, s.config.Days)
	s.observe(n, err, time.Since(start))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "retention removed old records", "count", n, "days", s.config.Days)
	}
	return n, nil
}

// waitWithJitter sleeps a random delay up to 10% of the interval.
func (s *RetentionService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (s *RetentionService) observe(n int64, err error, elapsed time.Duration) {
	if s.metrics == nil || isContextCancellation(err) {
		return
	}
	result := RetentionResultSuccess
	switch {
	case err != nil:
		result = RetentionResultError
	case n == 0:
		result = RetentionResultNoop
	}
	s.metrics.ObserveRetention(result, obserrors.Classify(err), n, elapsed)
}

func (s *RetentionService) logPassError(ctx context.Context, err error, label string) {
	if isContextCancellation(err) {
		s.logger.DebugContext(ctx, label+" cancelled by context", "error", err)
		return
	}
	s.logger.ErrorContext(ctx, label+" failed", "error", err, "error_class", obserrors.Classify(err))
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
