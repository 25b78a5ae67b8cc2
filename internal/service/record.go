package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/tempguard-api/internal/core"
	"github.com/target/tempguard-api/internal/domain/model"
	apperrors "github.com/target/tempguard-api/internal/errors"
)

// RecordServiceOptions groups dependencies for RecordService.
type RecordServiceOptions struct {
	Repo      core.RecordRepository  // Required
	Location  *time.Location         // Facility time zone; defaults to UTC.
	Sanitizer *model.TextSanitizer   // Optional: defaults to the strict policy.
	Locations *model.LocationCatalog // Optional: unknown locations are logged, never rejected.
	Logger    *slog.Logger
	Now       func() time.Time
}

// RecordService registers, lists and removes temperature records.
type RecordService struct {
	repo      core.RecordRepository
	loc       *time.Location
	sanitizer *model.TextSanitizer
	locations *model.LocationCatalog
	logger    *slog.Logger
	now       func() time.Time
}

// NewRecordService constructs a new RecordService.
func NewRecordService(opts RecordServiceOptions) (*RecordService, error) {
	if opts.Repo == nil {
		return nil, errors.New("RecordRepository is required")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Sanitizer == nil {
		opts.Sanitizer = model.NewTextSanitizer()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &RecordService{
		repo:      opts.Repo,
		loc:       opts.Location,
		sanitizer: opts.Sanitizer,
		locations: opts.Locations,
		logger:    opts.Logger.With("component", "record_service"),
		now:       opts.Now,
	}, nil
}

// Location returns the facility time zone.
func (s *RecordService) Location() *time.Location { return s.loc }

// Create validates, sanitizes and persists a record.
func (s *RecordService) Create(ctx context.Context, req model.CreateRecordRequest) (*model.TemperatureRecord, error) {
	req.Normalize()
	s.sanitizer.CleanRecord(&req)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ts, err := req.Timestamp(s.loc)
	if err != nil {
		return nil, err
	}
	if s.locations != nil && !s.locations.Known(req.Location) {
		s.logger.WarnContext(ctx, "record location not in catalogue", "location", req.Location)
	}

	rec := &model.TemperatureRecord{
		Shift:        req.Shift,
		Location:     req.Location,
		ProductCode:  req.ProductCode,
		ProductName:  req.ProductName,
		MarketType:   req.MarketType,
		State:        req.State,
		Temperatures: req.Readings(),
		Timestamp:    ts,
		ManualDate:   req.ManualDate,
		ManualTime:   req.ManualTime,
		CreatedBy:    req.CreatedBy,
	}
	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	return created, nil
}

// Query returns records in the filter's inclusive day range, newest first.
func (s *RecordService) Query(ctx context.Context, f model.RecordFilter) ([]*model.TemperatureRecord, error) {
	return s.query(ctx, f, false)
}

func (s *RecordService) query(ctx context.Context, f model.RecordFilter, ascending bool) ([]*model.TemperatureRecord, error) {
	rng, err := f.Resolve(s.loc)
	if err != nil {
		return nil, err
	}
	recs, err := s.repo.Query(ctx, core.RecordQuery{
		From:        rng.From,
		To:          rng.To,
		Location:    f.Location,
		Shift:       f.Shift,
		MarketType:  f.MarketType,
		ProductCode: f.ProductCode,
		Limit:       f.Limit,
		Ascending:   ascending,
	})
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return recs, nil
}

// Get returns a single record.
func (s *RecordService) Get(ctx context.Context, id string) (*model.TemperatureRecord, error) {
	return s.repo.GetByID(ctx, id)
}

// Delete removes a record; deleting an unknown id succeeds with deleted=false.
func (s *RecordService) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	return deleted, nil
}

// BulkDeleteOlderThan removes records whose timestamp is older than days*24h.
func (s *RecordService) BulkDeleteOlderThan(ctx context.Context, days int) (int64, error) {
	if days < 1 {
		return 0, apperrors.ValidationField("days", "days must be at least 1")
	}
	cutoff := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	n, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete records older than %d days: %w", days, err)
	}
	s.logger.InfoContext(ctx, "deleted old records", "days", days, "count", n)
	return n, nil
}

// BulkDeleteAll removes every record and returns how many existed.
func (s *RecordService) BulkDeleteAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete all records: %w", err)
	}
	s.logger.InfoContext(ctx, "deleted all records", "count", n)
	return n, nil
}

// Count returns the total number of stored records.
func (s *RecordService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}
