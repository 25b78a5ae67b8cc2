package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	apperrors "github.com/target/tempguard-api/internal/errors"
)

// CleanupWindows lists the retention windows, in days, an administrator may pick.
var CleanupWindows = []int{15, 30, 60, 90, 180}

// RecordPurger is the destructive side of RecordService.
type RecordPurger interface {
	BulkDeleteOlderThan(ctx context.Context, days int) (int64, error)
	BulkDeleteAll(ctx context.Context) (int64, error)
}

// MaintenanceResult reports how many records a maintenance action removed.
type MaintenanceResult struct {
	Count   int64  `json:"count"`
	Message string `json:"message"`
}

// MaintenanceServiceOptions groups dependencies for MaintenanceService.
type MaintenanceServiceOptions struct {
	Records  RecordPurger // Required
	Password string       // Optional: confirmation secret for destructive actions
	Logger   *slog.Logger
}

// MaintenanceService runs the admin cleanup and reset actions.
type MaintenanceService struct {
	records  RecordPurger
	password []byte
	logger   *slog.Logger
}

// NewMaintenanceService constructs a new MaintenanceService.
func NewMaintenanceService(opts MaintenanceServiceOptions) (*MaintenanceService, error) {
	if opts.Records == nil {
		return nil, errors.New("RecordPurger is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &MaintenanceService{
		records:  opts.Records,
		password: []byte(opts.Password),
		logger:   opts.Logger.With("component", "maintenance_service"),
	}, nil
}

// RequiresConfirmation reports whether a maintenance password is configured.
func (s *MaintenanceService) RequiresConfirmation() bool { return len(s.password) > 0 }

// Cleanup deletes records older than days.
func (s *MaintenanceService) Cleanup(ctx context.Context, days int, confirmation string) (*MaintenanceResult, error) {
	if !slices.Contains(CleanupWindows, days) {
		return nil, apperrors.ValidationField("days", "days must be one of 15, 30, 60, 90 or 180")
	}
	if err := s.confirm(confirmation); err != nil {
		return nil, err
	}

	n, err := s.records.BulkDeleteOlderThan(ctx, days)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "maintenance cleanup", "days", days, "count", n)
	if n == 0 {
		return &MaintenanceResult{Message: "Nenhum registro antigo para limpar."}, nil
	}
	return &MaintenanceResult{
		Count:   n,
		Message: fmt.Sprintf("Limpeza concluída. %d registros foram removidos.", n),
	}, nil
}

// Reset deletes every record.
func (s *MaintenanceService) Reset(ctx context.Context, confirmation string) (*MaintenanceResult, error) {
	if err := s.confirm(confirmation); err != nil {
		return nil, err
	}

	n, err := s.records.BulkDeleteAll(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.WarnContext(ctx, "maintenance reset", "count", n)
	if n == 0 {
		return &MaintenanceResult{Message: "Nenhum registro para apagar."}, nil
	}
	return &MaintenanceResult{
		Count:   n,
		Message: fmt.Sprintf("Reset completo! %d registros foram removidos.", n),
	}, nil
}

func (s *MaintenanceService) confirm(confirmation string) error {
	if len(s.password) == 0 {
		return nil
	}
	if subtle.ConstantTimeCompare(s.password, []byte(confirmation)) != 1 {
		return apperrors.Forbidden("senha de confirmação incorreta")
	}
	return nil
}
