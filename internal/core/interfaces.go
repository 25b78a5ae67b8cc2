package core

import (
	"context"
	"time"

	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	"github.com/target/tempguard-api/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// RecordQuery groups the resolved filter for RecordRepository.Query.
// From is inclusive and To is exclusive.
type RecordQuery struct {
	From        time.Time
	To          time.Time
	Location    string
	Shift       model.Shift
	MarketType  model.MarketType
	ProductCode string
	Limit       int
	// Ascending orders by timestamp ascending instead of descending.
	Ascending bool
}

// RecordRepository defines the interface for temperature record data operations.
type RecordRepository interface {
	Create(ctx context.Context, rec *model.TemperatureRecord) (*model.TemperatureRecord, error)
	GetByID(ctx context.Context, id string) (*model.TemperatureRecord, error)
	Query(ctx context.Context, q RecordQuery) ([]*model.TemperatureRecord, error)
	// Delete reports whether a row was removed; unknown ids are not an error.
	Delete(ctx context.Context, id string) (bool, error)
	// DeleteOlderThan removes records with timestamp < cutoff in one transaction.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// DeleteAll removes every record in one transaction and returns the prior count.
	DeleteAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// ProfileListOptions controls profile listing.
type ProfileListOptions struct {
	ExcludeRoles []domainauth.Role
}

// ProfileRepository defines the interface for user profile data operations.
type ProfileRepository interface {
	// GetProfile returns nil, nil when no profile exists for id.
	GetProfile(ctx context.Context, id string) (*domainauth.Profile, error)
	// CreateProfileIfAbsent inserts p unless a profile with the same id exists; it reports whether it wrote.
	CreateProfileIfAbsent(ctx context.Context, p domainauth.Profile) (bool, error)
	// CreateProfile inserts p and fails with a conflict when the id, email or matricula is taken.
	CreateProfile(ctx context.Context, p domainauth.Profile) (*domainauth.Profile, error)
	ListProfiles(ctx context.Context, opts ProfileListOptions) ([]*domainauth.Profile, error)
	DeleteProfile(ctx context.Context, id string) (bool, error)
}

// CredentialRepository defines the interface for local sign-in credentials.
type CredentialRepository interface {
	CreateCredential(ctx context.Context, c model.Credential) error
	// GetCredentialByEmail returns nil, nil when the email is unknown.
	GetCredentialByEmail(ctx context.Context, email string) (*model.Credential, error)
	DeleteCredential(ctx context.Context, userID string) (bool, error)
}
