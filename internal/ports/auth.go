package ports

// Package ports defines interfaces (hexagonal ports) for identity and session behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"

	domainauth "github.com/target/tempguard-api/internal/domain/auth"
)

var (
	// ErrInvalidCredentials is returned by identity providers when sign-in is rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrIdentityExists is returned by IdentityAdmin when the email is already registered.
	ErrIdentityExists = errors.New("identity already exists")
	// ErrIdentityAdminUnsupported is returned when the provider cannot create or delete identities.
	ErrIdentityAdminUnsupported = errors.New("identity administration not supported by provider")
	// ErrSessionNotFound is returned by session stores for unknown or expired ids.
	ErrSessionNotFound = errors.New("session not found")
)

// IdentityProvider signs users in and out against an external or local identity source.
type IdentityProvider interface {
	// SignIn verifies credentials and returns the authenticated identity.
	SignIn(ctx context.Context, creds domainauth.Credentials) (domainauth.Identity, error)

	// SignOut ends the provider-side session for the user.
	SignOut(ctx context.Context, userID, sessionID string) error
}

// IdentityAdmin creates and deletes identities (service-account capability).
type IdentityAdmin interface {
	CreateIdentity(ctx context.Context, email, password, displayName string) (domainauth.Identity, error)
	DeleteIdentity(ctx context.Context, userID string) error
}

// IdentityEventBus carries identity change notifications between providers and session managers.
type IdentityEventBus interface {
	Publish(ctx context.Context, ev domainauth.IdentityEvent) error

	// Subscribe registers fn and returns a function that unsubscribes it.
	// After the returned function returns, fn is not called again.
	Subscribe(fn func(domainauth.IdentityEvent)) (unsubscribe func())
}

// SessionStore persists and retrieves user sessions and per-user revocation generations.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error

	// Generation returns the user's current revocation generation (0 when never revoked).
	Generation(ctx context.Context, userID string) (int64, error)
	// Revoke increments the user's generation, invalidating every existing session.
	Revoke(ctx context.Context, userID string) (int64, error)
}

// RoleMapper maps provider groups to application roles.
type RoleMapper interface {
	Map(groups []string) domainauth.Role
}

// ProfileStore reads and writes user profiles.
type ProfileStore interface {
	// GetProfile returns nil, nil when no profile exists for id.
	GetProfile(ctx context.Context, id string) (*domainauth.Profile, error)
	// CreateProfileIfAbsent inserts p unless a profile with the same id exists; it reports whether it wrote.
	CreateProfileIfAbsent(ctx context.Context, p domainauth.Profile) (bool, error)
}
