// Package localauth verifies bcrypt credentials stored in Postgres and administers local identities.
package localauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/target/tempguard-api/internal/core"
	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	"github.com/target/tempguard-api/internal/domain/model"
	apperrors "github.com/target/tempguard-api/internal/errors"
	"github.com/target/tempguard-api/internal/ports"
	"golang.org/x/crypto/bcrypt"
)

// Config configures the local identity provider.
type Config struct {
	Credentials core.CredentialRepository
	Events      ports.IdentityEventBus
	// Cost is the bcrypt cost; zero uses bcrypt.DefaultCost.
	Cost int
	// IdentityTTL sets Identity.ExpiresAt on sign-in; zero leaves expiry to the session policy.
	IdentityTTL time.Duration
	Logger      *slog.Logger
}

// Provider implements ports.IdentityProvider and ports.IdentityAdmin.
type Provider struct {
	creds  core.CredentialRepository
	events ports.IdentityEventBus
	cost   int
	ttl    time.Duration
	logger *slog.Logger

	// dummyHash keeps unknown-email sign-ins as slow as wrong-password ones.
	dummyHash []byte
}

var (
	_ ports.IdentityProvider = (*Provider)(nil)
	_ ports.IdentityAdmin    = (*Provider)(nil)
)

// NewProvider constructs a local provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Credentials == nil {
		return nil, errors.New("localauth: credential repository is required")
	}
	cost := cfg.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("localauth: bcrypt cost %d out of range", cost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cost)
	if err != nil {
		return nil, fmt.Errorf("localauth: generate dummy hash: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		creds:     cfg.Credentials,
		events:    cfg.Events,
		cost:      cost,
		ttl:       cfg.IdentityTTL,
		logger:    logger.With("component", "localauth"),
		dummyHash: dummy,
	}, nil
}

// SignIn accepts an email or a matricula and checks the password against the stored bcrypt hash.
func (p *Provider) SignIn(ctx context.Context, creds domainauth.Credentials) (domainauth.Identity, error) {
	if strings.TrimSpace(creds.Login) == "" || creds.Password == "" {
		return domainauth.Identity{}, ports.ErrInvalidCredentials
	}
	email := model.LoginEmail(creds.Login)
	cred, err := p.creds.GetCredentialByEmail(ctx, email)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("load credential: %w", err)
	}
	if cred == nil {
		_ = bcrypt.CompareHashAndPassword(p.dummyHash, []byte(creds.Password))
		return domainauth.Identity{}, ports.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(creds.Password)); err != nil {
		return domainauth.Identity{}, ports.ErrInvalidCredentials
	}

	id := domainauth.Identity{
		UserID:      cred.UserID,
		Email:       cred.Email,
		DisplayName: cred.DisplayName,
	}
	if p.ttl > 0 {
		id.ExpiresAt = time.Now().Add(p.ttl)
	}
	p.publish(ctx, domainauth.IdentityEvent{Kind: domainauth.IdentitySignedIn, UserID: id.UserID, Email: id.Email})
	return id, nil
}

// SignOut announces the sign-out. Local identities carry no provider-side session.
func (p *Provider) SignOut(ctx context.Context, userID, sessionID string) error {
	p.publish(ctx, domainauth.IdentityEvent{Kind: domainauth.IdentitySignedOut, UserID: userID, SessionID: sessionID})
	return nil
}

// CreateIdentity hashes password and stores a new credential for email.
func (p *Provider) CreateIdentity(ctx context.Context, email, password, displayName string) (domainauth.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domainauth.Identity{}, apperrors.ValidationField("email", "email is required")
	}
	if utf8.RuneCountInString(password) < model.MinPasswordLength {
		return domainauth.Identity{}, apperrors.ValidationField("password", "password must have at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("hash password: %w", err)
	}
	cred := model.Credential{
		UserID:       uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
	}
	if err := p.creds.CreateCredential(ctx, cred); err != nil {
		if apperrors.IsConflict(err) {
			return domainauth.Identity{}, ports.ErrIdentityExists
		}
		return domainauth.Identity{}, fmt.Errorf("store credential: %w", err)
	}
	p.logger.InfoContext(ctx, "identity created", "user_id", cred.UserID)
	return domainauth.Identity{UserID: cred.UserID, Email: email, DisplayName: displayName}, nil
}

// DeleteIdentity removes the credential and announces the deletion. Unknown ids are not an error.
func (p *Provider) DeleteIdentity(ctx context.Context, userID string) error {
	deleted, err := p.creds.DeleteCredential(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if deleted {
		p.logger.InfoContext(ctx, "identity deleted", "user_id", userID)
	}
	p.publish(ctx, domainauth.IdentityEvent{Kind: domainauth.IdentityDeleted, UserID: userID})
	return nil
}

// HashPassword returns a bcrypt hash using the provider cost.
func (p *Provider) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (p *Provider) publish(ctx context.Context, ev domainauth.IdentityEvent) {
	if p.events == nil {
		return
	}
	ev.At = time.Now()
	if err := p.events.Publish(ctx, ev); err != nil {
		p.logger.WarnContext(ctx, "publish identity event failed", "kind", ev.Kind, "error", err)
	}
}
