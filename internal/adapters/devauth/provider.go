package devauth

// Package devauth provides a simple, config-driven IdentityProvider for local development.

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	"github.com/target/tempguard-api/internal/ports"
)

// Config controls the dev auth provider behavior.
// UserID, Email and Password are required.
type Config struct {
	UserID          string
	Email           string
	Name            string
	Password        string
	Groups          []string
	SessionDuration time.Duration // default 8h when zero
	Events          ports.IdentityEventBus
}

// Provider implements ports.IdentityProvider for local development.
// It accepts exactly one configured identity, by email or by the local part of the email.
type Provider struct {
	identity        domainauth.Identity
	password        string
	sessionDuration time.Duration
	events          ports.IdentityEventBus
}

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.UserID == "" {
		return nil, errors.New("dev auth: UserID is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	if cfg.Password == "" {
		return nil, errors.New("dev auth: Password is required")
	}
	dur := cfg.SessionDuration
	if dur == 0 {
		dur = 8 * time.Hour
	}
	return &Provider{
		identity: domainauth.Identity{
			UserID:      cfg.UserID,
			Email:       strings.ToLower(cfg.Email),
			DisplayName: cfg.Name,
			Groups:      append([]string(nil), cfg.Groups...),
		},
		password:        cfg.Password,
		sessionDuration: dur,
		events:          cfg.Events,
	}, nil
}

// SignIn returns the dev identity when the login names it and the password matches.
func (p *Provider) SignIn(ctx context.Context, creds domainauth.Credentials) (domainauth.Identity, error) {
	login := strings.ToLower(strings.TrimSpace(creds.Login))
	local, _, _ := strings.Cut(p.identity.Email, "@")
	if login != p.identity.Email && login != local {
		return domainauth.Identity{}, ports.ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(creds.Password), []byte(p.password)) != 1 {
		return domainauth.Identity{}, ports.ErrInvalidCredentials
	}
	id := p.identity
	id.Groups = append([]string(nil), p.identity.Groups...)
	id.ExpiresAt = time.Now().Add(p.sessionDuration)
	p.publish(ctx, domainauth.IdentityEvent{Kind: domainauth.IdentitySignedIn, UserID: id.UserID, Email: id.Email})
	return id, nil
}

// SignOut only announces the sign-out; the dev provider keeps no sessions of its own.
func (p *Provider) SignOut(ctx context.Context, userID, sessionID string) error {
	p.publish(ctx, domainauth.IdentityEvent{Kind: domainauth.IdentitySignedOut, UserID: userID, SessionID: sessionID})
	return nil
}

func (p *Provider) publish(ctx context.Context, ev domainauth.IdentityEvent) {
	if p.events == nil {
		return
	}
	ev.At = time.Now()
	_ = p.events.Publish(ctx, ev)
}
