package oidc

// Package oidc signs users in against an external OIDC provider using the resource-owner password grant.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	"github.com/target/tempguard-api/internal/ports"
	"golang.org/x/oauth2"
)

// ErrProviderUnavailable wraps transport failures talking to the identity provider.
var ErrProviderUnavailable = errors.New("identity provider unavailable")

// Provider implements ports.IdentityProvider using OIDC/OAuth2.
type Provider struct {
	config     *oauth2.Config
	httpClient *http.Client
	events     ports.IdentityEventBus
	logger     *slog.Logger

	// go-oidc provider and verifier
	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
}

var (
	_ ports.IdentityProvider = (*Provider)(nil)
	_ ports.IdentityAdmin    = (*Provider)(nil)
)

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	DiscoveryURL string
	HTTPClient   *http.Client // Optional, defaults to a client with a 30s timeout
	Events       ports.IdentityEventBus
	Logger       *slog.Logger
}

// NewProvider discovers the issuer and creates a new OIDC provider.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Provider{
		httpClient: httpClient,
		events:     config.Events,
		logger:     logger.With("component", "oidc"),
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	p.oidcProvider = op
	p.verifier = op.Verifier(&gooidc.Config{ClientID: config.ClientID})

	scopes := strings.Fields(config.Scope)
	if !slices.Contains(scopes, gooidc.ScopeOpenID) {
		scopes = append([]string{gooidc.ScopeOpenID}, scopes...)
	}
	p.config = &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Scopes:       scopes,
		Endpoint:     op.Endpoint(),
	}
	return p, nil
}

// SignIn exchanges the credentials for tokens and maps the verified id_token to an Identity.
// Rejected credentials yield ports.ErrInvalidCredentials; transport failures yield ErrProviderUnavailable.
func (p *Provider) SignIn(ctx context.Context, creds domainauth.Credentials) (domainauth.Identity, error) {
	login := strings.TrimSpace(creds.Login)
	if login == "" || creds.Password == "" {
		return domainauth.Identity{}, ports.ErrInvalidCredentials
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.config.PasswordCredentialsToken(ctx, login, creds.Password)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil &&
			(rerr.Response.StatusCode == http.StatusBadRequest || rerr.Response.StatusCode == http.StatusUnauthorized) {
			return domainauth.Identity{}, ports.ErrInvalidCredentials
		}
		return domainauth.Identity{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	fields, expiry, err := p.extractFromIDToken(ctx, token)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("extract id_token: %w", err)
	}
	if fields.email == "" || fields.userID == "" {
		if fillErr := p.fillFromUserInfo(ctx, token, &fields); fillErr != nil {
			return domainauth.Identity{}, fmt.Errorf("get user info: %w", fillErr)
		}
	}
	if fields.userID == "" {
		return domainauth.Identity{}, errors.New("identity provider returned no subject")
	}

	id := domainauth.Identity{
		UserID:      fields.userID,
		Email:       strings.ToLower(fields.email),
		DisplayName: fields.name,
		Groups:      fields.groups,
		ExpiresAt:   expiry,
	}
	p.publish(ctx, domainauth.IdentityEvent{Kind: domainauth.IdentitySignedIn, UserID: id.UserID, Email: id.Email})
	return id, nil
}

// SignOut announces the sign-out. Password-grant tokens are not retained, so there is nothing to revoke upstream.
func (p *Provider) SignOut(ctx context.Context, userID, sessionID string) error {
	p.publish(ctx, domainauth.IdentityEvent{Kind: domainauth.IdentitySignedOut, UserID: userID, SessionID: sessionID})
	return nil
}

// CreateIdentity is not offered by external providers.
func (p *Provider) CreateIdentity(context.Context, string, string, string) (domainauth.Identity, error) {
	return domainauth.Identity{}, ports.ErrIdentityAdminUnsupported
}

// DeleteIdentity is not offered by external providers.
func (p *Provider) DeleteIdentity(context.Context, string) error {
	return ports.ErrIdentityAdminUnsupported
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

type idFields struct {
	userID string
	email  string
	name   string
	groups []string
}

func (p *Provider) extractFromIDToken(ctx context.Context, tok *oauth2.Token) (idFields, time.Time, error) {
	rawID, err := getIDTokenFromToken(tok)
	if err != nil {
		return idFields{}, time.Time{}, err
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return idFields{}, time.Time{}, fmt.Errorf("verify id_token: %w", err)
	}
	var claims idTokenClaims
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return idFields{}, time.Time{}, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	expiry := idTok.Expiry
	if !tok.Expiry.IsZero() && (expiry.IsZero() || tok.Expiry.Before(expiry)) {
		expiry = tok.Expiry
	}
	return mapIDTokenClaims(claims), expiry, nil
}

func (p *Provider) fillFromUserInfo(ctx context.Context, tok *oauth2.Token, f *idFields) error {
	ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		return fmt.Errorf("fetch user info: %w", err)
	}
	var claims idTokenClaims
	if claimsErr := ui.Claims(&claims); claimsErr != nil {
		return fmt.Errorf("decode user info: %w", claimsErr)
	}
	fillMissing(f, mapIDTokenClaims(claims))
	return nil
}

// idTokenClaims covers standard OIDC claims plus the AD/ADFS shapes some providers emit.
type idTokenClaims struct {
	Sub            string   `json:"sub"`
	Email          string   `json:"email"`
	Name           string   `json:"name"`
	Groups         []string `json:"groups"`
	SamAccountName string   `json:"samaccountname"`
	Mail           string   `json:"mail"`
	DisplayName    string   `json:"displayname"`
	MemberOf       []string `json:"memberof"`
}

// mapIDTokenClaims prefers standard claims and falls back to AD/ADFS ones.
func mapIDTokenClaims(c idTokenClaims) idFields {
	f := idFields{
		userID: firstNonEmpty(c.Sub, c.SamAccountName),
		email:  firstNonEmpty(c.Email, c.Mail),
		name:   firstNonEmpty(c.Name, c.DisplayName),
		groups: c.Groups,
	}
	if len(f.groups) == 0 {
		f.groups = c.MemberOf
	}
	return f
}

func fillMissing(f *idFields, from idFields) {
	if f.userID == "" {
		f.userID = from.userID
	}
	if f.email == "" {
		f.email = from.email
	}
	if f.name == "" {
		f.name = from.name
	}
	if len(f.groups) == 0 {
		f.groups = from.groups
	}
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw := tok.Extra("id_token")
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
