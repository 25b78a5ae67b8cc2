package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the identity provider backing sign-in.
type AuthMode string

const (
	// AuthModeLocal verifies bcrypt credentials stored in Postgres.
	AuthModeLocal AuthMode = "local"
	// AuthModeOIDC exchanges credentials with an external OIDC provider (password grant).
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "local", "oidc", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: local, oidc, mock)", v)
	}
}

// OAuthConfig contains OIDC configuration for the password-grant provider.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"tempguard"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:""`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID   string `env:"USER_ID"  envDefault:"dev-user"`
	Email    string `env:"EMAIL"    envDefault:"dev@example.com"`
	Name     string `env:"NAME"     envDefault:"Dev User"`
	Password string `env:"PASSWORD" envDefault:"dev"`
}

// SessionConfig holds the role-dependent session lifetime policy.
type SessionConfig struct {
	AdminMaxAge time.Duration `env:"ADMIN_MAX_AGE" envDefault:"12h"`
	UserMaxAge  time.Duration `env:"USER_MAX_AGE"  envDefault:"8h"`
}

// LoginRateConfig throttles POST /auth/login per client address.
type LoginRateConfig struct {
	PerMinute float64 `env:"RATE_PER_MINUTE" envDefault:"10"`
	Burst     int     `env:"BURST"           envDefault:"5"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"local"`

	// OAuth configuration (used when Mode=oidc).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// AdminEmail is the only address that gets an administrator profile provisioned on first sign-in.
	AdminEmail string `env:"ADMIN_EMAIL,required"`

	// AdminGroup optionally maps an OIDC group claim to the admin role when no profile exists yet.
	AdminGroup string `env:"ADMIN_GROUP"`

	// IdentityEvents selects the identity event bus: "memory" for a single instance, "redis" to fan out.
	IdentityEvents string `env:"IDENTITY_EVENTS" envDefault:"memory"`

	Session SessionConfig   `envPrefix:"SESSION_"`
	Login   LoginRateConfig `envPrefix:"LOGIN_"`
}

// Sanitize normalises auth values and clamps policy durations.
func (a *AuthConfig) Sanitize() {
	a.AdminEmail = strings.ToLower(strings.TrimSpace(a.AdminEmail))
	a.IdentityEvents = strings.ToLower(strings.TrimSpace(a.IdentityEvents))
	if a.IdentityEvents == "" {
		a.IdentityEvents = "memory"
	}
	if a.Session.AdminMaxAge < 5*time.Minute {
		a.Session.AdminMaxAge = 5 * time.Minute
	}
	if a.Session.UserMaxAge < 5*time.Minute {
		a.Session.UserMaxAge = 5 * time.Minute
	}
	if a.Login.PerMinute <= 0 {
		a.Login.PerMinute = 10
	}
	if a.Login.Burst < 1 {
		a.Login.Burst = 1
	}
}

// Validate checks mode-specific requirements.
func (a *AuthConfig) Validate() error {
	if a.AdminEmail == "" || !strings.Contains(a.AdminEmail, "@") {
		return errors.New("ADMIN_EMAIL must be a valid email address")
	}
	switch a.IdentityEvents {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid IDENTITY_EVENTS: %q (valid options: memory, redis)", a.IdentityEvents)
	}
	if a.Mode == AuthModeOIDC && strings.TrimSpace(a.OAuth.DiscoveryURL) == "" {
		return errors.New("OAUTH_DISCOVERY_URL is required when AUTH_MODE=oidc")
	}
	return nil
}
