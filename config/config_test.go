package config

import (
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "single service - http",
			input:    "http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:     "single service - retention",
			input:    "retention",
			expected: map[ServiceMode]bool{ServiceModeRetention: true},
		},
		{
			name:  "services with spaces and duplicates",
			input: " http , retention , http ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:      true,
				ServiceModeRetention: true,
			},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "only spaces and commas",
			input:       " , , ",
			expectError: true,
		},
		{
			name:        "invalid service name",
			input:       "http,rules-engine",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	t.Setenv("AUTH_MODE", "oidc")
	t.Setenv("ADMIN_EMAIL", " CQ.Admin@Example.com ")
	t.Setenv("OAUTH_CLIENT_ID", "tempguard-client")
	t.Setenv("OAUTH_CLIENT_SECRET", "super-secret")
	t.Setenv("OAUTH_DISCOVERY_URL", "https://login.example.com")
	t.Setenv("OAUTH_SCOPE", "openid email")
	t.Setenv("SESSION_ADMIN_MAX_AGE", "24h")
	t.Setenv("SESSION_USER_MAX_AGE", "1m")
	t.Setenv("LOGIN_RATE_PER_MINUTE", "30")
	t.Setenv("LOGIN_BURST", "3")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	expected := AuthConfig{
		Mode: AuthModeOIDC,
		OAuth: OAuthConfig{
			ClientID:     "tempguard-client",
			ClientSecret: "super-secret",
			Scope:        "openid email",
			DiscoveryURL: "https://login.example.com",
		},
		DevAuth: DevAuthConfig{
			UserID:   "dev-user",
			Email:    "dev@example.com",
			Name:     "Dev User",
			Password: "dev",
		},
		AdminEmail:     "cq.admin@example.com",
		IdentityEvents: "memory",
		Session: SessionConfig{
			AdminMaxAge: 24 * time.Hour,
			UserMaxAge:  5 * time.Minute,
		},
		Login: LoginRateConfig{PerMinute: 30, Burst: 3},
	}

	if !reflect.DeepEqual(cfg.Auth, expected) {
		t.Fatalf("unexpected auth configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.Auth)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestAppConfig_ParseRequiresAdminEmail(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err == nil {
		t.Fatalf("expected ADMIN_EMAIL to be required")
	}
}

func TestAuthMode_UnmarshalText(t *testing.T) {
	var m AuthMode
	if err := m.UnmarshalText([]byte("LOCAL")); err != nil || m != AuthModeLocal {
		t.Fatalf("expected local, got %q (%v)", m, err)
	}
	if err := m.UnmarshalText([]byte("oauth")); err == nil {
		t.Fatalf("expected error for unsupported mode")
	}
}

func TestAuthConfig_Validate(t *testing.T) {
	cfg := AuthConfig{Mode: AuthModeOIDC, AdminEmail: "admin@example.com", IdentityEvents: "memory"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected discovery url requirement")
	}

	cfg = AuthConfig{Mode: AuthModeLocal, AdminEmail: "admin@example.com", IdentityEvents: "kafka"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected invalid identity events error")
	}

	cfg = AuthConfig{Mode: AuthModeLocal, AdminEmail: "not-an-email", IdentityEvents: "memory"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected invalid admin email error")
	}
}

func TestHTTPConfig_ValidateCookieDomain(t *testing.T) {
	tests := []struct {
		domain  string
		wantErr bool
	}{
		{domain: "", wantErr: false},
		{domain: "localhost", wantErr: false},
		{domain: "tempguard.example.com", wantErr: false},
		{domain: ".example.com.br", wantErr: false},
		{domain: "com.br", wantErr: true},
		{domain: "co.uk", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			cfg := HTTPConfig{CookieDomain: tt.domain, CompressionLevel: 6}
			cfg.Sanitize()
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%q) error = %v, wantErr %v", tt.domain, err, tt.wantErr)
			}
		})
	}
}

func TestHTTPConfig_SanitizeClampsCompression(t *testing.T) {
	cfg := HTTPConfig{CompressionLevel: 42}
	cfg.Sanitize()
	if cfg.CompressionLevel != 9 {
		t.Fatalf("expected level 9, got %d", cfg.CompressionLevel)
	}
	cfg.CompressionLevel = -1
	cfg.Sanitize()
	if cfg.CompressionLevel != 1 {
		t.Fatalf("expected level 1, got %d", cfg.CompressionLevel)
	}
}

func TestLookupConfig_SanitizeAndValidate(t *testing.T) {
	cfg := LookupConfig{Mode: LookupModeGenAI, MinConfidence: 3}
	cfg.Sanitize()

	if cfg.MinConfidence != 0.95 {
		t.Fatalf("expected min confidence fallback to 0.95, got %v", cfg.MinConfidence)
	}
	if cfg.Timeout != 8*time.Second {
		t.Fatalf("expected default timeout, got %v", cfg.Timeout)
	}
	if cfg.HTTPResultPath != "@" {
		t.Fatalf("expected identity result path, got %q", cfg.HTTPResultPath)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected api key requirement for genai mode")
	}

	cfg = LookupConfig{Mode: LookupModeHTTP}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected url requirement for http mode")
	}

	cfg = LookupConfig{Mode: LookupModeOff}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("off mode should validate, got %v", err)
	}
}

func TestConfig_RetentionEnabled(t *testing.T) {
	tests := []struct {
		name     string
		services string
		days     int
		expected bool
	}{
		{name: "http only", services: "http", days: 90, expected: false},
		{name: "retention with window", services: "http,retention", days: 90, expected: true},
		{name: "retention without window", services: "retention", days: 0, expected: false},
		{name: "invalid services", services: "bogus", days: 90, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{Services: tt.services, Retention: RetentionConfig{Days: tt.days}}
			if got := cfg.IsRetentionEnabled(); got != tt.expected {
				t.Errorf("IsRetentionEnabled(): expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestRetentionConfig_Sanitize(t *testing.T) {
	cfg := RetentionConfig{Interval: time.Second, Days: -4}
	cfg.Sanitize()
	if cfg.Interval != time.Minute {
		t.Fatalf("expected interval clamped to 1m, got %v", cfg.Interval)
	}
	if cfg.Days != 0 {
		t.Fatalf("expected days clamped to 0, got %d", cfg.Days)
	}
}
