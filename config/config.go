package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Identity provider, session policy and admin bootstrap
//   - database.go: Database and cache configuration
//   - http.go: HTTP server configuration
//   - lookup.go: Product lookup backend configuration
//   - services.go: Service mode, retention and maintenance configuration
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel selects the slog level (debug, info, warn, error).
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// FacilityTimezone is the IANA zone manual record dates and times are entered in.
	FacilityTimezone string `env:"FACILITY_TIMEZONE" envDefault:"America/Sao_Paulo"`

	// LocationsFile optionally overrides the embedded location catalogue (YAML).
	LocationsFile string `env:"LOCATIONS_FILE"`

	// Authentication configuration
	Auth AuthConfig

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Cache    CacheConfig

	// HTTP server configuration
	HTTP HTTPConfig

	// Product lookup configuration
	Lookup LookupConfig `envPrefix:"LOOKUP_"`

	// Service mode configuration
	Services string `env:"SERVICES" envDefault:"http"`

	// Retention runner configuration
	Retention RetentionConfig `envPrefix:"RETENTION_"`

	// Maintenance action configuration
	Maintenance MaintenanceConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Auth.Sanitize()
	c.Lookup.Sanitize()
	c.Retention.Sanitize()

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if strings.TrimSpace(c.FacilityTimezone) == "" {
		c.FacilityTimezone = "America/Sao_Paulo"
	}

	c.detectDevMode()
}

// Validate reports configuration combinations that cannot work at runtime.
func (c *AppConfig) Validate() error {
	var errs []error
	if err := c.HTTP.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Auth.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Lookup.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.GetEnabledServices(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}

// IsRetentionEnabled returns true if the retention runner is enabled and has a positive window.
func (c *AppConfig) IsRetentionEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeRetention] && c.Retention.Days > 0
}
