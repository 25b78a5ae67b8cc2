package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeRetention runs the record retention runner.
	ServiceModeRetention ServiceMode = "retention"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeRetention,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeRetention:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, retention)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// RetentionConfig contains record retention runner configuration.
type RetentionConfig struct {
	// Interval is the retention tick interval.
	Interval time.Duration `env:"INTERVAL" envDefault:"6h"`

	// Days is the retention window; records older than this are deleted. Zero disables the runner.
	Days int `env:"DAYS" envDefault:"0"`
}

// Sanitize applies guardrails to retention configuration values.
func (r *RetentionConfig) Sanitize() {
	if r.Interval < time.Minute {
		r.Interval = time.Minute
	}
	if r.Days < 0 {
		r.Days = 0
	}
}

// MaintenanceConfig guards destructive admin actions.
type MaintenanceConfig struct {
	// Password, when set, must be supplied as confirmation for cleanup and reset.
	Password string `env:"MAINTENANCE_PASSWORD"`
}
