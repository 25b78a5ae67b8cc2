package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LookupMode selects the product lookup backend.
type LookupMode string

const (
	// LookupModeGenAI calls Gemini through google.golang.org/genai.
	LookupModeGenAI LookupMode = "genai"
	// LookupModeHTTP posts to a generic model endpoint and extracts the result with JMESPath.
	LookupModeHTTP LookupMode = "http"
	// LookupModeOff disables product lookup; every lookup yields no suggestion.
	LookupModeOff LookupMode = "off"
)

// UnmarshalText implements encoding.TextUnmarshaler for LookupMode.
func (m *LookupMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "genai", "http", "off":
		*m = LookupMode(v)
		return nil
	default:
		return fmt.Errorf("invalid LookupMode: %q (valid options: genai, http, off)", v)
	}
}

// LookupConfig configures the product lookup client.
type LookupConfig struct {
	Mode          LookupMode    `env:"MODE"           envDefault:"off"`
	Timeout       time.Duration `env:"TIMEOUT"        envDefault:"8s"`
	MinConfidence float64       `env:"MIN_CONFIDENCE" envDefault:"0.95"`

	// GenAI backend.
	APIKey string `env:"API_KEY"`
	Model  string `env:"MODEL"   envDefault:"gemini-2.0-flash"`

	// HTTP backend.
	HTTPURL        string            `env:"HTTP_URL"`
	HTTPHeaders    map[string]string `env:"HTTP_HEADERS"`
	HTTPResultPath string            `env:"HTTP_RESULT_PATH" envDefault:"@"`
}

// Sanitize clamps lookup values into usable ranges.
func (l *LookupConfig) Sanitize() {
	if l.Mode == "" {
		l.Mode = LookupModeOff
	}
	if l.Timeout <= 0 {
		l.Timeout = 8 * time.Second
	}
	if l.MinConfidence <= 0 || l.MinConfidence > 1 {
		l.MinConfidence = 0.95
	}
	if strings.TrimSpace(l.HTTPResultPath) == "" {
		l.HTTPResultPath = "@"
	}
}

// Validate checks backend-specific requirements.
func (l *LookupConfig) Validate() error {
	switch l.Mode {
	case LookupModeGenAI:
		if strings.TrimSpace(l.APIKey) == "" {
			return errors.New("LOOKUP_API_KEY is required when LOOKUP_MODE=genai")
		}
	case LookupModeHTTP:
		if strings.TrimSpace(l.HTTPURL) == "" {
			return errors.New("LOOKUP_HTTP_URL is required when LOOKUP_MODE=http")
		}
	}
	return nil
}
