// Package config loads pixverify's runtime configuration from a YAML file
// with environment-variable overrides, in the style of the ambient
// configuration layers of the pack's payment services.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so it can be expressed as a plain string in
// YAML ("5s", "1m") instead of a raw integer of nanoseconds.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration values expressed as Go-style strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	raw := strings.TrimSpace(value.Value)
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration value %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// BreakerConfig configures the circuit breaker guarding outbound HTTP calls
// to a PSP's JWKS and payment endpoints.
type BreakerConfig struct {
	Enabled             bool     `yaml:"enabled"`
	MaxRequests         uint32   `yaml:"max_requests"`
	Interval            Duration `yaml:"interval"`
	Timeout             Duration `yaml:"timeout"`
	ConsecutiveFailures uint32   `yaml:"consecutive_failures"`
}

// LoadingConfig controls the JWS/JWKS loading pipeline.
type LoadingConfig struct {
	StrictBRCodeValidation bool     `yaml:"strict_brcode_validation"`
	SupportedAlgorithms    []string `yaml:"supported_algorithms"`
	RequestTimeout         Duration `yaml:"request_timeout"`
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config aggregates pixverify's runtime configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Loading LoadingConfig `yaml:"loading"`
	Breaker BreakerConfig `yaml:"breaker"`
}

// Load reads configuration from a YAML file (if path is non-empty) and
// applies PIXVERIFY_-prefixed environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Loading: LoadingConfig{
			StrictBRCodeValidation: false,
			SupportedAlgorithms:    []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512", "ES256", "ES384", "ES512"},
			RequestTimeout:         Duration{Duration: 10 * time.Second},
		},
		Breaker: BreakerConfig{
			Enabled:             true,
			MaxRequests:         3,
			Interval:            Duration{Duration: 60 * time.Second},
			Timeout:             Duration{Duration: 30 * time.Second},
			ConsecutiveFailures: 5,
		},
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PIXVERIFY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PIXVERIFY_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("PIXVERIFY_STRICT_BRCODE_VALIDATION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Loading.StrictBRCodeValidation = b
		}
	}
	if v := os.Getenv("PIXVERIFY_BREAKER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Breaker.Enabled = b
		}
	}
}
