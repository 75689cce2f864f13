package config

import (
	"time"
)

// Config represents the complete application configuration.
// Values come from defaults, an optional YAML file, and HANDLESCAN_*
// environment variables, in increasing order of precedence.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Probe      ProbeConfig      `mapstructure:"probe"`
	Identifier IdentifierConfig `mapstructure:"identifier"`
	Registry   RegistryConfig   `mapstructure:"registry"`
	Ranking    RankingConfig    `mapstructure:"ranking"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Health     HealthConfig     `mapstructure:"health"`

	// RateLimits overrides the per-minute request budget for a host.
	RateLimits      map[string]int `mapstructure:"rate_limits"`
	RateLimitMargin float64        `mapstructure:"rate_limit_margin"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AdminToken enables POST /admin/signal when set.
	AdminToken string `mapstructure:"admin_token"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
	// Disabled skips opening the store; host backoff is then not persisted.
	Disabled bool `mapstructure:"disabled"`
}

// ProbeConfig controls outbound probing.
type ProbeConfig struct {
	// Timeout bounds one probe, including time spent waiting for a slot.
	Timeout time.Duration `mapstructure:"timeout"`
	// Concurrency is the worker count and batch size of one run.
	Concurrency int `mapstructure:"concurrency"`
	// BatchDelay is the pause between consecutive batches.
	BatchDelay time.Duration `mapstructure:"batch_delay"`
	// RequestsPerSecond caps outbound requests across all runs. Zero disables it.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	// MaxInFlight caps concurrent outbound requests across all runs. Zero disables it.
	MaxInFlight  int64             `mapstructure:"max_in_flight"`
	MaxBodyBytes int64             `mapstructure:"max_body_bytes"`
	Headers      map[string]string `mapstructure:"headers"`
}

// IdentifierConfig bounds accepted identifiers, counted in characters.
type IdentifierConfig struct {
	MinLength int `mapstructure:"min_length"`
	MaxLength int `mapstructure:"max_length"`
}

// RegistryConfig points at an optional site registry file.
// An empty path uses the registry compiled into the binary.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// RankingConfig points at an optional ranking table file.
type RankingConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED, ENTERPRISE
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
