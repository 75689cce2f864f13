// Package config provides centralized configuration management for handlescan.
// Settings are layered with viper (defaults, YAML file, environment) and
// decoded into a typed Config with mapstructure.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// AppName names the XDG config and data directories.
	AppName = "handlescan"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "HANDLESCAN_"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: {PREFIX}{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// SetDefaults registers default values for every known key.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.admin_token", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	// Store defaults
	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")
	v.SetDefault("store.disabled", false)

	// Probe defaults
	v.SetDefault("probe.timeout", "10s")
	v.SetDefault("probe.concurrency", 20)
	v.SetDefault("probe.batch_delay", "250ms")
	v.SetDefault("probe.requests_per_second", 0)
	v.SetDefault("probe.max_in_flight", 64)
	v.SetDefault("probe.max_body_bytes", 2<<20)
	v.SetDefault("probe.headers", map[string]string{})

	// Identifier defaults
	v.SetDefault("identifier.min_length", 1)
	v.SetDefault("identifier.max_length", 64)

	// Data overrides (empty means embedded)
	v.SetDefault("registry.path", "")
	v.SetDefault("ranking.path", "")

	// Rate limit overrides (optional)
	v.SetDefault("rate_limits", map[string]int{})
	v.SetDefault("rate_limit_margin", 0.9)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Health check defaults
	v.SetDefault("health.enabled", true)
}

// Load applies the short-form environment aliases to v and decodes the
// merged settings. The result becomes the process-wide config.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		return nil, errors.New("viper instance is required")
	}

	overrides, err := gfconfig.LoadEnvOverrides(EnvSpecs(EnvPrefix))
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	if value := strings.TrimSpace(os.Getenv(EnvPrefix + "RATE_LIMIT_MARGIN")); value != "" {
		margin, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rate limit margin: %w", err)
		}
		overrides["rate_limit_margin"] = margin
	}
	if len(overrides) > 0 {
		if err := v.MergeConfigMap(overrides); err != nil {
			return nil, fmt.Errorf("failed to merge environment overrides: %w", err)
		}
	}

	cfg, err := Decode(v.AllSettings())
	if err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Decode converts a settings map into a validated Config.
func Decode(settings map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the probe pipeline cannot honor.
func (c *Config) Validate() error {
	var problems []string

	if c.Probe.Timeout < 0 {
		problems = append(problems, "probe.timeout must not be negative")
	}
	if c.Probe.Concurrency < 0 {
		problems = append(problems, "probe.concurrency must not be negative")
	}
	if c.Probe.BatchDelay < 0 {
		problems = append(problems, "probe.batch_delay must not be negative")
	}
	if c.Probe.RequestsPerSecond < 0 {
		problems = append(problems, "probe.requests_per_second must not be negative")
	}
	if c.Probe.MaxInFlight < 0 {
		problems = append(problems, "probe.max_in_flight must not be negative")
	}
	if c.Identifier.MinLength < 0 || c.Identifier.MaxLength < 0 {
		problems = append(problems, "identifier lengths must not be negative")
	} else if c.Identifier.MaxLength > 0 && c.Identifier.MinLength > c.Identifier.MaxLength {
		problems = append(problems, "identifier.min_length exceeds identifier.max_length")
	}
	if c.RateLimitMargin < 0 || c.RateLimitMargin > 1 {
		problems = append(problems, "rate_limit_margin must be within 0 and 1")
	}
	for host, limit := range c.RateLimits {
		if limit <= 0 {
			problems = append(problems, fmt.Sprintf("rate_limits.%s must be positive", host))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// EnvSpecs returns the short-form environment aliases. Full dotted keys
// (for example HANDLESCAN_PROBE_TIMEOUT) are handled by viper directly.
func EnvSpecs(prefix string) []EnvVarSpec {
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	return []EnvVarSpec{
		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		{Name: prefix + "ADMIN_TOKEN", Path: []string{"server", "admin_token"}, Type: EnvString},

		// Logging config
		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		// Store config
		{Name: prefix + "DB_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: prefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: prefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: prefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},

		// Probe config (durations are decoded by the mapstructure hook)
		{Name: prefix + "TIMEOUT", Path: []string{"probe", "timeout"}, Type: EnvString},
		{Name: prefix + "CONCURRENCY", Path: []string{"probe", "concurrency"}, Type: EnvInt},
		{Name: prefix + "BATCH_DELAY", Path: []string{"probe", "batch_delay"}, Type: EnvString},
		{Name: prefix + "MAX_IN_FLIGHT", Path: []string{"probe", "max_in_flight"}, Type: EnvInt},

		// Data overrides
		{Name: prefix + "REGISTRY_PATH", Path: []string{"registry", "path"}, Type: EnvString},
		{Name: prefix + "RANKING_PATH", Path: []string{"ranking", "path"}, Type: EnvString},

		// Metrics config
		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},

		// Health config
		{Name: prefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},
	}
}

// DefaultConfigDir returns the XDG-compliant config directory for the app.
func DefaultConfigDir() string {
	return gfconfig.GetAppConfigDir(AppName)
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := DefaultConfigDir()
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(AppName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := DefaultDataDir()
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}
