package polyquery

import (
	"strings"
	"time"

	cerrors "github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// PoolSize is the enumerated connection-pool sizing hint.
type PoolSize string

const (
	PoolHigh     PoolSize = "high"
	PoolStandard PoolSize = "standard"
	PoolLow      PoolSize = "low"
)

// TimestampConfig configures the timestamp injector's field names, or
// disables injection entirely.
type TimestampConfig struct {
	Enabled        bool
	CreatedAtField string
	UpdatedAtField string
}

// ReconnectConfig configures the reconnect controller.
type ReconnectConfig struct {
	Enabled           bool
	MaxAttempts       int
	InitialDelayMs    int
	MaxDelayMs        int
	BackoffMultiplier float64
}

// ElasticConfig carries search-engine-specific connection options.
type ElasticConfig struct {
	APIKey        string
	CAFingerprint string
	SniffOnStart  bool
}

// CacheConfig configures the optional read-through cache. Disabled
// unless Enabled is explicitly set, per the cache layer's own
// "additive, off by default" contract.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// SanitizeRuleConfig is the config-file representation of one
// sanitize.TransformRule; Transform itself can only be supplied
// programmatically (it's a function), so config-sourced rules are
// limited to field whitelisting handled elsewhere. This type exists so
// viper/mapstructure has somewhere to decode a "sanitizeRules" list
// into before the caller attaches the actual TransformFunc values.
type SanitizeRuleConfig struct {
	Fields []string
}

// Config is the router's fully-resolved configuration.
type Config struct {
	URI           string
	Pool          PoolSize
	DBName        string
	Label         string
	Schema        bool
	Sanitize      bool
	SanitizeRules []SanitizeRuleConfig
	Guardrails    bool
	Logging       string // "true", "false", or "verbose"
	SlowQueryMs   int
	Timestamps    TimestampConfig
	Reconnect     ReconnectConfig
	Elastic       ElasticConfig
	Cache         CacheConfig
}

// DefaultConfig returns a Config with every documented default applied
// (pool=standard, sanitize/guardrails/logging enabled, slowQueryMs=1000,
// reconnect enabled with its standard backoff parameters), with URI
// left empty for the caller to supply.
func DefaultConfig() Config {
	return Config{
		Pool:        PoolStandard,
		Sanitize:    true,
		Guardrails:  true,
		Logging:     "true",
		SlowQueryMs: 1000,
		Reconnect: ReconnectConfig{
			Enabled:           true,
			MaxAttempts:       10,
			InitialDelayMs:    1000,
			MaxDelayMs:        30000,
			BackoffMultiplier: 2,
		},
	}
}

// LoadConfig builds a Config from an optional config file at
// configPath (skipped if empty), environment variables prefixed
// POLYQUERY_, and finally overrides, applied in that ascending-priority
// order (an environment variable beats the config file). Only keys
// registered in applyDefaults are read from the environment. Every
// field not explicitly set retains DefaultConfig's value.
func LoadConfig(configPath string, overrides map[string]any) (Config, error) {
	v := viper.New()
	applyDefaults(v, DefaultConfig())

	v.SetEnvPrefix("POLYQUERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, NewError(CodeInternalError, "failed to read config file: "+err.Error(),
				"check the config file path and format").
				WithCause(cerrors.Wrap(err, "readInConfig")).
				WithOperation("loadConfig")
		}
	}

	for k, val := range overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, NewError(CodeInternalError, "failed to decode configuration: "+err.Error(),
			"check the shape of the supplied options against Config").
			WithCause(cerrors.Wrap(err, "unmarshal")).
			WithOperation("loadConfig")
	}
	return cfg, nil
}

func applyDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("uri", cfg.URI)
	v.SetDefault("dbname", cfg.DBName)
	v.SetDefault("label", cfg.Label)
	v.SetDefault("schema", cfg.Schema)
	v.SetDefault("pool", cfg.Pool)
	v.SetDefault("sanitize", cfg.Sanitize)
	v.SetDefault("guardrails", cfg.Guardrails)
	v.SetDefault("logging", cfg.Logging)
	v.SetDefault("slowqueryms", cfg.SlowQueryMs)
	v.SetDefault("reconnect.enabled", cfg.Reconnect.Enabled)
	v.SetDefault("reconnect.maxattempts", cfg.Reconnect.MaxAttempts)
	v.SetDefault("reconnect.initialdelayms", cfg.Reconnect.InitialDelayMs)
	v.SetDefault("reconnect.maxdelayms", cfg.Reconnect.MaxDelayMs)
	v.SetDefault("reconnect.backoffmultiplier", cfg.Reconnect.BackoffMultiplier)
}

// Verbose reports whether logging is configured to log statement text
// and arguments before execution, not just operation/slow-query
// summaries.
func (c Config) Verbose() bool {
	return strings.EqualFold(c.Logging, "verbose")
}

// LoggingEnabled reports whether the event bus should mirror events to
// the zap logger at all.
func (c Config) LoggingEnabled() bool {
	return !strings.EqualFold(c.Logging, "false") && c.Logging != ""
}
