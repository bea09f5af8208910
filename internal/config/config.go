// Package config provides the opsdeck configuration schema, loading, and
// validation. Configuration comes from an opsdeck.yaml file plus OPSDECK_*
// environment overrides, with defaults for everything that can reasonably
// default.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level opsdeck configuration.
type Config struct {
	// Server configures the HTTP API listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Database configures the SQLite persistence file.
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Redis configures the shared key-value store used by the rate limiter
	// and the cache. When no address is set, opsdeck falls back to an
	// in-process store; rate limits and cache entries are then local to
	// one instance.
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`

	// Cache configures the read-through cache layer.
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Auth configures token signing.
	Auth AuthConfig `yaml:"auth" mapstructure:"auth"`

	// RateLimit configures request rate limiting.
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`

	// AI configures the Groq-backed analysis assistant.
	// Optional: without an API key, analysis endpoints return collected
	// data with an "analysis unavailable" notice.
	AI AIConfig `yaml:"ai" mapstructure:"ai"`

	// Prober configures the background health prober.
	Prober ProberConfig `yaml:"prober" mapstructure:"prober"`

	// Alerts defines log alert rules evaluated on every ingested entry.
	Alerts AlertsConfig `yaml:"alerts" mapstructure:"alerts"`

	// DevMode enables development defaults (debug logging, generated
	// token secret).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP server.
// TLS is out of scope; terminate it at a reverse proxy.
type ServerConfig struct {
	// Addr is the address to listen on (e.g., "127.0.0.1:8080").
	// Defaults to "127.0.0.1:8080" (localhost only) if empty.
	Addr string `yaml:"addr" mapstructure:"addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum log level: "debug", "info", "warn", "error".
	// Defaults to "info". DevMode overrides to "debug".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "10s").
	// Defaults to "10s".
	ShutdownTimeout string `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"omitempty,duration"`
}

// DatabaseConfig configures SQLite persistence.
type DatabaseConfig struct {
	// Path is the SQLite database file. ":memory:" keeps everything in
	// process memory (useful for trials; nothing survives a restart).
	// Defaults to "opsdeck.db".
	Path string `yaml:"path" mapstructure:"path"`
}

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	// Addr is the Redis host:port. Empty disables Redis and uses the
	// in-process key-value store instead.
	Addr string `yaml:"addr" mapstructure:"addr" validate:"omitempty,hostname_port"`

	// Password authenticates the connection (optional).
	Password string `yaml:"password" mapstructure:"password"`

	// DB is the Redis database number.
	DB int `yaml:"db" mapstructure:"db" validate:"omitempty,min=0"`

	// DialTimeout bounds connection establishment (e.g., "5s").
	// Defaults to "5s".
	DialTimeout string `yaml:"dial_timeout" mapstructure:"dial_timeout" validate:"omitempty,duration"`

	// OpTimeout bounds individual commands (e.g., "2s"). Defaults to "2s".
	OpTimeout string `yaml:"op_timeout" mapstructure:"op_timeout" validate:"omitempty,duration"`
}

// CacheConfig configures the read-through cache.
type CacheConfig struct {
	// Enabled turns the shared cache on or off. When off, cache entries
	// live in an in-process store even if Redis is configured; reads stay
	// correct but are not shared between instances.
	// Defaults to true.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// AuthConfig configures token signing.
type AuthConfig struct {
	// TokenSecret signs access tokens (HS256). Required outside dev mode;
	// use at least 32 bytes of randomness.
	TokenSecret string `yaml:"token_secret" mapstructure:"token_secret" validate:"omitempty,min=16"`

	// TokenTTL is the access token lifetime (e.g., "24h"). Defaults to "24h".
	TokenTTL string `yaml:"token_ttl" mapstructure:"token_ttl" validate:"omitempty,duration"`
}

// RateLimitConfig configures request rate limiting. The per-class windows
// and budgets are fixed; this only switches enforcement on or off.
type RateLimitConfig struct {
	// Enabled turns rate limiting on or off. Defaults to true.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// AIConfig configures the Groq API client.
type AIConfig struct {
	// APIKey authenticates against the Groq API. Empty disables AI
	// analysis (endpoints fall back to raw data with a notice).
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	// BaseURL overrides the API endpoint. Defaults to the Groq
	// OpenAI-compatible endpoint.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// Model selects the completion model.
	Model string `yaml:"model" mapstructure:"model"`
}

// ProberConfig configures the background health prober.
type ProberConfig struct {
	// Enabled turns the prober on or off. Defaults to true.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Interval is the sweep interval (e.g., "30s"). Defaults to "30s".
	Interval string `yaml:"interval" mapstructure:"interval" validate:"omitempty,duration"`
}

// AlertsConfig holds the log alert rules.
type AlertsConfig struct {
	// Rules are evaluated in order against every ingested log entry.
	// A matching rule opens an incident unless one is already open for
	// the same service and title.
	Rules []AlertRuleConfig `yaml:"rules" mapstructure:"rules" validate:"omitempty,dive"`
}

// AlertRuleConfig defines one log alert rule.
type AlertRuleConfig struct {
	// Name identifies the rule and becomes part of the incident title.
	Name string `yaml:"name" mapstructure:"name" validate:"required"`

	// Condition is a CEL expression over the log entry
	// (level, message, serviceId, serviceName).
	Condition string `yaml:"condition" mapstructure:"condition" validate:"required"`

	// Severity is assigned to incidents the rule opens.
	Severity string `yaml:"severity" mapstructure:"severity" validate:"required,oneof=low medium high critical"`
}

// SetDefaults applies default values for optional fields.
func (c *Config) SetDefaults() {
	// Bind to localhost only; exposing the API is an explicit choice.
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}

	if c.Database.Path == "" {
		c.Database.Path = "opsdeck.db"
	}

	if c.Redis.DialTimeout == "" {
		c.Redis.DialTimeout = "5s"
	}
	if c.Redis.OpTimeout == "" {
		c.Redis.OpTimeout = "2s"
	}

	// viper.IsSet distinguishes "not set" from an explicit false.
	if !viper.IsSet("cache.enabled") {
		c.Cache.Enabled = true
	}
	if !viper.IsSet("rate_limit.enabled") {
		c.RateLimit.Enabled = true
	}
	if !viper.IsSet("prober.enabled") {
		c.Prober.Enabled = true
	}

	if c.Auth.TokenTTL == "" {
		c.Auth.TokenTTL = "24h"
	}
	if c.Prober.Interval == "" {
		c.Prober.Interval = "30s"
	}
}

// SetDevDefaults applies permissive defaults for development mode so
// opsdeck runs with an empty config file. Applied before validation.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	c.Server.LogLevel = "debug"
	if c.Auth.TokenSecret == "" {
		// Fixed dev secret: tokens survive restarts but are worthless
		// outside a dev box.
		c.Auth.TokenSecret = "opsdeck-dev-secret-do-not-deploy"
	}
}

// Duration parses a validated duration field. Fields tagged with the
// duration validator are guaranteed to parse after Validate; the fallback
// covers unvalidated configs.
func Duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
