package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches for opsdeck.yaml/.yml in
// standard locations. The search requires an explicit YAML extension so a
// binary named "opsdeck" in the working directory is never mistaken for
// the config file.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found in any standard location. Set name/type
		// without search paths so ReadInConfig returns
		// ConfigFileNotFoundError, which callers handle gracefully.
		viper.SetConfigName("opsdeck")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: OPSDECK_SERVER_ADDR, OPSDECK_REDIS_ADDR...
	viper.SetEnvPrefix("OPSDECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for an opsdeck config file
// with an explicit YAML extension (.yaml or .yml).
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".opsdeck"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "opsdeck"))
		}
	} else {
		paths = append(paths, "/etc/opsdeck")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths returns the first opsdeck.yaml or opsdeck.yml
// found in the given directories, or an empty string.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "opsdeck"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds the scalar config keys for environment variable
// support. Example: OPSDECK_REDIS_ADDR overrides redis.addr.
// alerts.rules is an array; use the config file for rules.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("server.addr")
	_ = viper.BindEnv("server.log_level")
	_ = viper.BindEnv("server.shutdown_timeout")

	_ = viper.BindEnv("database.path")

	_ = viper.BindEnv("redis.addr")
	_ = viper.BindEnv("redis.password")
	_ = viper.BindEnv("redis.db")
	_ = viper.BindEnv("redis.dial_timeout")
	_ = viper.BindEnv("redis.op_timeout")

	_ = viper.BindEnv("cache.enabled")

	_ = viper.BindEnv("auth.token_secret")
	_ = viper.BindEnv("auth.token_ttl")

	_ = viper.BindEnv("rate_limit.enabled")

	_ = viper.BindEnv("ai.api_key")
	_ = viper.BindEnv("ai.base_url")
	_ = viper.BindEnv("ai.model")

	_ = viper.BindEnv("prober.enabled")
	_ = viper.BindEnv("prober.interval")

	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration file, applies environment overrides
// and defaults, and validates the result.
// Callers that override DevMode from CLI flags should use LoadConfigRaw,
// then apply flags, then SetDevDefaults and Validate.
func LoadConfig() (*Config, error) {
	cfg, err := LoadConfigRaw()
	if err != nil {
		return nil, err
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigRaw reads the configuration file and applies defaults, but
// does not apply dev defaults or validate.
func LoadConfigRaw() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found: continue with env vars and defaults only.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the path of the loaded configuration file, or an
// empty string when running on env vars and defaults only.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
