// Package config loads the teachkit configuration.
//
// Load order, later sources win:
//  1. built-in defaults
//  2. a YAML file (optional)
//  3. a .env file in the working directory or its parents (optional)
//  4. TEACHKIT_* environment variables
//
// Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	auditredis "github.com/mcoot/teachkit/internal/audit/redis"
	"github.com/mcoot/teachkit/internal/enforce"
	"github.com/mcoot/teachkit/internal/flow"
	"github.com/mcoot/teachkit/internal/gateway"
)

// Environment variables
const (
	EnvServer       = "TEACHKIT_SERVER"
	EnvTimeout      = "TEACHKIT_TIMEOUT"
	EnvPollInterval = "TEACHKIT_POLL_INTERVAL"
	EnvAuditStorage = "TEACHKIT_AUDIT_STORAGE"
	EnvRedisURL     = "TEACHKIT_REDIS_URL"
	EnvLogLevel     = "TEACHKIT_LOG_LEVEL"
)

// Audit storage types
const (
	AuditStorageNone   = "none"
	AuditStorageMemory = "memory"
	AuditStorageRedis  = "redis"
)

// ErrInvalidConfig wraps every validation problem
var ErrInvalidConfig = errors.New("invalid configuration")

// AuditConfig selects where the side log goes
type AuditConfig struct {
	Storage  string            `yaml:"storage"`
	Capacity int               `yaml:"capacity"`
	Redis    auditredis.Config `yaml:"redis"`
}

// Config is the complete teachkit configuration
type Config struct {
	Gateway  gateway.Config `yaml:"gateway"`
	Flow     flow.Config    `yaml:"flow"`
	Enforce  enforce.Config `yaml:"enforce"`
	Audit    AuditConfig    `yaml:"audit"`
	LogLevel string         `yaml:"log_level"`
}

var envPaths = []string{
	".env",
	"../.env",
	"../../.env",
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Gateway: gateway.DefaultConfig(),
		Flow:    flow.DefaultConfig(),
		Enforce: enforce.DefaultConfig(),
		Audit: AuditConfig{
			Storage:  AuditStorageMemory,
			Capacity: 256,
			Redis:    auditredis.DefaultConfig(),
		},
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// non-empty), .env and the environment
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from the environment, looked up through lookup
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvServer); ok && v != "" {
		c.Gateway.BaseURL = v
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvTimeout, err)
		}
		c.Gateway.Timeout = d
	}
	if v, ok := lookup(EnvPollInterval); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvPollInterval, err)
		}
		c.Enforce.PollInterval = d
	}
	if v, ok := lookup(EnvAuditStorage); ok && v != "" {
		c.Audit.Storage = strings.ToLower(v)
	}
	if v, ok := lookup(EnvRedisURL); ok && v != "" {
		c.Audit.Redis.URL = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks the configuration for values the components cannot work with
func (c Config) Validate() error {
	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("%w: gateway base url is empty", ErrInvalidConfig)
	}
	if c.Gateway.Timeout < 0 {
		return fmt.Errorf("%w: gateway timeout must not be negative", ErrInvalidConfig)
	}
	if c.Enforce.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", ErrInvalidConfig)
	}
	switch c.Audit.Storage {
	case AuditStorageNone, AuditStorageMemory:
	case AuditStorageRedis:
		if c.Audit.Redis.URL == "" {
			return fmt.Errorf("%w: %s required when audit storage is redis", ErrInvalidConfig, EnvRedisURL)
		}
	default:
		return fmt.Errorf("%w: unknown audit storage %q", ErrInvalidConfig, c.Audit.Storage)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel converts a level name into a slog.Level
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log level %q", ErrInvalidConfig, s)
	}
	return level, nil
}

// SlogLevel returns the configured log level, falling back to info
func (c Config) SlogLevel() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}
