package redis

import "time"

// Config holds Redis connection and retention settings for the audit log
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string `yaml:"url"`

	// KeyPrefix namespaces the audit list
	KeyPrefix string `yaml:"key_prefix"`

	// Pool settings
	PoolSize     int `yaml:"pool_size"`
	MinIdleConns int `yaml:"min_idle_conns"`

	// MaxEvents caps the list length; older events are trimmed
	MaxEvents int64 `yaml:"max_events"`

	// TTL expires the whole list after inactivity (0 = never)
	TTL time.Duration `yaml:"ttl"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		KeyPrefix:    "teachkit",
		PoolSize:     4,
		MinIdleConns: 1,
		MaxEvents:    1000,
		TTL:          30 * 24 * time.Hour,
	}
}
