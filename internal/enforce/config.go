package enforce

import "time"

// Config holds configuration for the enforcer
type Config struct {
	// PollInterval is how often every surface is re-checked regardless of session changes
	PollInterval time.Duration `yaml:"poll_interval"`
	// ReadyTimeout bounds how long RegisterWhenReady waits for a late collaborator
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
}

// DefaultConfig returns default enforcer configuration
func DefaultConfig() Config {
	return Config{
		PollInterval: 2 * time.Second,
		ReadyTimeout: 10 * time.Second,
	}
}
