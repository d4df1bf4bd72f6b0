package gateway

import "time"

// Endpoints holds the request paths of the session API, relative to BaseURL
type Endpoints struct {
	SessionCheck  string `yaml:"session_check"`
	Login         string `yaml:"login"`
	Register      string `yaml:"register"`
	Logout        string `yaml:"logout"`
	PasswordReset string `yaml:"password_reset"`
}

// Config holds configuration for the gateway
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	Endpoints Endpoints     `yaml:"endpoints"`
}

// DefaultEndpoints returns the paths served by the teaching-tools backend
func DefaultEndpoints() Endpoints {
	return Endpoints{
		SessionCheck:  "/api/session-check",
		Login:         "/api/login",
		Register:      "/api/register",
		Logout:        "/api/logout",
		PasswordReset: "/api/password-reset",
	}
}

// DefaultConfig returns default gateway configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:   "http://localhost:8080",
		Timeout:   15 * time.Second,
		Endpoints: DefaultEndpoints(),
	}
}

// withDefaults fills zero fields from DefaultConfig
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.Endpoints.SessionCheck == "" {
		c.Endpoints.SessionCheck = d.Endpoints.SessionCheck
	}
	if c.Endpoints.Login == "" {
		c.Endpoints.Login = d.Endpoints.Login
	}
	if c.Endpoints.Register == "" {
		c.Endpoints.Register = d.Endpoints.Register
	}
	if c.Endpoints.Logout == "" {
		c.Endpoints.Logout = d.Endpoints.Logout
	}
	if c.Endpoints.PasswordReset == "" {
		c.Endpoints.PasswordReset = d.Endpoints.PasswordReset
	}
	return c
}
