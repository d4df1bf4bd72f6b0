package flow

import "time"

// Config holds the delays of the interactive flows
type Config struct {
	// ErrorDismiss clears an inline error message
	ErrorDismiss time.Duration `yaml:"error_dismiss"`
	// LoginCloseDelay closes the sign-in flow after a successful login
	LoginCloseDelay time.Duration `yaml:"login_close_delay"`
	// RegisterSwitchDelay switches to the login tab after an immediately active registration
	RegisterSwitchDelay time.Duration `yaml:"register_switch_delay"`
	// VerificationSwitchDelay switches to the login tab when the account awaits email verification
	VerificationSwitchDelay time.Duration `yaml:"verification_switch_delay"`
	// StepAdvanceDelay moves the password reset flow to its next step
	StepAdvanceDelay time.Duration `yaml:"step_advance_delay"`
	// HandoffDelay closes the reset flow and opens the login tab
	HandoffDelay time.Duration `yaml:"handoff_delay"`
}

// DefaultConfig returns default flow configuration
func DefaultConfig() Config {
	return Config{
		ErrorDismiss:            5 * time.Second,
		LoginCloseDelay:         1 * time.Second,
		RegisterSwitchDelay:     2 * time.Second,
		VerificationSwitchDelay: 5 * time.Second,
		StepAdvanceDelay:        1 * time.Second,
		HandoffDelay:            2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ErrorDismiss == 0 {
		c.ErrorDismiss = d.ErrorDismiss
	}
	if c.LoginCloseDelay == 0 {
		c.LoginCloseDelay = d.LoginCloseDelay
	}
	if c.RegisterSwitchDelay == 0 {
		c.RegisterSwitchDelay = d.RegisterSwitchDelay
	}
	if c.VerificationSwitchDelay == 0 {
		c.VerificationSwitchDelay = d.VerificationSwitchDelay
	}
	if c.StepAdvanceDelay == 0 {
		c.StepAdvanceDelay = d.StepAdvanceDelay
	}
	if c.HandoffDelay == 0 {
		c.HandoffDelay = d.HandoffDelay
	}
	return c
}
