package clock

import "time"

// Clock provides time operations that can be mocked for testing
type Clock interface {
	Now() time.Time
}

// Timer is a pending delayed action
type Timer interface {
	// Stop prevents the action from running. It returns false if the action
	// already ran or was stopped.
	Stop() bool
}

// Scheduler runs delayed actions (message auto-dismiss, step auto-advance)
type Scheduler interface {
	Clock
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock implements Scheduler using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// AfterFunc runs f in its own goroutine after d has elapsed
func (c *RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
