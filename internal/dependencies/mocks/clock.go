package mocks

import (
	"sort"
	"sync"
	"time"

	"github.com/mcoot/teachkit/internal/dependencies/clock"
)

// MockClock is a mock implementation of Scheduler for testing.
// Delayed actions only run when the clock is advanced past their deadline.
type MockClock struct {
	mu          sync.Mutex
	CurrentTime time.Time
	timers      []*mockTimer
	seq         int
}

// Ensure MockClock implements Scheduler
var _ clock.Scheduler = (*MockClock)(nil)

type mockTimer struct {
	clock *MockClock
	at    time.Time
	seq   int
	f     func()
	done  bool
}

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{CurrentTime: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CurrentTime
}

// AfterFunc queues f to run once the clock has advanced by d
func (c *MockClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &mockTimer{clock: c, at: c.CurrentTime.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Stop cancels the timer
func (t *mockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves the clock forward by the given duration, running every due
// action in deadline order on the calling goroutine
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.CurrentTime.Add(d)
	c.mu.Unlock()

	for {
		next := c.popDue(target)
		if next == nil {
			break
		}
		next.f()
	}

	c.mu.Lock()
	c.CurrentTime = target
	c.mu.Unlock()
}

// popDue removes and returns the earliest pending timer due at or before target,
// moving the clock to its deadline
func (c *MockClock) popDue(target time.Time) *mockTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := c.timers[:0]
	for _, t := range c.timers {
		if !t.done {
			pending = append(pending, t)
		}
	}
	c.timers = pending

	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].at.Equal(c.timers[j].at) {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].at.Before(c.timers[j].at)
	})

	if len(c.timers) == 0 || c.timers[0].at.After(target) {
		return nil
	}
	t := c.timers[0]
	t.done = true
	c.timers = c.timers[1:]
	if t.at.After(c.CurrentTime) {
		c.CurrentTime = t.at
	}
	return t
}

// Pending returns the number of actions still waiting to run
func (c *MockClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// Set sets the clock to the given time without running pending actions
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CurrentTime = t
}
