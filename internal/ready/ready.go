// Package ready provides a one-shot signal for collaborators that become
// available at some unknown point after startup.
package ready

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotReady is returned when a collaborator did not appear within the timeout
var ErrNotReady = errors.New("collaborator not ready")

// Signal carries a value that is resolved at most once
type Signal[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
}

// New creates an unresolved Signal
func New[T any]() *Signal[T] {
	return &Signal[T]{done: make(chan struct{})}
}

// Resolve publishes v. Only the first call has an effect; it returns false
// for every later call.
func (s *Signal[T]) Resolve(v T) bool {
	resolved := false
	s.once.Do(func() {
		s.value = v
		close(s.done)
		resolved = true
	})
	return resolved
}

// Done is closed once the signal is resolved
func (s *Signal[T]) Done() <-chan struct{} {
	return s.done
}

// Resolved reports whether Resolve has been called
func (s *Signal[T]) Resolved() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the signal is resolved, the timeout elapses or ctx ends.
// A timeout of zero or less waits for ctx only.
func (s *Signal[T]) Wait(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T

	if s.Resolved() {
		return s.value, nil
	}

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case <-s.done:
		return s.value, nil
	case <-expired:
		return zero, ErrNotReady
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
