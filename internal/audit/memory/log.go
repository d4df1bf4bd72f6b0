// Package memory keeps audit events in a bounded in-process ring buffer.
package memory

import (
	"context"
	"sync"

	"github.com/mcoot/teachkit/internal/audit"
)

// DefaultCapacity is the number of events kept when none is configured
const DefaultCapacity = 256

// Log is an in-memory implementation of audit.Log
type Log struct {
	mu     sync.RWMutex
	events []audit.Event
	next   int
	full   bool
}

// New creates a Log retaining at most capacity events
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{events: make([]audit.Event, capacity)}
}

// Ensure Log implements the interface
var _ audit.Log = (*Log)(nil)

func (l *Log) Record(ctx context.Context, ev audit.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events[l.next] = ev
	l.next = (l.next + 1) % len(l.events)
	if l.next == 0 {
		l.full = true
	}
	return nil
}

func (l *Log) Recent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit < 0 {
		return nil, audit.ErrInvalidLimit
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	size := l.next
	if l.full {
		size = len(l.events)
	}
	if limit == 0 || limit > size {
		limit = size
	}

	out := make([]audit.Event, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (l.next - i + len(l.events)) % len(l.events)
		out = append(out, l.events[idx])
	}
	return out, nil
}

// Len returns the number of retained events
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.full {
		return len(l.events)
	}
	return l.next
}
