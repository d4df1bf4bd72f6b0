// Package audit keeps an optional, best-effort trail of session events
// (logins, logouts, registrations, password resets). Nothing in the core
// depends on a record being written.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/teachkit/internal/dependencies/clock"
)

// EventKind names what happened
type EventKind string

const (
	EventLogin         EventKind = "login"
	EventLoginFailed   EventKind = "login_failed"
	EventLogout        EventKind = "logout"
	EventRegister      EventKind = "register"
	EventPasswordReset EventKind = "password_reset"
)

// DefaultRecordTimeout bounds a single write to the Log
const DefaultRecordTimeout = 500 * time.Millisecond

// ErrInvalidLimit is returned by Recent for a negative limit
var ErrInvalidLimit = errors.New("limit must not be negative")

// Event is one entry in the side log
type Event struct {
	ID       string    `json:"id"`
	Kind     EventKind `json:"kind"`
	Username string    `json:"username,omitempty"`
	At       time.Time `json:"at"`
	Detail   string    `json:"detail,omitempty"`
}

// Log persists audit events
type Log interface {
	// Record appends an event
	Record(ctx context.Context, ev Event) error
	// Recent returns up to limit events, newest first. A limit of 0 returns all retained events.
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// Recorder stamps events and writes them to a Log, logging instead of
// returning errors. A nil *Recorder records nothing.
type Recorder struct {
	log     Log
	clock   clock.Clock
	timeout time.Duration
	logger  *slog.Logger
}

// NewRecorder creates a Recorder writing to log
func NewRecorder(log Log, clk clock.Clock, logger *slog.Logger) *Recorder {
	return &Recorder{
		log:     log,
		clock:   clk,
		timeout: DefaultRecordTimeout,
		logger:  logger.With(slog.String("component", "audit")),
	}
}

// WithTimeout returns a copy of r whose writes give up after d
func (r *Recorder) WithTimeout(d time.Duration) *Recorder {
	if r == nil || d <= 0 {
		return r
	}
	cp := *r
	cp.timeout = d
	return &cp
}

// Record writes an event of the given kind. A slow Log costs the caller at
// most the recorder's timeout.
func (r *Recorder) Record(ctx context.Context, kind EventKind, username, detail string) {
	if r == nil || r.log == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ev := Event{
		ID:       uuid.NewString(),
		Kind:     kind,
		Username: username,
		At:       r.clock.Now().UTC(),
		Detail:   detail,
	}
	if err := r.log.Record(ctx, ev); err != nil {
		r.logger.Warn("failed to record audit event",
			slog.String("kind", string(kind)),
			slog.Any("error", err))
	}
}

// Log returns the underlying Log
func (r *Recorder) Log() Log {
	if r == nil {
		return nil
	}
	return r.log
}
