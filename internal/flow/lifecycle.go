package flow

import (
	"context"
	"log/slog"

	"github.com/mcoot/teachkit/internal/audit"
	"github.com/mcoot/teachkit/internal/model"
)

// Lifecycle establishes the session at startup and ends it on logout
type Lifecycle struct {
	backend SessionBackend
	store   SessionWriter
	opts    Options
	logger  *slog.Logger
}

// NewLifecycle creates a Lifecycle
func NewLifecycle(backend SessionBackend, store SessionWriter, opts Options) *Lifecycle {
	opts = opts.withDefaults()
	return &Lifecycle{
		backend: backend,
		store:   store,
		opts:    opts,
		logger:  opts.Logger.With(slog.String("component", "lifecycle")),
	}
}

// Check asks the backend for the current session and stores the answer.
// Any failure clears the store, so access is never granted on an ambiguous answer.
func (l *Lifecycle) Check(ctx context.Context) (*model.Session, error) {
	sess, err := l.backend.CheckSession(ctx)
	if err != nil {
		l.logger.Info("session check failed, continuing as guest", slog.Any("error", err))
		l.store.SetSession(nil)
		return nil, err
	}

	l.store.SetSession(sess)
	return l.store.GetSession(), nil
}

// Logout clears the local session first, then tells the backend.
// Backend failures are logged and otherwise ignored.
func (l *Lifecycle) Logout(ctx context.Context) {
	prev := l.store.GetSession()
	l.store.SetSession(nil)

	if err := l.backend.Logout(ctx); err != nil {
		l.logger.Info("backend logout failed", slog.Any("error", err))
	}

	if prev != nil {
		l.opts.Recorder.Record(ctx, audit.EventLogout, prev.Username, "")
	}
}
