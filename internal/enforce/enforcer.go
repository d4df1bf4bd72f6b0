// Package enforce keeps registered UI surfaces consistent with the current
// session's capabilities. Surfaces are reconciled reactively on every session
// change and again on a fixed poll interval, for surfaces mounted or reset by
// code outside the core. Visibility is only a hint: every guarded invocation
// re-checks the capability at call time.
package enforce

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/teachkit/internal/capability"
	"github.com/mcoot/teachkit/internal/dependencies/clock"
	"github.com/mcoot/teachkit/internal/metrics"
	"github.com/mcoot/teachkit/internal/model"
	"github.com/mcoot/teachkit/internal/ready"
	"github.com/mcoot/teachkit/internal/session"
)

// Reconcile triggers
const (
	TriggerRegister = "register"
	TriggerSession  = "session"
	TriggerPoll     = "poll"
	TriggerManual   = "manual"
)

// Decision is what a surface should look like
type Decision struct {
	Visible bool
	Enabled bool
}

// ApplyFunc puts a decision into effect on one surface.
// It must be idempotent: poll passes apply the current decision again on every
// tick. It must not call back into the Enforcer synchronously.
type ApplyFunc func(Decision)

// RoleSource is the part of the session store the enforcer reads
type RoleSource interface {
	GetRole() model.Role
	Subscribe(obs session.Observer) func()
}

// Enforcer tracks registered surfaces and applies capability decisions to them
type Enforcer struct {
	mu    sync.Mutex
	regs  map[string]*Registration
	order []string

	// passMu serialises reconciliation passes so apply calls never interleave
	passMu sync.Mutex

	source      RoleSource
	sched       clock.Scheduler
	cfg         Config
	metrics     *metrics.Metrics
	logger      *slog.Logger
	unsubscribe func()
}

// New creates an Enforcer subscribed to source
func New(source RoleSource, sched clock.Scheduler, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Enforcer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultConfig().ReadyTimeout
	}

	e := &Enforcer{
		regs:    make(map[string]*Registration),
		source:  source,
		sched:   sched,
		cfg:     cfg,
		metrics: m,
		logger:  logger.With(slog.String("component", "enforcer")),
	}
	e.unsubscribe = source.Subscribe(func(*model.Session) {
		e.reconcile(TriggerSession)
	})
	return e
}

// Close stops reacting to session changes
func (e *Enforcer) Close() {
	e.unsubscribe()
}

// Decide returns the decision for a surface gated by required under role
func Decide(role model.Role, required model.Capability) Decision {
	allowed := capability.HasCapability(role, required)
	return Decision{Visible: allowed, Enabled: allowed}
}

// RegisterSurface starts tracking a surface and applies the current decision
// immediately. It may be called before or after the session is known. Several
// registrations may share an id; each is kept in sync independently.
func (e *Enforcer) RegisterSurface(id string, required model.Capability, apply ApplyFunc) *Registration {
	r := &Registration{
		handle:   uuid.NewString(),
		id:       id,
		required: required,
		apply:    apply,
		enforcer: e,
	}

	e.mu.Lock()
	e.regs[r.handle] = r
	e.order = append(e.order, r.handle)
	n := len(e.regs)
	e.mu.Unlock()

	e.metrics.Surfaces(n)
	e.logger.Debug("surface registered",
		slog.String("surface", id),
		slog.String("capability", required.String()))

	e.passMu.Lock()
	applied := 0
	if r.sync(e.source.GetRole(), false) {
		applied = 1
	}
	e.passMu.Unlock()
	e.metrics.Reconciled(TriggerRegister, applied)

	return r
}

// RegisterWhenReady waits for a late collaborator to publish its apply
// function, then registers it. It fails with ready.ErrNotReady if the
// collaborator does not appear within timeout (Config.ReadyTimeout if zero).
func (e *Enforcer) RegisterWhenReady(ctx context.Context, sig *ready.Signal[ApplyFunc], id string, required model.Capability, timeout time.Duration) (*Registration, error) {
	if timeout <= 0 {
		timeout = e.cfg.ReadyTimeout
	}

	apply, err := sig.Wait(ctx, timeout)
	if err != nil {
		e.logger.Warn("surface collaborator never became ready",
			slog.String("surface", id),
			slog.Duration("timeout", timeout),
			slog.Any("error", err))
		return nil, fmt.Errorf("surface %q: %w", id, err)
	}
	return e.RegisterSurface(id, required, apply), nil
}

// Reconcile runs one pass over every surface and returns how many were updated
func (e *Enforcer) Reconcile() int {
	return e.reconcile(TriggerManual)
}

func (e *Enforcer) reconcile(trigger string) int {
	e.passMu.Lock()
	defer e.passMu.Unlock()

	role := e.source.GetRole()
	force := trigger == TriggerPoll
	applied := 0
	for _, r := range e.registrations() {
		if r.sync(role, force) {
			applied++
		}
	}

	e.metrics.Reconciled(trigger, applied)
	if applied > 0 && !force {
		e.logger.Debug("surfaces reconciled",
			slog.String("trigger", trigger),
			slog.String("role", string(role)),
			slog.Int("applied", applied))
	}
	return applied
}

// Run re-applies every surface's decision each PollInterval until ctx is done
func (e *Enforcer) Run(ctx context.Context) error {
	tick := make(chan struct{}, 1)

	e.logger.Info("enforcement polling started", slog.Duration("interval", e.cfg.PollInterval))
	for {
		timer := e.sched.AfterFunc(e.cfg.PollInterval, func() {
			select {
			case tick <- struct{}{}:
			default:
			}
		})

		select {
		case <-ctx.Done():
			timer.Stop()
			e.logger.Info("enforcement polling stopped")
			return nil
		case <-tick:
			e.reconcile(TriggerPoll)
		}
	}
}

// Authorize is the invocation-time guard: it checks the capability against
// the session as it is now, whatever any surface currently shows
func (e *Enforcer) Authorize(required model.Capability) error {
	return e.authorize(required, "")
}

func (e *Enforcer) authorize(required model.Capability, surface string) error {
	role := e.source.GetRole()
	if capability.HasCapability(role, required) {
		return nil
	}

	e.metrics.Denied(required.String())
	e.logger.Info("permission denied",
		slog.String("capability", required.String()),
		slog.String("surface", surface),
		slog.String("role", string(role)))
	return &model.PermissionDeniedError{Capability: required, Surface: surface, Role: role}
}

// Surfaces returns the state of every registered surface, ordered by id
func (e *Enforcer) Surfaces() []Status {
	regs := e.registrations()
	out := make([]Status, 0, len(regs))
	for _, r := range regs {
		out = append(out, r.Status())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (e *Enforcer) registrations() []*Registration {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Registration, 0, len(e.order))
	for _, h := range e.order {
		out = append(out, e.regs[h])
	}
	return out
}

func (e *Enforcer) remove(handle string) {
	e.mu.Lock()
	if _, ok := e.regs[handle]; !ok {
		e.mu.Unlock()
		return
	}
	delete(e.regs, handle)
	for i, h := range e.order {
		if h == handle {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	n := len(e.regs)
	e.mu.Unlock()

	e.metrics.Surfaces(n)
}
