package enforce

import (
	"sync"

	"github.com/mcoot/teachkit/internal/model"
)

// Registration is the handle returned for one registered surface
type Registration struct {
	handle   string
	id       string
	required model.Capability
	apply    ApplyFunc
	enforcer *Enforcer

	mu      sync.Mutex
	last    *Decision
	stale   bool
	removed bool
}

// Status describes a registration for diagnostics
type Status struct {
	ID       string
	Required model.Capability
	Applied  bool
	Decision Decision
}

// ID returns the surface identifier
func (r *Registration) ID() string {
	return r.id
}

// Required returns the gating capability (model.Always for none)
func (r *Registration) Required() model.Capability {
	return r.required
}

// Invalidate marks the surface as reset by foreign code; the next pass re-applies its decision
func (r *Registration) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stale = true
}

// Remove stops tracking the surface
func (r *Registration) Remove() {
	r.mu.Lock()
	r.removed = true
	r.mu.Unlock()
	r.enforcer.remove(r.handle)
}

// Invoke runs fn only if the current session holds the surface's capability.
// The check happens now, independent of what the surface was last told to show.
func (r *Registration) Invoke(fn func() error) error {
	if err := r.enforcer.authorize(r.required, r.id); err != nil {
		return err
	}
	return fn()
}

// Status returns the last applied decision
func (r *Registration) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Status{ID: r.id, Required: r.required}
	if r.last != nil {
		st.Applied = true
		st.Decision = *r.last
	}
	return st
}

// sync applies the decision for role if it differs from the last one applied
// or the surface was invalidated. With force set it applies regardless, since
// foreign code may have reset the surface without telling anyone.
// Callers hold the enforcer's passMu.
func (r *Registration) sync(role model.Role, force bool) bool {
	d := Decide(role, r.required)

	r.mu.Lock()
	if r.removed || (!force && r.last != nil && *r.last == d && !r.stale) {
		r.mu.Unlock()
		return false
	}
	r.last = &d
	r.stale = false
	r.mu.Unlock()

	r.apply(d)
	return true
}
