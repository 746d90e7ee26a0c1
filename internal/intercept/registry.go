package intercept

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"
)

// Registry owns all interceptor registrations for one session. It is
// thread-safe: mutations take a write lock, pipeline runs select their
// handler snapshot under a read lock and execute outside it, so a
// registration change never affects a run already in flight.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
	// order tracks first-registration sequence for stable priority
	// tie-breaking. Replacing an entry keeps its original position.
	order    map[string]int
	seq      int
	session  string
	logger   *slog.Logger
	observer Observer
}

// NewRegistry creates an empty registry bound to a session identifier.
// The logger is the diagnostic sink for registry and pipeline events.
func NewRegistry(sessionID string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[string]Registration),
		order:   make(map[string]int),
		session: sessionID,
		logger:  logger,
	}
}

// Observe sets the execution observer. Call before the first pipeline run.
func (r *Registry) Observe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = o
}

// SessionID returns the session identifier this registry was built for.
func (r *Registry) SessionID() string { return r.session }

// Register inserts or replaces the entry keyed by reg.ID. Replacement is
// logged but never fails; runs already selecting handlers are unaffected.
func (r *Registry) Register(reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[reg.ID]; exists {
		r.logger.Debug("intercept: replacing existing", "id", reg.ID)
	} else {
		r.order[reg.ID] = r.seq
		r.seq++
	}
	r.entries[reg.ID] = reg
	r.logger.Debug("intercept: registered", "id", reg.ID, "name", reg.Name)
}

// Unregister removes the entry if present and reports whether it did.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	delete(r.order, id)
	r.logger.Debug("intercept: unregistered", "id", id)
	return true
}

// Get returns the registration for id, if any.
func (r *Registry) Get(id string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[id]
	return reg, ok
}

// All returns a snapshot of every registration in registration order.
// Mutating the returned slice does not affect the registry.
func (r *Registry) All() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// Clear removes every registration.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[string]Registration)
	r.order = make(map[string]int)
	r.logger.Debug("intercept: cleared all")
}

// snapshotLocked copies the entries sorted by registration sequence.
// Callers must hold at least a read lock.
func (r *Registry) snapshotLocked() []Registration {
	regs := make([]Registration, 0, len(r.entries))
	for _, reg := range r.entries {
		regs = append(regs, reg)
	}
	slices.SortFunc(regs, func(a, b Registration) int {
		return cmp.Compare(r.order[a.ID], r.order[b.ID])
	})
	return regs
}

// selectHandlers snapshots the registrations eligible for one pipeline run:
// enabled, with a handler for the direction, sorted by descending priority.
// Registration order breaks ties (stable sort over the insertion-ordered
// snapshot).
func (r *Registry) selectHandlers(dir Direction) []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var selected []Registration
	for _, reg := range r.snapshotLocked() {
		if !reg.enabled() {
			continue
		}
		switch dir {
		case DirInput:
			if reg.OnInput == nil {
				continue
			}
		case DirOutput:
			if reg.OnOutput == nil {
				continue
			}
		}
		selected = append(selected, reg)
	}
	slices.SortStableFunc(selected, func(a, b Registration) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
	return selected
}
