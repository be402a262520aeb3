package syncutil

import "fmt"

// Registry hands out named, reusable barriers, created lazily on first
// registration. It exists so the thread manager can address a
// synchronization primitive by name (as the pipeline's per-level barriers
// are addressed) without process-wide statics: one Registry lives per run,
// owned by one thread manager. Callers are expected to guard registration
// and lookup with their own lock (the thread manager's pipeline lock); the
// registry does not take one of its own.
//
// Registering the same name twice is a programming error, not a runtime
// race — it is reported as ErrDuplicateName rather than silently returning
// the existing primitive.
type Registry struct {
	bars map[string]*Barrier
}

// ErrDuplicateName is returned when a barrier name is registered a second
// time.
type ErrDuplicateName struct {
	Kind string // "barrier"
	Name string
}

func (e *ErrDuplicateName) Error() string {
	return fmt.Sprintf("syncutil: %s %q already registered", e.Kind, e.Name)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bars: make(map[string]*Barrier)}
}

// RegisterBarrier creates a new named barrier for n waiters. Returns
// *ErrDuplicateName if name is already registered.
func (r *Registry) RegisterBarrier(name string, n int) (*Barrier, error) {
	if _, ok := r.bars[name]; ok {
		return nil, &ErrDuplicateName{Kind: "barrier", Name: name}
	}
	b := NewBarrier(n)
	r.bars[name] = b
	return b, nil
}

// Barrier returns the barrier previously registered under name, or nil if
// none was registered.
func (r *Registry) Barrier(name string) *Barrier {
	return r.bars[name]
}
