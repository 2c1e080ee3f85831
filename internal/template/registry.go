package template

import (
	"sort"
	"sync"
)

// HelperFunc implements a template helper. args are the evaluated
// positional arguments; opts carries hash arguments, the current context
// and, for block helpers, the inner and inverse programs.
type HelperFunc func(args []any, opts *Options) (any, error)

// Registry stores helpers by name. Engines hold a reference to it and
// snapshot its contents at every compilation.
type Registry struct {
	mu      sync.RWMutex
	helpers map[string]HelperFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		helpers: make(map[string]HelperFunc),
	}
}

// Register adds a helper. Registering an existing name replaces it.
func (r *Registry) Register(name string, fn HelperFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.helpers[name] = fn
}

// Lookup retrieves a helper by name.
func (r *Registry) Lookup(name string) (HelperFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.helpers[name]
	return fn, ok
}

// Names returns the registered helper names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.helpers))
	for name := range r.helpers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered helpers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.helpers)
}

// Snapshot returns a copy of the current helper table.
func (r *Registry) Snapshot() map[string]HelperFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]HelperFunc, len(r.helpers))
	for name, fn := range r.helpers {
		out[name] = fn
	}
	return out
}
