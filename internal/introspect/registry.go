package introspect

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a new, unconnected Introspector.
type Factory func() Introspector

// Registry maps dialect names to introspector factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for a dialect, replacing any previous one.
func (r *Registry) Register(dialect string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[dialect] = factory
}

// Dialects returns the registered dialect names, sorted.
func (r *Registry) Dialects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates an introspector for cfg.Dialect and connects it.
func (r *Registry) Open(cfg ConnectionConfig) (Introspector, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Dialect]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported dialect %q (available: %v)", cfg.Dialect, r.Dialects())
	}

	in := factory()
	if err := in.Connect(cfg); err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Dialect, err)
	}
	return in, nil
}
