package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a fresh stage set for one unit. Engines that keep per-unit
// state must not share it across the values a Factory returns.
type Factory func() Stages

// Registry maps engine names to stage-set factories for a single application
// instance. The CLI selects one by name; tests register their own.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a named engine. Registering the same name twice is a
// programmer error.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("engine %q already registered", name))
	}
	r.factories[name] = f
}

// Stages returns a fresh stage set for the named engine.
func (r *Registry) Stages(name string) (Stages, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown release engine %q (registered: %v)", name, r.Names())
	}
	return f(), nil
}

// Names lists the registered engine names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry with the built-in engines.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("noop", func() Stages { return Noop{} })
	return r
}
