package feesource

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a Source from options.
type Factory func(opts Options) Source

// Registry manages source constructors by name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// DefaultRegistry returns a registry with the built-in sources.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register("mempool", func(opts Options) Source { return NewMempool(opts) })
	_ = r.Register("esplora", func(opts Options) Source { return NewEsplora(opts) })
	return r
}

// Register adds a source constructor to the registry.
func (r *Registry) Register(name string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("source %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

// New builds the named source.
func (r *Registry) New(name string, opts Options) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("source %q not found", name)
	}
	return f(opts), nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// List returns all registered source names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
