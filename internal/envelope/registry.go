package envelope

import (
	"fmt"
	"sort"
)

// Factory returns a fresh, empty instance of a Composite implementation.
type Factory func() Composite

// Registry maps composite names to factories so that extension payloads can
// be decoded back into their original Go types. A Registry is immutable once
// built and may be shared between goroutines. The nil *Registry is valid and
// knows no extensions.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds a registry from the given factories. Each factory is
// called once to learn its CompositeName.
func NewRegistry(factories ...Factory) (*Registry, error) {
	r := &Registry{factories: make(map[string]Factory, len(factories))}
	for _, f := range factories {
		proto := f()
		if proto == nil {
			return nil, fmt.Errorf("envelope: factory returned nil composite")
		}
		name := proto.CompositeName()
		if name == "" {
			return nil, fmt.Errorf("envelope: composite %T has an empty name", proto)
		}
		if _, ok := r.factories[name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateComposite, name)
		}
		r.factories[name] = f
	}
	return r, nil
}

// Names returns the registered composite names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) (Factory, bool) {
	if r == nil {
		return nil, false
	}
	f, ok := r.factories[name]
	return f, ok
}
