package macro

import (
	"fmt"
	"sort"
)

// Named is a macro registered under a name in the configuration.
type Named struct {
	Name  string `json:"name" yaml:"name" toml:"name"`
	Macro Macro  `json:"macro" yaml:"macro" toml:"macro"`
}

// Registry holds the named macros of one configuration snapshot.
type Registry struct {
	macros map[string]Macro
}

// NewRegistry validates and registers every named macro. Any empty or
// duplicate name, or any invalid macro, rejects the whole set.
func NewRegistry(named []Named) (*Registry, error) {
	r := &Registry{macros: make(map[string]Macro, len(named))}
	for i, n := range named {
		if n.Name == "" {
			return nil, fmt.Errorf("macros[%d]: missing name", i)
		}
		if _, dup := r.macros[n.Name]; dup {
			return nil, fmt.Errorf("macros[%d]: duplicate macro name %q", i, n.Name)
		}
		if len(n.Macro) == 0 {
			return nil, fmt.Errorf("macro %q: no controls", n.Name)
		}
		if invalid := Check(n.Macro); len(invalid) > 0 {
			return nil, fmt.Errorf("macro %q: invalid control #%d (%s)", n.Name, invalid[0].Index, invalid[0].Type)
		}
		r.macros[n.Name] = n.Macro
	}
	return r, nil
}

// Get returns the macro registered under name.
func (r *Registry) Get(name string) (Macro, bool) {
	m, ok := r.macros[name]
	return m, ok
}

// All returns every registered macro keyed by name.
func (r *Registry) All() map[string]Macro {
	out := make(map[string]Macro, len(r.macros))
	for name, m := range r.macros {
		out[name] = m
	}
	return out
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.macros))
	for name := range r.macros {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
