// Package alias translates between OBS scene names and the user-facing
// aliases configured for them.
package alias

import (
	"errors"
	"fmt"
)

// Pair binds a scene name to its alias.
type Pair struct {
	Name  string `json:"name" yaml:"name" toml:"name"`
	Alias string `json:"alias" yaml:"alias" toml:"alias"`
}

// ErrEmpty is returned for a pair with an empty name or alias.
var ErrEmpty = errors.New("scene alias requires both name and alias")

// Table is an immutable bidirectional lookup built once from config.
type Table struct {
	toName  map[string]string
	toAlias map[string]string
}

// New builds a table. A pair whose name or alias is already registered
// rejects the whole set.
func New(pairs []Pair) (*Table, error) {
	t := &Table{
		toName:  make(map[string]string, len(pairs)),
		toAlias: make(map[string]string, len(pairs)),
	}
	for i, p := range pairs {
		if p.Name == "" || p.Alias == "" {
			return nil, fmt.Errorf("sceneAliases[%d]: %w", i, ErrEmpty)
		}
		if _, dup := t.toAlias[p.Name]; dup {
			return nil, fmt.Errorf("sceneAliases[%d]: duplicate scene name %q", i, p.Name)
		}
		if _, dup := t.toName[p.Alias]; dup {
			return nil, fmt.Errorf("sceneAliases[%d]: duplicate alias %q", i, p.Alias)
		}
		t.toName[p.Alias] = p.Name
		t.toAlias[p.Name] = p.Alias
	}
	return t, nil
}

// Apply returns the scene name for alias, or alias itself on a miss.
func (t *Table) Apply(alias string) string {
	if t == nil {
		return alias
	}
	if name, ok := t.toName[alias]; ok {
		return name
	}
	return alias
}

// Reverse returns the alias of a scene name, or name itself on a miss.
func (t *Table) Reverse(name string) string {
	if t == nil {
		return name
	}
	if alias, ok := t.toAlias[name]; ok {
		return alias
	}
	return name
}

// Len returns the number of registered pairs.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.toName)
}
