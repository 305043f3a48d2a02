package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/petri/pkg/domain"
)

// Loader implements ports.DefinitionLoader over a fixed set of definitions.
// Useful for embedding experiments in a binary or serving DSL-built
// definitions without touching the filesystem.
type Loader struct {
	defs map[string]*domain.Definition
}

// NewLoader validates the given definitions and indexes them by name.
func NewLoader(defs ...*domain.Definition) (*Loader, error) {
	l := &Loader{defs: make(map[string]*domain.Definition, len(defs))}
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, exists := l.defs[def.Name]; exists {
			return nil, fmt.Errorf("duplicate definition %q", def.Name)
		}
		l.defs[def.Name] = def
	}
	return l, nil
}

// Load returns the definition registered under name.
func (l *Loader) Load(ctx context.Context, name string) (*domain.Definition, error) {
	def, ok := l.defs[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, domain.ErrDefinitionNotFound)
	}
	return def, nil
}

// List returns the registered definition names in lexical order.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(l.defs))
	for name := range l.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
