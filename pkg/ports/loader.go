package ports

import (
	"context"

	"github.com/aretw0/petri/pkg/domain"
)

// DefinitionLoader defines how experiment definitions are retrieved.
// This allows the storage layer (Loam, YAML files, Memory) to be decoupled.
type DefinitionLoader interface {
	// Load returns the named definition.
	// Returns domain.ErrDefinitionNotFound if no such experiment exists.
	Load(ctx context.Context, name string) (*domain.Definition, error)

	// List returns the names of all definitions available.
	List(ctx context.Context) ([]string, error)
}

// Watchable defines an interface for loaders that can notify about backend
// changes. This is typically used for re-validation or dev-mode reload.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying
	// definitions change. It abstracts away the specific event details,
	// signaling only that a reload is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
