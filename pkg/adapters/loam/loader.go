package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"

	"github.com/aretw0/petri/pkg/domain"
)

// Loader adapts the Loam library to the ports.DefinitionLoader interface.
// Experiments live as markdown documents in a Loam repository: the
// frontmatter carries the protocol, the body becomes the description.
type Loader struct {
	Repo *loam.TypedRepository[DefinitionMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[DefinitionMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes a strict, read-only Loam repository rooted at dir and
// returns a loader over it.
func Open(dir string) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve definition directory: %w", err)
	}

	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open loam repository: %w", err)
	}

	return New(loam.NewTypedRepository[DefinitionMetadata](repo)), nil
}

// Load retrieves and validates the named definition. A failed direct lookup
// is reported as a missing definition.
func (l *Loader) Load(ctx context.Context, name string) (*domain.Definition, error) {
	doc, err := l.Repo.Get(ctx, trimExtension(name))
	if err != nil {
		return nil, fmt.Errorf("%q: %w", name, domain.ErrDefinitionNotFound)
	}

	def, err := doc.Data.ToDefinition(trimExtension(doc.ID), doc.Content)
	if err != nil {
		return nil, fmt.Errorf("definition %q: %w", name, err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("definition %q: %w", name, err)
	}
	return def, nil
}

// List returns all experiment names in the repository.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	names := make([]string, 0, len(docs))

	for _, doc := range docs {
		// Use the name from metadata if available, otherwise the filename.
		raw := doc.Data.Name
		if raw == "" {
			raw = doc.ID
		}
		name := trimExtension(raw)

		// Collision Detection
		if existing, ok := seen[name]; ok {
			return nil, fmt.Errorf("collision detected: experiment %q is defined in both %q and %q", name, existing, doc.ID)
		}
		seen[name] = doc.ID
		names = append(names, name)
	}

	sort.Strings(names)
	return names, nil
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				// Coalesce bursts: one pending notification is enough.
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ch, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
