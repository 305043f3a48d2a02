package cli

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/petri"
	"github.com/aretw0/petri/internal/logging"
	"github.com/aretw0/petri/pkg/adapters/memory"
	"github.com/aretw0/petri/pkg/domain"
	"github.com/aretw0/petri/pkg/ports"
)

// Lab serves a directory of experiments. Definitions come from the loader on
// every call, so edits are picked up without a restart; each experiment keeps
// its own store so repeated runs advance the same population. It backs the
// HTTP and MCP surfaces.
type Lab struct {
	loader ports.DefinitionLoader
	logger *slog.Logger
	hooks  domain.RunHooks

	mu     sync.Mutex
	stores map[string]ports.SubjectStore
	locks  map[string]*sync.Mutex
}

// NewLab wires a lab over a definition loader. The hooks apply to every run
// (metrics, audit logging).
func NewLab(loader ports.DefinitionLoader, logger *slog.Logger, hooks domain.RunHooks) *Lab {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Lab{
		loader: loader,
		logger: logger,
		hooks:  hooks,
		stores: make(map[string]ports.SubjectStore),
		locks:  make(map[string]*sync.Mutex),
	}
}

// ListExperiments returns the names of every definition in the directory.
func (l *Lab) ListExperiments(ctx context.Context) ([]string, error) {
	return l.loader.List(ctx)
}

// GetDefinition loads one definition by name.
func (l *Lab) GetDefinition(ctx context.Context, name string) (*domain.Definition, error) {
	return l.loader.Load(ctx, name)
}

// RunExperiment drives one cycle for the named experiment. A non-nil seed
// overrides the definition's.
func (l *Lab) RunExperiment(ctx context.Context, name string, seed *uint64) (*domain.Report, error) {
	def, err := l.loader.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if seed != nil {
		def.Seed = *seed
	}

	// Runs over the same population must not interleave.
	lock := l.runLock(name)
	lock.Lock()
	defer lock.Unlock()

	dish, err := petri.New(def,
		petri.WithStore(l.store(name)),
		petri.WithLogger(l.logger),
		petri.WithHooks(l.hooks),
	)
	if err != nil {
		return nil, err
	}
	return dish.Run(ctx)
}

// GetSubjects returns the experiment's current population. Unknown names
// fail the same way GetDefinition does.
func (l *Lab) GetSubjects(ctx context.Context, name string) ([]domain.Subject, error) {
	if _, err := l.loader.Load(ctx, name); err != nil {
		return nil, err
	}
	return l.store(name).Fetch(ctx)
}

func (l *Lab) store(name string) ports.SubjectStore {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.stores[name]
	if !ok {
		s = memory.New()
		l.stores[name] = s
	}
	return s
}

func (l *Lab) runLock(name string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[name]
	if !ok {
		m = &sync.Mutex{}
		l.locks[name] = m
	}
	return m
}
