package petri

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/petri/internal/logging"
	"github.com/aretw0/petri/internal/runtime"
	"github.com/aretw0/petri/pkg/adapters/memory"
	"github.com/aretw0/petri/pkg/distribute"
	"github.com/aretw0/petri/pkg/domain"
	"github.com/aretw0/petri/pkg/ports"
)

// Dish is the high-level entry point for the Petri library.
// It wraps the internal runtime and provides a simplified API for consumers:
// one Dish drives one experiment, and each Run is one complete cycle over
// the population.
type Dish struct {
	engine *runtime.Engine
	store  ports.SubjectStore
	source ports.SubjectSource
	sink   ports.SubjectSink
	logger *slog.Logger
	hooks  domain.RunHooks

	engineOpts []runtime.EngineOption
}

// Option defines a functional option for configuring the Dish.
type Option func(*Dish)

// WithStore injects the subject store used as both source and sink,
// bypassing the default in-memory store.
func WithStore(store ports.SubjectStore) Option {
	return func(d *Dish) {
		d.store = store
	}
}

// WithSource overrides where the population is fetched from. The store keeps
// serving writes and lookups.
func WithSource(source ports.SubjectSource) Option {
	return func(d *Dish) {
		d.source = source
	}
}

// WithSink overrides where the updated batch is written. The store keeps
// serving reads and lookups.
func WithSink(sink ports.SubjectSink) Option {
	return func(d *Dish) {
		d.sink = sink
	}
}

// WithIntake attaches a feed of externally observed subjects. New IDs join
// the population unassigned; known IDs only refresh their attributes.
func WithIntake(feed ports.SubjectSource) Option {
	return func(d *Dish) {
		d.engineOpts = append(d.engineOpts, runtime.WithIntake(feed))
	}
}

// WithDistributor overrides the distributor the definition's mode selects.
func WithDistributor(dist distribute.Distributor) Option {
	return func(d *Dish) {
		d.engineOpts = append(d.engineOpts, runtime.WithDistributor(dist))
	}
}

// WithHooks registers observability hooks fired during each run.
func WithHooks(hooks domain.RunHooks) Option {
	return func(d *Dish) {
		d.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dish) {
		d.logger = logger
	}
}

// WithLocker serializes runs of this experiment across replicas. The TTL
// bounds how long a crashed holder keeps the experiment locked.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(d *Dish) {
		d.engineOpts = append(d.engineOpts, runtime.WithLocker(locker, ttl))
	}
}

// WithClock overrides the time source used for join timestamps and age
// filters. Tests use it to pin time.
func WithClock(clock func() time.Time) Option {
	return func(d *Dish) {
		d.engineOpts = append(d.engineOpts, runtime.WithClock(clock))
	}
}

// New initializes a Dish for the given experiment definition.
// The definition is validated up front; a ConfigError here is fatal and no
// run can start. By default subjects live in an in-memory store, the logger
// discards, and the clock is the system clock.
func New(def *domain.Definition, opts ...Option) (*Dish, error) {
	if def == nil {
		return nil, &domain.ConfigError{Field: "definition", Reason: "experiment definition is required"}
	}

	d := &Dish{}
	for _, opt := range opts {
		opt(d)
	}

	if d.store == nil {
		d.store = memory.New()
	}
	if d.source != nil || d.sink != nil {
		d.store = &splitStore{SubjectStore: d.store, source: d.source, sink: d.sink}
	}

	// The experiment tag below needs a non-nil logger.
	if d.logger == nil {
		d.logger = logging.NewNop()
	}
	d.logger = d.logger.With("experiment", def.Name)

	engineOpts := []runtime.EngineOption{
		runtime.WithHooks(d.hooks),
		runtime.WithLogger(d.logger),
	}
	engineOpts = append(engineOpts, d.engineOpts...)

	engine, err := runtime.NewEngine(def, d.store, engineOpts...)
	if err != nil {
		return nil, err
	}
	d.engine = engine

	return d, nil
}

// Run executes one experiment cycle: fetch, screen, distribute, advance,
// persist. It is self-contained; all state is rehydrated from the source on
// every call.
func (d *Dish) Run(ctx context.Context) (*domain.Report, error) {
	return d.engine.Run(ctx)
}

// Definition returns the immutable experiment definition.
func (d *Dish) Definition() *domain.Definition {
	return d.engine.Definition()
}

// Store returns the effective subject store, for inspection surfaces like
// the HTTP API.
func (d *Dish) Store() ports.SubjectStore {
	return d.store
}

// splitStore lets a Dish read from one collaborator and write to another
// while lookups keep hitting the base store.
type splitStore struct {
	ports.SubjectStore
	source ports.SubjectSource
	sink   ports.SubjectSink
}

func (s *splitStore) Fetch(ctx context.Context) ([]domain.Subject, error) {
	if s.source != nil {
		return s.source.Fetch(ctx)
	}
	return s.SubjectStore.Fetch(ctx)
}

func (s *splitStore) Write(ctx context.Context, subjects []domain.Subject) error {
	if s.sink != nil {
		return s.sink.Write(ctx, subjects)
	}
	return s.SubjectStore.Write(ctx, subjects)
}
