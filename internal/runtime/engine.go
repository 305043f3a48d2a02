// Package runtime implements the run cycle that moves an experiment
// population through its pipeline.
package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/petri/internal/logging"
	"github.com/aretw0/petri/pkg/distribute"
	"github.com/aretw0/petri/pkg/domain"
	"github.com/aretw0/petri/pkg/ports"
	"github.com/aretw0/petri/pkg/schema"
)

// Engine executes run cycles for a single experiment.
type Engine struct {
	def    *domain.Definition
	store  ports.SubjectStore
	intake ports.SubjectSource
	dist   distribute.Distributor
	hooks  domain.RunHooks
	logger *slog.Logger
	clock  func() time.Time

	locker  ports.DistributedLocker
	lockTTL time.Duration

	schema       schema.Schema
	include      []domain.Filter
	exclude      []domain.Filter
	stageFilters map[string]domain.Filter
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithIntake attaches a feed of externally sourced subjects. New IDs join
// the population unassigned; known IDs only refresh their attributes.
func WithIntake(source ports.SubjectSource) EngineOption {
	return func(e *Engine) {
		e.intake = source
	}
}

// WithDistributor overrides the distributor derived from the definition.
func WithDistributor(d distribute.Distributor) EngineOption {
	return func(e *Engine) {
		e.dist = d
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.RunHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source. Tests use it to pin min_age filters
// and join timestamps.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithLocker serializes runs across processes. The TTL caps how long a
// crashed process keeps the experiment locked.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) EngineOption {
	return func(e *Engine) {
		e.locker = locker
		e.lockTTL = ttl
	}
}

// NewEngine validates the definition, compiles its filters and schema, and
// wires the distributor.
func NewEngine(def *domain.Definition, store ports.SubjectStore, opts ...EngineOption) (*Engine, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		def:    def,
		store:  store,
		logger: logging.NewNop(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.dist == nil {
		dist, err := distribute.ForDefinition(def)
		if err != nil {
			return nil, err
		}
		e.dist = dist
	}

	var err error
	if e.include, err = domain.CompileAll(def.Include); err != nil {
		return nil, err
	}
	if e.exclude, err = domain.CompileAll(def.Exclude); err != nil {
		return nil, err
	}

	e.stageFilters = make(map[string]domain.Filter, len(def.Stages))
	for _, stage := range def.Stages {
		if stage.Filter == nil {
			continue
		}
		flt, err := stage.Filter.Compile()
		if err != nil {
			return nil, err
		}
		e.stageFilters[stage.Name] = flt
	}

	if len(def.Attributes) > 0 {
		sch, err := schema.ParseTypeMap(def.Attributes)
		if err != nil {
			return nil, &domain.ConfigError{Field: "attributes", Reason: err.Error()}
		}
		e.schema = sch
	}

	return e, nil
}

// Definition returns the immutable experiment configuration.
func (e *Engine) Definition() *domain.Definition {
	return e.def
}

// Store exposes the subject store for inspection surfaces.
func (e *Engine) Store() ports.SubjectStore {
	return e.store
}

// Event emission. All hooks are optional; every event is stamped when fired.

func (e *Engine) eventBase(runID string) domain.EventBase {
	return domain.EventBase{
		Timestamp:  e.clock(),
		RunID:      runID,
		Experiment: e.def.Name,
	}
}

func (e *Engine) emitRunStart(ctx context.Context, runID string, fetched int) {
	if e.hooks.OnRunStart != nil {
		e.hooks.OnRunStart(ctx, &domain.RunStartEvent{EventBase: e.eventBase(runID), Fetched: fetched})
	}
}

func (e *Engine) emitAssign(ctx context.Context, runID string, subject *domain.Subject) {
	if e.hooks.OnAssign != nil {
		e.hooks.OnAssign(ctx, &domain.AssignEvent{
			EventBase: e.eventBase(runID),
			SubjectID: subject.ID,
			Group:     subject.Group,
		})
	}
}

func (e *Engine) emitAdvance(ctx context.Context, runID string, subject *domain.Subject, from, to string) {
	if e.hooks.OnAdvance != nil {
		e.hooks.OnAdvance(ctx, &domain.AdvanceEvent{
			EventBase: e.eventBase(runID),
			SubjectID: subject.ID,
			From:      from,
			To:        to,
		})
	}
}

func (e *Engine) emitComplete(ctx context.Context, runID string, subject *domain.Subject) {
	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(ctx, &domain.CompleteEvent{
			EventBase: e.eventBase(runID),
			SubjectID: subject.ID,
		})
	}
}

func (e *Engine) emitHold(ctx context.Context, runID string, subject *domain.Subject, cause error) {
	if e.hooks.OnHold != nil {
		e.hooks.OnHold(ctx, &domain.HoldEvent{
			EventBase: e.eventBase(runID),
			SubjectID: subject.ID,
			Stage:     subject.Stage,
			Err:       cause,
		})
	}
}

func (e *Engine) emitRunEnd(ctx context.Context, runID string, report *domain.Report) {
	if e.hooks.OnRunEnd != nil {
		e.hooks.OnRunEnd(ctx, &domain.RunEndEvent{EventBase: e.eventBase(runID), Report: report})
	}
}
