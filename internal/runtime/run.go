package runtime

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/petri/pkg/distribute"
	"github.com/aretw0/petri/pkg/domain"
	"github.com/aretw0/petri/pkg/schema"
)

// Run executes one cycle: fetch and merge the population, screen it through
// the top-level filters, assign newcomers, advance subjects whose stage
// predicate passes, and write the included batch back.
//
// Failed predicates hold individual subjects and never abort the run; only
// source, sink, and lock failures do.
func (e *Engine) Run(ctx context.Context) (*domain.Report, error) {
	now := e.clock()
	runID := uuid.NewString()

	report := &domain.Report{
		RunID:      runID,
		Experiment: e.def.Name,
		StartedAt:  now,
		Groups:     make(map[string]int),
		Stages:     make(map[string]int),
	}

	if e.locker != nil {
		unlock, err := e.locker.Lock(ctx, "run:"+e.def.Name, e.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to lock run for %s: %w", e.def.Name, err)
		}
		defer func() {
			// Release even when the run context has been canceled.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				e.logger.Warn("failed to release run lock", "experiment", e.def.Name, "err", err)
			}
		}()
	}

	population, err := e.fetchPopulation(ctx, now)
	if err != nil {
		return nil, err
	}
	report.Fetched = len(population)

	e.logger.Debug("run started", "run_id", runID, "experiment", e.def.Name, "fetched", report.Fetched)
	e.emitRunStart(ctx, runID, report.Fetched)

	history := distribute.BuildHistory(population, e.def.StratifyBy...)

	included := make([]*domain.Subject, 0, len(population))
	for i := range population {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		subject := &population[i]
		if subject.Completed() {
			continue
		}

		ok, err := e.screen(subject, now)
		if err != nil {
			e.hold(ctx, runID, report, subject, err)
			continue
		}
		if !ok {
			report.Excluded++
			continue
		}

		report.Included++
		included = append(included, subject)
		e.step(ctx, runID, report, subject, history, now)
	}

	for _, subject := range included {
		if subject.Assigned() {
			report.Groups[subject.Group]++
		}
		report.Stages[subject.Stage]++
	}

	if err := e.writeBatch(ctx, included); err != nil {
		return nil, err
	}

	report.FinishedAt = e.clock()
	e.logger.Info("run finished",
		"run_id", runID,
		"experiment", e.def.Name,
		"included", report.Included,
		"assigned", report.Assigned,
		"advanced", report.Advanced,
		"completed", report.Completed,
		"held", report.Held,
	)
	e.emitRunEnd(ctx, runID, report)

	return report, nil
}

// step moves one included subject through at most one stage transition.
// Unassigned subjects are distributed first; assignment must never be
// pending while a subject moves through the pipeline.
func (e *Engine) step(ctx context.Context, runID string, report *domain.Report, subject *domain.Subject, history *distribute.History, now time.Time) {
	if e.schema != nil {
		if err := schema.Validate(e.schema, subject.Attributes); err != nil {
			e.hold(ctx, runID, report, subject, err)
			return
		}
	}

	if !subject.Assigned() {
		label, err := e.dist.Assign(subject, e.def.Groups, history)
		if err != nil {
			e.hold(ctx, runID, report, subject, err)
			return
		}

		subject.Group = label
		history.Record(subject)
		report.Assigned++
		e.logger.Debug("subject assigned", "subject_id", subject.ID, "group", label)
		e.emitAssign(ctx, runID, subject)

		if subject.Stage == domain.StageUnassigned {
			// Entering the pipeline is this subject's transition for the
			// run; the first stage's own predicate applies from the next.
			subject.Stage = e.def.FirstStage()
			return
		}
		// Already placed by the source. The current stage's predicate
		// still applies this run.
	}

	if flt := e.stageFilters[subject.Stage]; flt != nil {
		ok, err := flt.Eval(subject, now)
		if err != nil {
			e.hold(ctx, runID, report, subject, err)
			return
		}
		if !ok {
			return
		}
	}

	next, ok := e.def.NextStage(subject.Stage)
	if !ok {
		// A stage the pipeline does not know. Hold rather than guess.
		e.hold(ctx, runID, report, subject, fmt.Errorf("unknown stage %q", subject.Stage))
		return
	}

	from := subject.Stage
	subject.Stage = next

	if next == domain.StageComplete {
		report.Completed++
		e.logger.Debug("subject completed", "subject_id", subject.ID)
		e.emitComplete(ctx, runID, subject)
		return
	}

	report.Advanced++
	e.logger.Debug("subject advanced", "subject_id", subject.ID, "from", from, "to", next)
	e.emitAdvance(ctx, runID, subject, from, next)
}

// screen applies the top-level include and exclude filters.
func (e *Engine) screen(subject *domain.Subject, now time.Time) (bool, error) {
	for _, flt := range e.include {
		ok, err := flt.Eval(subject, now)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	for _, flt := range e.exclude {
		ok, err := flt.Eval(subject, now)
		if err != nil {
			return false, err
		}
		if ok {
			return false, nil
		}
	}
	return true, nil
}

// hold records a non-fatal per-subject failure. The subject keeps its
// current group and stage.
func (e *Engine) hold(ctx context.Context, runID string, report *domain.Report, subject *domain.Subject, cause error) {
	report.Held++
	report.Holds = append(report.Holds, domain.Hold{
		SubjectID: subject.ID,
		Stage:     subject.Stage,
		Reason:    cause.Error(),
	})

	ferr := &domain.FilterError{SubjectID: subject.ID, Stage: subject.Stage, Err: cause}
	e.logger.Warn("subject held", "subject_id", subject.ID, "stage", subject.Stage, "err", cause)
	e.emitHold(ctx, runID, subject, ferr)
}

func (e *Engine) fetchPopulation(ctx context.Context, now time.Time) ([]domain.Subject, error) {
	stored, err := e.store.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}

	var incoming []domain.Subject
	if e.intake != nil {
		if incoming, err = e.intake.Fetch(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
		}
	}

	return mergePopulation(stored, incoming, now), nil
}

// mergePopulation combines the authoritative store state with the intake
// feed and orders the result by ID, so runs are reproducible regardless of
// backend iteration order.
func mergePopulation(stored, incoming []domain.Subject, now time.Time) []domain.Subject {
	byID := make(map[string]*domain.Subject, len(stored)+len(incoming))
	for i := range stored {
		clone := stored[i].Clone()
		if clone.Stage == "" {
			clone.Stage = domain.StageUnassigned
		}
		if clone.Joined.IsZero() {
			clone.Joined = now
		}
		byID[clone.ID] = clone
	}

	for i := range incoming {
		in := &incoming[i]
		if existing, ok := byID[in.ID]; ok {
			// The store owns assignment state; intake only refreshes
			// attributes.
			if in.Attributes != nil {
				existing.Attributes = domain.CopyAttributes(in.Attributes)
			}
			continue
		}

		clone := in.Clone()
		if clone.Stage == "" {
			clone.Stage = domain.StageUnassigned
		}
		if clone.Joined.IsZero() {
			clone.Joined = now
		}
		byID[clone.ID] = clone
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	population := make([]domain.Subject, 0, len(ids))
	for _, id := range ids {
		population = append(population, *byID[id])
	}
	return population
}

func (e *Engine) writeBatch(ctx context.Context, included []*domain.Subject) error {
	if len(included) == 0 {
		return nil
	}

	batch := make([]domain.Subject, len(included))
	for i, subject := range included {
		batch[i] = *subject
	}
	if err := e.store.Write(ctx, batch); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSinkUnavailable, err)
	}
	return nil
}
