package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/petri/pkg/domain"
)

// Metrics holds the Prometheus collectors for experiment runs.
type Metrics struct {
	runs        *prometheus.CounterVec
	assignments *prometheus.CounterVec
	advances    *prometheus.CounterVec
	completions *prometheus.CounterVec
	holds       *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors. Pass
// prometheus.DefaultRegisterer to use the global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "petri_runs_total",
				Help: "Total number of experiment runs",
			},
			[]string{"experiment"},
		),
		assignments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "petri_assignments_total",
				Help: "Total number of group assignments",
			},
			[]string{"experiment", "group"},
		),
		advances: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "petri_advances_total",
				Help: "Total number of stage advances",
			},
			[]string{"experiment", "to_stage"},
		),
		completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "petri_completions_total",
				Help: "Total number of subjects finishing the pipeline",
			},
			[]string{"experiment"},
		),
		holds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "petri_holds_total",
				Help: "Total number of subjects held by failing predicates",
			},
			[]string{"experiment", "stage"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "petri_run_duration_seconds",
				Help: "Duration of experiment runs",
			},
			[]string{"experiment"},
		),
	}

	reg.MustRegister(m.runs, m.assignments, m.advances, m.completions, m.holds, m.runDuration)
	return m
}

// Hooks returns run hooks feeding the collectors.
func (m *Metrics) Hooks() domain.RunHooks {
	return domain.RunHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunStartEvent) {
			m.runs.WithLabelValues(e.Experiment).Inc()
		},
		OnAssign: func(ctx context.Context, e *domain.AssignEvent) {
			m.assignments.WithLabelValues(e.Experiment, e.Group).Inc()
		},
		OnAdvance: func(ctx context.Context, e *domain.AdvanceEvent) {
			m.advances.WithLabelValues(e.Experiment, e.To).Inc()
		},
		OnComplete: func(ctx context.Context, e *domain.CompleteEvent) {
			m.completions.WithLabelValues(e.Experiment).Inc()
		},
		OnHold: func(ctx context.Context, e *domain.HoldEvent) {
			m.holds.WithLabelValues(e.Experiment, e.Stage).Inc()
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEndEvent) {
			if e.Report != nil {
				m.runDuration.WithLabelValues(e.Experiment).Observe(e.Report.Duration().Seconds())
			}
		},
	}
}
