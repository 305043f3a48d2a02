package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/petri/pkg/domain"
)

// NewLoggingHooks returns run hooks that log every engine event.
func NewLoggingHooks(logger *slog.Logger) domain.RunHooks {
	return domain.RunHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunStartEvent) {
			logger.Info("run_start",
				"run_id", e.RunID,
				"experiment", e.Experiment,
				"fetched", e.Fetched,
			)
		},
		OnAssign: func(ctx context.Context, e *domain.AssignEvent) {
			logger.Info("assign",
				"subject_id", e.SubjectID,
				"group", e.Group,
			)
		},
		OnAdvance: func(ctx context.Context, e *domain.AdvanceEvent) {
			logger.Info("advance",
				"subject_id", e.SubjectID,
				"from", e.From,
				"to", e.To,
			)
		},
		OnComplete: func(ctx context.Context, e *domain.CompleteEvent) {
			logger.Info("complete", "subject_id", e.SubjectID)
		},
		OnHold: func(ctx context.Context, e *domain.HoldEvent) {
			logger.Warn("hold",
				"subject_id", e.SubjectID,
				"stage", e.Stage,
				"err", e.Err,
			)
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEndEvent) {
			logger.Info("run_end",
				"run_id", e.RunID,
				"completed", e.Report.Completed,
				"held", e.Report.Held,
			)
		},
	}
}
