package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/petri/internal/logging"
	"github.com/aretw0/petri/internal/presentation/tui"
	"github.com/aretw0/petri/pkg/domain"
)

// createLogger configures the application logger.
// In debug mode, it writes to Stderr (to keep Stdout for reports).
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug, logging.FormatText)
	}
	return logging.NewNop()
}

// printSystemMessage prints a standardized system message to stdout.
func printSystemMessage(format string, args ...any) {
	fmt.Printf(">>> %s\n", fmt.Sprintf(format, args...))
}

func createDebugHooks(logger *slog.Logger) domain.RunHooks {
	return domain.RunHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunStartEvent) {
			logger.Debug("Run Start", "run_id", e.RunID, "fetched", e.Fetched)
		},
		OnAssign: func(ctx context.Context, e *domain.AssignEvent) {
			logger.Debug("Assign", "subject_id", e.SubjectID, "group", e.Group)
		},
		OnAdvance: func(ctx context.Context, e *domain.AdvanceEvent) {
			logger.Debug("Advance", "subject_id", e.SubjectID, "from", e.From, "to", e.To)
		},
		OnComplete: func(ctx context.Context, e *domain.CompleteEvent) {
			logger.Debug("Complete", "subject_id", e.SubjectID)
		},
		OnHold: func(ctx context.Context, e *domain.HoldEvent) {
			logger.Debug("Hold", "subject_id", e.SubjectID, "stage", e.Stage, "err", e.Err)
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEndEvent) {
			logger.Debug("Run End", "run_id", e.RunID, "held", e.Report.Held)
		},
	}
}

// renderReport prints the run report to stdout: styled Markdown on a
// terminal, indented JSON otherwise or when forced by --json.
func renderReport(report *domain.Report, jsonMode bool) error {
	if jsonMode || !tui.IsTTY() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	markdown := tui.ReportMarkdown(report)
	render := tui.NewRenderer()
	out, err := render(markdown)
	if err != nil {
		// Styling failed; the raw markdown is still readable.
		fmt.Println(markdown)
		return nil
	}
	fmt.Print(out)
	return nil
}
