package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/petri/pkg/domain"
)

// ReportMarkdown renders a run report as a markdown document, ready for the
// glamour renderer or for plain output.
func ReportMarkdown(report *domain.Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Run Report: %s\n\n", report.Experiment)
	fmt.Fprintf(&sb, "Run `%s` finished in %s.\n\n", report.RunID, report.Duration())

	sb.WriteString("| Metric | Count |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Fetched | %d |\n", report.Fetched)
	fmt.Fprintf(&sb, "| Included | %d |\n", report.Included)
	fmt.Fprintf(&sb, "| Excluded | %d |\n", report.Excluded)
	fmt.Fprintf(&sb, "| Assigned | %d |\n", report.Assigned)
	fmt.Fprintf(&sb, "| Advanced | %d |\n", report.Advanced)
	fmt.Fprintf(&sb, "| Completed | %d |\n", report.Completed)
	fmt.Fprintf(&sb, "| Held | %d |\n", report.Held)

	if len(report.Groups) > 0 {
		sb.WriteString("\n## Groups\n\n")
		for _, label := range sortedKeys(report.Groups) {
			fmt.Fprintf(&sb, "- `%s`: %d\n", label, report.Groups[label])
		}
	}

	if len(report.Stages) > 0 {
		sb.WriteString("\n## Stages\n\n")
		for _, name := range sortedKeys(report.Stages) {
			fmt.Fprintf(&sb, "- `%s`: %d\n", name, report.Stages[name])
		}
	}

	if len(report.Holds) > 0 {
		sb.WriteString("\n## Holds\n\n")
		for _, hold := range report.Holds {
			fmt.Fprintf(&sb, "- `%s` at `%s`: %s\n", hold.SubjectID, hold.Stage, hold.Reason)
		}
	}

	return sb.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
