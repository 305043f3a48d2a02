package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/petri/pkg/domain"
)

// Overlay carries run state to draw on top of the static pipeline.
type Overlay struct {
	// Occupancy maps stage names (pseudo-stages included) to how many
	// subjects currently sit there.
	Occupancy map[string]int
}

// GenerateMermaid produces a Mermaid flowchart of the experiment pipeline.
// Pseudo-stages render as circles and pipeline stages as rectangles; a gated
// edge carries its filter as a label. The overlay annotates each stage with
// its subject count and highlights occupied stages.
func GenerateMermaid(def *domain.Definition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n",
		sanitizeMermaidID(domain.StageUnassigned), nodeLabel(domain.StageUnassigned, overlay)))
	for _, stage := range def.Stages {
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n",
			sanitizeMermaidID(stage.Name), nodeLabel(stage.Name, overlay)))
	}
	sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n",
		sanitizeMermaidID(domain.StageComplete), nodeLabel(domain.StageComplete, overlay)))

	// Entry edge: assignment moves a subject out of the unassigned pool.
	sb.WriteString(fmt.Sprintf("    %s -- \"distribute\" --> %s\n",
		sanitizeMermaidID(domain.StageUnassigned), sanitizeMermaidID(def.FirstStage())))

	// One edge per stage exit, labeled with the gating filter.
	for i, stage := range def.Stages {
		to := domain.StageComplete
		if i < len(def.Stages)-1 {
			to = def.Stages[i+1].Name
		}

		arrow := "-->"
		if stage.Filter != nil {
			arrow = fmt.Sprintf("-- \"%s\" -->", describeFilter(stage.Filter))
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n",
			sanitizeMermaidID(stage.Name), arrow, sanitizeMermaidID(to)))
	}

	if overlay != nil && len(overlay.Occupancy) > 0 {
		sb.WriteString("\n    %% Occupancy\n")
		// Force black text for high contrast on light and dark themes.
		sb.WriteString("    classDef occupied fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		for _, stage := range def.Stages {
			if overlay.Occupancy[stage.Name] > 0 {
				sb.WriteString(fmt.Sprintf("    class %s occupied;\n", sanitizeMermaidID(stage.Name)))
			}
		}
	}

	return sb.String()
}

// describeFilter renders a short edge label for a filter spec.
func describeFilter(spec *domain.FilterSpec) string {
	var label string
	switch {
	case spec.Attr != "":
		label = fmt.Sprintf("%s(%s)", spec.Kind, spec.Attr)
	case spec.Kind == domain.FilterMinAge:
		label = fmt.Sprintf("%s(%s)", spec.Kind, spec.MinAge)
	default:
		label = spec.Kind
	}
	// Escape double quotes for the Mermaid label.
	return strings.ReplaceAll(label, "\"", "'")
}

func nodeLabel(name string, overlay *Overlay) string {
	if overlay == nil {
		return name
	}
	n, ok := overlay.Occupancy[name]
	if !ok {
		return name
	}
	return fmt.Sprintf("%s<br/>n=%d", name, n)
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
