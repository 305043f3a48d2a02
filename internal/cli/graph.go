package cli

import (
	"context"
	"fmt"

	"github.com/aretw0/petri/internal/presentation/graph"
)

// GraphOptions contains all the configuration for the graph command.
type GraphOptions struct {
	RunOptions

	// Occupancy overlays the current per-stage subject counts from the
	// selected store onto the diagram.
	Occupancy bool
}

// RunGraph prints a Mermaid diagram of the experiment pipeline.
func RunGraph(ctx context.Context, opts GraphOptions) error {
	def, err := loadDefinition(ctx, opts.RunOptions)
	if err != nil {
		return err
	}

	var overlay *graph.Overlay
	if opts.Occupancy {
		store, closer, err := buildStore(ctx, opts.RunOptions, def.Name)
		if err != nil {
			return err
		}
		defer closer()

		subjects, err := store.Fetch(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch population: %w", err)
		}
		counts := make(map[string]int)
		for _, s := range subjects {
			counts[s.Stage]++
		}
		overlay = &graph.Overlay{Occupancy: counts}
	}

	fmt.Print(graph.GenerateMermaid(def, overlay))
	return nil
}
