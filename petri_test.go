package petri_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/petri"
	"github.com/aretw0/petri/pkg/adapters/memory"
	"github.com/aretw0/petri/pkg/domain"
)

func funnelDefinition() *domain.Definition {
	return &domain.Definition{
		Name: "activation-funnel",
		Stages: []domain.Stage{
			{Name: "exposed"},
			{Name: "activated", Filter: &domain.FilterSpec{
				Kind:  domain.FilterAttrEquals,
				Attr:  "activated",
				Value: true,
			}},
		},
		Groups: []domain.Group{{Label: "control"}, {Label: "treatment"}},
		Mode:   domain.ModeStochastic,
		Seed:   11,
	}
}

func TestDish_Integration(t *testing.T) {
	store := memory.New().Seed(
		domain.Subject{ID: "u-1", Stage: domain.StageUnassigned,
			Attributes: map[string]any{"activated": true}},
		domain.Subject{ID: "u-2", Stage: domain.StageUnassigned,
			Attributes: map[string]any{"activated": false}},
	)

	dish, err := petri.New(funnelDefinition(), petri.WithStore(store))
	if err != nil {
		t.Fatalf("Failed to initialize dish: %v", err)
	}
	if dish.Definition().Name != "activation-funnel" {
		t.Errorf("Unexpected definition: %s", dish.Definition().Name)
	}

	ctx := context.Background()

	// First run: both subjects get a group and enter the pipeline.
	report, err := dish.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Assigned != 2 {
		t.Errorf("Expected 2 assignments, got %d", report.Assigned)
	}
	if report.Stages["exposed"] != 2 {
		t.Errorf("Expected both subjects at 'exposed', got %v", report.Stages)
	}

	// Second run: both leave 'exposed' (no gate); only u-1 can later pass
	// the 'activated' gate.
	if _, err = dish.Run(ctx); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	// Third run: u-1 completes, u-2 stays at 'activated'.
	report, err = dish.Run(ctx)
	if err != nil {
		t.Fatalf("Third run failed: %v", err)
	}
	if report.Completed != 1 {
		t.Errorf("Expected 1 completion, got %d", report.Completed)
	}

	s1, err := dish.Store().Get(ctx, "u-1")
	if err != nil {
		t.Fatalf("Get u-1 failed: %v", err)
	}
	if !s1.Completed() {
		t.Errorf("Expected u-1 complete, got '%s'", s1.Stage)
	}
	s2, err := dish.Store().Get(ctx, "u-2")
	if err != nil {
		t.Fatalf("Get u-2 failed: %v", err)
	}
	if s2.Stage != "activated" {
		t.Errorf("Expected u-2 at 'activated', got '%s'", s2.Stage)
	}
	if s1.Group == "" || s2.Group == "" {
		t.Error("Expected both subjects to keep their groups")
	}
}

func TestNew_Validation(t *testing.T) {
	t.Run("Nil Definition", func(t *testing.T) {
		_, err := petri.New(nil)
		var cfgErr *domain.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("Expected ConfigError, got %v", err)
		}
	})

	t.Run("Invalid Definition", func(t *testing.T) {
		def := funnelDefinition()
		def.Groups = nil
		_, err := petri.New(def)
		var cfgErr *domain.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("Expected ConfigError, got %v", err)
		}
	})
}

// staticSource feeds a fixed batch.
type staticSource struct {
	subjects []domain.Subject
}

func (s *staticSource) Fetch(context.Context) ([]domain.Subject, error) {
	return s.subjects, nil
}

// captureSink records every batch it is handed.
type captureSink struct {
	batches [][]domain.Subject
}

func (c *captureSink) Write(_ context.Context, subjects []domain.Subject) error {
	batch := make([]domain.Subject, len(subjects))
	copy(batch, subjects)
	c.batches = append(c.batches, batch)
	return nil
}

func TestDish_SplitSourceAndSink(t *testing.T) {
	source := &staticSource{subjects: []domain.Subject{
		{ID: "u-1", Stage: domain.StageUnassigned},
		{ID: "u-2", Stage: domain.StageUnassigned},
	}}
	sink := &captureSink{}

	dish, err := petri.New(funnelDefinition(),
		petri.WithSource(source),
		petri.WithSink(sink),
	)
	if err != nil {
		t.Fatalf("Failed to initialize dish: %v", err)
	}

	report, err := dish.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Fetched != 2 {
		t.Errorf("Expected the source to feed 2 subjects, got %d", report.Fetched)
	}

	if len(sink.batches) != 1 || len(sink.batches[0]) != 2 {
		t.Fatalf("Expected one batch of 2 in the sink, got %v", sink.batches)
	}
	for _, s := range sink.batches[0] {
		if !s.Assigned() || s.Stage != "exposed" {
			t.Errorf("Expected %s assigned at 'exposed', got group '%s' at '%s'", s.ID, s.Group, s.Stage)
		}
	}
}

func TestVersion(t *testing.T) {
	if petri.Version == "" {
		t.Fatal("Expected an embedded version string")
	}
}
