package runtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/petri/internal/runtime"
	"github.com/aretw0/petri/pkg/adapters/memory"
	"github.com/aretw0/petri/pkg/domain"
)

func testDefinition(name string, stages ...domain.Stage) *domain.Definition {
	return &domain.Definition{
		Name:   name,
		Stages: stages,
		Groups: []domain.Group{{Label: "control"}, {Label: "treatment"}},
		Mode:   domain.ModeStochastic,
		Seed:   42,
	}
}

func fptr(v float64) *float64 { return &v }

func TestNewEngine_RejectsInvalidDefinition(t *testing.T) {
	t.Run("Structural", func(t *testing.T) {
		def := &domain.Definition{Name: "broken", Mode: domain.ModeStochastic}
		_, err := runtime.NewEngine(def, memory.New())

		var cfgErr *domain.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("Expected ConfigError, got %v", err)
		}
	})

	t.Run("Unknown Attribute Type", func(t *testing.T) {
		def := testDefinition("typed", domain.Stage{Name: "intake"})
		def.Attributes = map[string]string{"age": "quantum"}
		_, err := runtime.NewEngine(def, memory.New())

		var cfgErr *domain.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("Expected ConfigError, got %v", err)
		}
		if cfgErr.Field != "attributes" {
			t.Errorf("Expected error on field 'attributes', got '%s'", cfgErr.Field)
		}
	})
}

func TestEngineRun_AssignsAndPlacesNewSubjects(t *testing.T) {
	def := testDefinition("assignment", domain.Stage{Name: "intake"}, domain.Stage{Name: "active"})
	store := memory.New().Seed(
		domain.Subject{ID: "s-1", Stage: domain.StageUnassigned},
		domain.Subject{ID: "s-2", Stage: domain.StageUnassigned},
		domain.Subject{ID: "s-3", Stage: domain.StageUnassigned},
	)

	engine, err := runtime.NewEngine(def, store)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Fetched != 3 || report.Included != 3 {
		t.Errorf("Expected 3 fetched and included, got %d/%d", report.Fetched, report.Included)
	}
	if report.Assigned != 3 {
		t.Errorf("Expected 3 assignments, got %d", report.Assigned)
	}
	if report.Advanced != 0 {
		t.Errorf("Expected no advances on first contact, got %d", report.Advanced)
	}
	if report.Stages["intake"] != 3 {
		t.Errorf("Expected all 3 subjects at 'intake', got %v", report.Stages)
	}

	total := 0
	for _, n := range report.Groups {
		total += n
	}
	if total != 3 {
		t.Errorf("Expected group occupancy to cover 3 subjects, got %v", report.Groups)
	}

	for _, id := range []string{"s-1", "s-2", "s-3"} {
		s, err := store.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get %s failed: %v", id, err)
		}
		if !s.Assigned() {
			t.Errorf("Expected %s to carry a group", id)
		}
		if s.Stage != "intake" {
			t.Errorf("Expected %s at 'intake', got '%s'", id, s.Stage)
		}
	}
}

func TestEngineRun_AssignsThenAdvancesPreStagedSubjects(t *testing.T) {
	// The source may deliver subjects already sitting at a pipeline stage
	// with no group. They are distributed first, then their stage's exit
	// predicate applies in the same run.
	def := testDefinition("pre-staged", domain.Stage{Name: "intake"}, domain.Stage{Name: "screened"})
	store := memory.New().Seed(
		domain.Subject{ID: "s-1", Stage: "intake"},
		domain.Subject{ID: "s-2", Stage: "intake"},
		domain.Subject{ID: "s-3", Stage: "intake"},
		domain.Subject{ID: "s-4", Stage: "intake"},
	)

	engine, err := runtime.NewEngine(def, store)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Assigned != 4 || report.Advanced != 4 {
		t.Errorf("Expected 4 assignments and 4 advances in one run, got %d/%d",
			report.Assigned, report.Advanced)
	}

	stored, err := store.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(stored) != 4 {
		t.Fatalf("Expected 4 records written, got %d", len(stored))
	}
	for _, s := range stored {
		if s.Group != "control" && s.Group != "treatment" {
			t.Errorf("Expected %s in a known group, got '%s'", s.ID, s.Group)
		}
		if s.Stage != "screened" {
			t.Errorf("Expected %s at 'screened', got '%s'", s.ID, s.Stage)
		}
	}
}

func TestEngineRun_AssignmentIsIdempotent(t *testing.T) {
	def := testDefinition("sticky", domain.Stage{Name: "intake"}, domain.Stage{Name: "active"})
	store := memory.New().Seed(domain.Subject{ID: "s-1", Group: "treatment", Stage: "intake"})

	engine, err := runtime.NewEngine(def, store)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// A grouped subject is never redistributed; it still moves through the
	// open gate.
	if report.Assigned != 0 || report.Advanced != 1 {
		t.Errorf("Expected 0 assignments and 1 advance, got %d/%d", report.Assigned, report.Advanced)
	}
	s := mustGet(t, store, "s-1")
	if s.Group != "treatment" {
		t.Errorf("Expected group to stick at 'treatment', got '%s'", s.Group)
	}
	if s.Stage != "active" {
		t.Errorf("Expected subject at 'active', got '%s'", s.Stage)
	}
}

func groupsAfterRun(t *testing.T, subjects []domain.Subject) map[string]string {
	t.Helper()

	def := testDefinition("determinism", domain.Stage{Name: "intake"})
	def.Seed = 7
	store := memory.New().Seed(subjects...)

	engine, err := runtime.NewEngine(def, store)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stored, err := store.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	groups := make(map[string]string, len(stored))
	for _, s := range stored {
		groups[s.ID] = s.Group
	}
	return groups
}

func TestEngineRun_SeededAssignmentIsDeterministic(t *testing.T) {
	subjects := []domain.Subject{
		{ID: "s-1", Stage: domain.StageUnassigned},
		{ID: "s-2", Stage: domain.StageUnassigned},
		{ID: "s-3", Stage: domain.StageUnassigned},
		{ID: "s-4", Stage: domain.StageUnassigned},
		{ID: "s-5", Stage: domain.StageUnassigned},
	}
	first := groupsAfterRun(t, subjects)

	// Same seed, same population, backend order reversed. Subjects are
	// processed in ID order, so the draws must land identically.
	reversed := make([]domain.Subject, 0, len(subjects))
	for i := len(subjects) - 1; i >= 0; i-- {
		reversed = append(reversed, subjects[i])
	}
	second := groupsAfterRun(t, reversed)

	for id, group := range first {
		if second[id] != group {
			t.Errorf("Expected %s in '%s' on the second run, got '%s'", id, group, second[id])
		}
	}
}

func TestEngineRun_PlacementIsNotAdvancement(t *testing.T) {
	// The first stage never lets anyone out. A fresh subject must still be
	// placed there; the gate applies from the next run on.
	def := testDefinition("placement",
		domain.Stage{Name: "intake", Filter: &domain.FilterSpec{Kind: domain.FilterNever}},
		domain.Stage{Name: "active"},
	)
	store := memory.New().Seed(domain.Subject{ID: "s-1", Stage: domain.StageUnassigned})

	engine, err := runtime.NewEngine(def, store)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Assigned != 1 || report.Advanced != 0 {
		t.Errorf("Expected 1 assignment and 0 advances, got %d/%d", report.Assigned, report.Advanced)
	}

	s, err := store.Get(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if s.Stage != "intake" {
		t.Errorf("Expected placement at 'intake', got '%s'", s.Stage)
	}

	report, err = engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if report.Advanced != 0 || report.Held != 0 {
		t.Errorf("Expected the gate to hold cleanly, got %d advances and %d holds", report.Advanced, report.Held)
	}
}

func TestEngineRun_AdvancesOneStagePerRun(t *testing.T) {
	def := testDefinition("pipeline",
		domain.Stage{Name: "expose"},
		domain.Stage{Name: "convert"},
		domain.Stage{Name: "retain"},
	)
	store := memory.New().Seed(domain.Subject{ID: "s-1", Stage: domain.StageUnassigned})

	engine, err := runtime.NewEngine(def, store)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	ctx := context.Background()
	stageAfterRun := func() string {
		t.Helper()
		if _, err := engine.Run(ctx); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		s, err := store.Get(ctx, "s-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		return s.Stage
	}

	// One transition per run, even with every gate open.
	for i, want := range []string{"expose", "convert", "retain"} {
		if got := stageAfterRun(); got != want {
			t.Fatalf("Run %d: expected stage '%s', got '%s'", i+1, want, got)
		}
	}

	if got := stageAfterRun(); got != domain.StageComplete {
		t.Fatalf("Expected completion after the last stage, got '%s'", got)
	}

	// Complete subjects are fetched but no longer processed.
	report, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run after completion failed: %v", err)
	}
	if report.Fetched != 1 || report.Included != 0 || report.Excluded != 0 {
		t.Errorf("Expected a complete subject in neither partition, got %+v", report)
	}
	if got := mustGet(t, store, "s-1").Stage; got != domain.StageComplete {
		t.Errorf("Expected subject to stay complete, got '%s'", got)
	}
}

func TestEngineRun_StageFilterGatesExit(t *testing.T) {
	def := testDefinition("gated",
		domain.Stage{Name: "trial", Filter: &domain.FilterSpec{
			Kind:  domain.FilterAttrEquals,
			Attr:  "converted",
			Value: true,
		}},
		domain.Stage{Name: "paid"},
	)
	store := memory.New().Seed(domain.Subject{
		ID:         "s-1",
		Group:      "treatment",
		Stage:      "trial",
		Attributes: map[string]any{"converted": false},
	})

	engine, err := runtime.NewEngine(def, store)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	ctx := context.Background()
	report, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Advanced != 0 || report.Held != 0 {
		t.Errorf("Expected a clean refusal, got %d advances and %d holds", report.Advanced, report.Held)
	}
	if got := mustGet(t, store, "s-1").Stage; got != "trial" {
		t.Errorf("Expected subject to stay at 'trial', got '%s'", got)
	}

	// Flip the gate attribute and the next run lets the subject through.
	s := mustGet(t, store, "s-1")
	s.Attributes["converted"] = true
	if err := store.Write(ctx, []domain.Subject{*s}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	report, err = engine.Run(ctx)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if report.Advanced != 1 {
		t.Errorf("Expected 1 advance, got %d", report.Advanced)
	}
	if got := mustGet(t, store, "s-1").Stage; got != "paid" {
		t.Errorf("Expected subject at 'paid', got '%s'", got)
	}
}

func TestEngineRun_MinAgeFilterUsesClock(t *testing.T) {
	enrolled := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now := enrolled.Add(24 * time.Hour)

	def := testDefinition("cooldown",
		domain.Stage{Name: "cooldown", Filter: &domain.FilterSpec{
			Kind:   domain.FilterMinAge,
			MinAge: "72h",
		}},
		domain.Stage{Name: "active"},
	)
	store := memory.New().Seed(domain.Subject{
		ID:     "s-1",
		Group:  "control",
		Stage:  "cooldown",
		Joined: enrolled,
	})

	engine, err := runtime.NewEngine(def, store, runtime.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	ctx := context.Background()
	if _, err := engine.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := mustGet(t, store, "s-1").Stage; got != "cooldown" {
		t.Errorf("Expected subject held back at 24h, got '%s'", got)
	}

	now = enrolled.Add(73 * time.Hour)
	if _, err := engine.Run(ctx); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if got := mustGet(t, store, "s-1").Stage; got != "active" {
		t.Errorf("Expected subject advanced at 73h, got '%s'", got)
	}
}

func TestEngineRun_SchemaViolationHoldsSubject(t *testing.T) {
	def := testDefinition("typed", domain.Stage{Name: "intake"})
	def.Attributes = map[string]string{"age": "int"}

	store := memory.New().Seed(
		domain.Subject{ID: "s-bad", Stage: domain.StageUnassigned,
			Attributes: map[string]any{"age": "forty"}},
		domain.Subject{ID: "s-ok", Stage: domain.StageUnassigned,
			Attributes: map[string]any{"age": 40}},
	)

	engine, err := runtime.NewEngine(def, store)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Assigned != 1 || report.Held != 1 {
		t.Errorf("Expected 1 assignment and 1 hold, got %d/%d", report.Assigned, report.Held)
	}
	if len(report.Holds) != 1 || report.Holds[0].SubjectID != "s-bad" {
		t.Fatalf("Expected s-bad in the hold list, got %v", report.Holds)
	}

	if s := mustGet(t, store, "s-bad"); s.Assigned() || s.Stage != domain.StageUnassigned {
		t.Errorf("Expected s-bad untouched, got group '%s' at '%s'", s.Group, s.Stage)
	}
	if s := mustGet(t, store, "s-ok"); !s.Assigned() || s.Stage != "intake" {
		t.Errorf("Expected s-ok placed at 'intake', got group '%s' at '%s'", s.Group, s.Stage)
	}
}

func TestEngineRun_DirectedAssignmentBalancesStrata(t *testing.T) {
	def := &domain.Definition{
		Name:       "directed-balance",
		Stages:     []domain.Stage{{Name: "intake"}},
		Groups:     []domain.Group{{Label: "control"}, {Label: "treatment"}},
		Mode:       domain.ModeDirected,
		StratifyBy: []string{"plan"},
	}

	plans := []string{"free", "pro", "free", "pro", "free", "pro", "free", "pro"}
	subjects := make([]domain.Subject, len(plans))
	for i, plan := range plans {
		subjects[i] = domain.Subject{
			ID:         "u-" + string(rune('a'+i)),
			Stage:      domain.StageUnassigned,
			Attributes: map[string]any{"plan": plan},
		}
	}
	store := memory.New().Seed(subjects...)

	engine, err := runtime.NewEngine(def, store)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Assigned != len(plans) {
		t.Fatalf("Expected %d assignments, got %d", len(plans), report.Assigned)
	}

	stored, err := store.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	counts := make(map[string]map[string]int)
	for _, s := range stored {
		plan := s.Attributes["plan"].(string)
		if counts[plan] == nil {
			counts[plan] = make(map[string]int)
		}
		counts[plan][s.Group]++
	}

	for plan, byGroup := range counts {
		diff := byGroup["control"] - byGroup["treatment"]
		if diff < -1 || diff > 1 {
			t.Errorf("Stratum '%s' out of balance: %v", plan, byGroup)
		}
	}
}

func TestEngineRun_DirectedHoldsWhenGroupsFull(t *testing.T) {
	def := &domain.Definition{
		Name:       "directed-capped",
		Stages:     []domain.Stage{{Name: "intake"}},
		Groups:     []domain.Group{{Label: "control", Capacity: 1}, {Label: "treatment", Capacity: 1}},
		Mode:       domain.ModeDirected,
		StratifyBy: []string{"plan"},
	}
	store := memory.New().Seed(
		domain.Subject{ID: "u-1", Stage: domain.StageUnassigned, Attributes: map[string]any{"plan": "free"}},
		domain.Subject{ID: "u-2", Stage: domain.StageUnassigned, Attributes: map[string]any{"plan": "free"}},
		domain.Subject{ID: "u-3", Stage: domain.StageUnassigned, Attributes: map[string]any{"plan": "free"}},
	)

	engine, err := runtime.NewEngine(def, store)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Assigned != 2 || report.Held != 1 {
		t.Errorf("Expected 2 assignments and 1 hold, got %d/%d", report.Assigned, report.Held)
	}
	// Subjects are processed in ID order, so the third one finds both
	// groups at capacity.
	if s := mustGet(t, store, "u-3"); s.Assigned() {
		t.Errorf("Expected u-3 to stay unassigned, got group '%s'", s.Group)
	}
}

func mustGet(t *testing.T, store *memory.Store, id string) *domain.Subject {
	t.Helper()
	s, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get %s failed: %v", id, err)
	}
	return s
}
