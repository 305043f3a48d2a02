package distribute

import (
	"errors"
	"testing"

	"github.com/aretw0/petri/pkg/domain"
)

func TestStochastic_Deterministic(t *testing.T) {
	groups := []domain.Group{{Label: "a"}, {Label: "b"}, {Label: "c"}}

	first := NewStochastic(42)
	second := NewStochastic(42)

	for i := 0; i < 50; i++ {
		g1, err := first.Assign(&domain.Subject{ID: "s"}, groups, nil)
		if err != nil {
			t.Fatalf("assign failed: %v", err)
		}
		g2, err := second.Assign(&domain.Subject{ID: "s"}, groups, nil)
		if err != nil {
			t.Fatalf("assign failed: %v", err)
		}
		if g1 != g2 {
			t.Fatalf("draw %d diverged: %q vs %q", i, g1, g2)
		}
	}
}

func TestStochastic_DifferentSeedsDiverge(t *testing.T) {
	groups := []domain.Group{{Label: "a"}, {Label: "b"}}

	first := NewStochastic(1)
	second := NewStochastic(2)

	same := true
	for i := 0; i < 64 && same; i++ {
		g1, _ := first.Assign(&domain.Subject{ID: "s"}, groups, nil)
		g2, _ := second.Assign(&domain.Subject{ID: "s"}, groups, nil)
		same = g1 == g2
	}
	if same {
		t.Error("64 identical draws from different seeds is not plausible")
	}
}

func TestStochastic_CoversAllGroups(t *testing.T) {
	groups := []domain.Group{{Label: "a"}, {Label: "b"}}
	d := NewStochastic(7)

	counts := map[string]int{}
	for i := 0; i < 100; i++ {
		label, err := d.Assign(&domain.Subject{ID: "s"}, groups, nil)
		if err != nil {
			t.Fatalf("assign failed: %v", err)
		}
		counts[label]++
	}

	if counts["a"] == 0 || counts["b"] == 0 {
		t.Errorf("expected both groups drawn over 100 subjects, got %v", counts)
	}
	if counts["a"]+counts["b"] != 100 {
		t.Errorf("draws outside the group set: %v", counts)
	}
}

func TestStochastic_Weighted(t *testing.T) {
	groups := []domain.Group{
		{Label: "heavy", Weight: 3},
		{Label: "light", Weight: 1},
	}
	d := NewStochastic(7)

	counts := map[string]int{}
	for i := 0; i < 400; i++ {
		label, err := d.Assign(&domain.Subject{ID: "s"}, groups, nil)
		if err != nil {
			t.Fatalf("assign failed: %v", err)
		}
		counts[label]++
	}

	if counts["heavy"] <= counts["light"] {
		t.Errorf("3:1 weighting not reflected: %v", counts)
	}
	if counts["light"] == 0 {
		t.Errorf("light group never drawn: %v", counts)
	}
}

func TestStochastic_ZeroWeightNeverDrawn(t *testing.T) {
	groups := []domain.Group{
		{Label: "on", Weight: 1},
		{Label: "off", Weight: 0},
	}
	d := NewStochastic(3)

	for i := 0; i < 50; i++ {
		label, err := d.Assign(&domain.Subject{ID: "s"}, groups, nil)
		if err != nil {
			t.Fatalf("assign failed: %v", err)
		}
		if label == "off" {
			t.Fatal("zero-weight group was drawn")
		}
	}
}

func TestStochastic_NoGroups(t *testing.T) {
	d := NewStochastic(1)
	_, err := d.Assign(&domain.Subject{ID: "s"}, nil, nil)
	if !errors.Is(err, domain.ErrNoGroups) {
		t.Fatalf("expected ErrNoGroups, got %v", err)
	}
}
