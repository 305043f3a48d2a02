package domain

import (
	"testing"
	"time"
)

func TestSubject_Clone_Isolation(t *testing.T) {
	orig := &Subject{
		ID:    "s1",
		Group: "control",
		Stage: "intake",
		Attributes: map[string]any{
			"site":    "lisbon",
			"profile": map[string]any{"language": "pt"},
		},
		Joined: time.Now(),
	}

	clone := orig.Clone()
	clone.Attributes["site"] = "porto"
	clone.Attributes["profile"].(map[string]any)["language"] = "en"
	clone.Group = "treatment"

	if orig.Attributes["site"] != "lisbon" {
		t.Error("clone mutation leaked into original attribute")
	}
	if orig.Attributes["profile"].(map[string]any)["language"] != "pt" {
		t.Error("clone mutation leaked into nested attribute map")
	}
	if orig.Group != "control" {
		t.Error("clone mutation leaked into original group")
	}
}

func TestSubject_Helpers(t *testing.T) {
	s := NewSubject("s1")
	if s.Stage != StageUnassigned {
		t.Errorf("new subject stage = %q, want %q", s.Stage, StageUnassigned)
	}
	if s.Assigned() {
		t.Error("new subject should not be assigned")
	}
	if s.Completed() {
		t.Error("new subject should not be complete")
	}

	s.Group = "control"
	s.Stage = StageComplete
	if !s.Assigned() || !s.Completed() {
		t.Error("expected assigned and complete")
	}

	// Attr must be safe on a nil map.
	bare := &Subject{ID: "bare"}
	if _, ok := bare.Attr("anything"); ok {
		t.Error("nil attribute map should report absence, not panic")
	}
}
