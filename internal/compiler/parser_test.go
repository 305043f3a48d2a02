package compiler_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/petri/internal/compiler"
	"github.com/aretw0/petri/pkg/domain"
)

const yamlDefinition = `
name: onboarding
description: New user activation funnel.
stages:
  - name: exposed
  - name: activated
    filter:
      kind: attr_equals
      attr: activated
      value: true
groups:
  - label: control
  - label: treatment
    weight: 2
mode: stochastic
seed: 7
include:
  - kind: attr_range
    attr: age
    min: 18
attributes:
  age: int
`

func TestParser_Parse(t *testing.T) {
	parser := compiler.NewParser()

	t.Run("YAML", func(t *testing.T) {
		def, err := parser.Parse([]byte(yamlDefinition))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		if def.Name != "onboarding" {
			t.Errorf("Expected name 'onboarding', got '%s'", def.Name)
		}
		if len(def.Stages) != 2 || def.Stages[1].Name != "activated" {
			t.Fatalf("Unexpected stages: %v", def.Stages)
		}
		if def.Stages[1].Filter == nil || def.Stages[1].Filter.Kind != domain.FilterAttrEquals {
			t.Errorf("Expected an attr_equals gate on 'activated', got %v", def.Stages[1].Filter)
		}
		if def.Groups[1].Weight != 2 {
			t.Errorf("Expected treatment weight 2, got %v", def.Groups[1].Weight)
		}
		if def.Seed != 7 {
			t.Errorf("Expected seed 7, got %d", def.Seed)
		}
		if len(def.Include) != 1 || def.Include[0].Min == nil || *def.Include[0].Min != 18 {
			t.Errorf("Unexpected include filters: %v", def.Include)
		}
		if def.Attributes["age"] != "int" {
			t.Errorf("Expected age declared as int, got %v", def.Attributes)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		def, err := parser.Parse([]byte(`{
			"name": "pricing",
			"stages": [{"name": "expose"}],
			"groups": [{"label": "a"}, {"label": "b"}],
			"mode": "stochastic"
		}`))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if def.Name != "pricing" || len(def.Groups) != 2 {
			t.Errorf("Unexpected definition: %+v", def)
		}
	})

	t.Run("Defaults Mode", func(t *testing.T) {
		def, err := parser.Parse([]byte(`
name: plain
stages: [{name: only}]
groups: [{label: all}]
`))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if def.Mode != domain.ModeStochastic {
			t.Errorf("Expected the stochastic default, got '%s'", def.Mode)
		}
	})

	t.Run("Malformed Document", func(t *testing.T) {
		if _, err := parser.Parse([]byte("name: [unclosed")); err == nil {
			t.Fatal("Expected a parse error")
		}
	})

	t.Run("Invalid Definition", func(t *testing.T) {
		_, err := parser.Parse([]byte(`
name: broken
stages: [{name: only}]
groups: []
`))
		var cfgErr *domain.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("Expected ConfigError, got %v", err)
		}
	})
}

func TestParser_ParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "onboarding.yaml")
	if err := os.WriteFile(path, []byte(yamlDefinition), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	parser := compiler.NewParser()
	def, err := parser.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if def.Name != "onboarding" {
		t.Errorf("Expected name 'onboarding', got '%s'", def.Name)
	}

	if _, err := parser.ParseFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Expected an error for a missing file")
	}
}
