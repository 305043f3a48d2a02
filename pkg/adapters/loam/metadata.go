package loam

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/petri/pkg/domain"
)

// DefinitionMetadata represents the frontmatter of an experiment document.
// It uses "mapstructure" tags to match standard frontmatter/YAML keys.
type DefinitionMetadata struct {
	Name string `json:"name" mapstructure:"name"`

	// Stages carries the pipeline. Entries are polymorphic: a bare stage
	// name, or an inline map with name and filter. Spellings can be mixed.
	Stages []any `json:"stages" mapstructure:"stages"`

	// Pipeline is shorthand for a filterless pipeline: just the stage names.
	// Ignored when Stages is present.
	Pipeline []string `json:"pipeline" mapstructure:"pipeline"`

	Groups []domain.Group `json:"groups" mapstructure:"groups"`

	Mode       string   `json:"mode" mapstructure:"mode"`
	Seed       uint64   `json:"seed" mapstructure:"seed"`
	StratifyBy []string `json:"stratify_by" mapstructure:"stratify_by"`

	Include []domain.FilterSpec `json:"include" mapstructure:"include"`
	Exclude []domain.FilterSpec `json:"exclude" mapstructure:"exclude"`

	// Attributes declares expected subject attribute types by name.
	Attributes map[string]string `json:"attributes" mapstructure:"attributes"`
}

// ToDefinition converts frontmatter plus document body into a definition.
// The document body becomes the description; the document ID is the fallback
// experiment name.
func (m DefinitionMetadata) ToDefinition(docID, body string) (*domain.Definition, error) {
	name := m.Name
	if name == "" {
		name = docID
	}

	stages, err := m.resolveStages()
	if err != nil {
		return nil, err
	}

	mode := domain.Mode(m.Mode)
	if m.Mode == "" {
		mode = domain.ModeStochastic
	}

	return &domain.Definition{
		Name:        name,
		Description: strings.TrimSpace(body),
		Stages:      stages,
		Groups:      m.Groups,
		Mode:        mode,
		Seed:        m.Seed,
		StratifyBy:  m.StratifyBy,
		Include:     m.Include,
		Exclude:     m.Exclude,
		Attributes:  m.Attributes,
	}, nil
}

// resolveStages decodes the polymorphic stage entries, falling back to the
// pipeline shorthand when no stages are declared.
func (m DefinitionMetadata) resolveStages() ([]domain.Stage, error) {
	if len(m.Stages) == 0 {
		stages := make([]domain.Stage, 0, len(m.Pipeline))
		for _, stageName := range m.Pipeline {
			stages = append(stages, domain.Stage{Name: stageName})
		}
		return stages, nil
	}

	stages := make([]domain.Stage, 0, len(m.Stages))
	for i, v := range m.Stages {
		switch entry := v.(type) {
		case string:
			stages = append(stages, domain.Stage{Name: entry})

		case map[string]any, map[any]any:
			// Inline definition
			var stage domain.Stage
			if err := mapstructure.Decode(entry, &stage); err != nil {
				return nil, fmt.Errorf("failed to decode stage %d: %w", i, err)
			}
			stages = append(stages, stage)

		default:
			return nil, fmt.Errorf("invalid stage entry type at %d: %T", i, v)
		}
	}
	return stages, nil
}
