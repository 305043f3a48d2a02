package dsl

import (
	"github.com/aretw0/petri/pkg/adapters/memory"
	"github.com/aretw0/petri/pkg/domain"
)

// Builder assembles an experiment definition step by step.
type Builder struct {
	def domain.Definition
}

// NewExperiment starts a definition with the given name.
// The mode defaults to stochastic until Directed is called.
func NewExperiment(name string) *Builder {
	return &Builder{
		def: domain.Definition{
			Name: name,
			Mode: domain.ModeStochastic,
		},
	}
}

// Describe sets the human-readable description.
func (b *Builder) Describe(text string) *Builder {
	b.def.Description = text
	return b
}

// Stage appends a pipeline stage. Filters gate the move out of the stage;
// several filters are combined with All.
func (b *Builder) Stage(name string, filters ...domain.FilterSpec) *Builder {
	stage := domain.Stage{Name: name}
	switch len(filters) {
	case 0:
	case 1:
		stage.Filter = &filters[0]
	default:
		combined := All(filters...)
		stage.Filter = &combined
	}
	b.def.Stages = append(b.def.Stages, stage)
	return b
}

// Group appends an unweighted, uncapped treatment group.
func (b *Builder) Group(label string) *Builder {
	b.def.Groups = append(b.def.Groups, domain.Group{Label: label})
	return b
}

// WeightedGroup appends a group with a stochastic draw weight.
func (b *Builder) WeightedGroup(label string, weight float64) *Builder {
	b.def.Groups = append(b.def.Groups, domain.Group{Label: label, Weight: weight})
	return b
}

// CappedGroup appends a group with a directed-mode capacity.
func (b *Builder) CappedGroup(label string, capacity int) *Builder {
	b.def.Groups = append(b.def.Groups, domain.Group{Label: label, Capacity: capacity})
	return b
}

// Stochastic selects random assignment with a reproducible seed.
func (b *Builder) Stochastic(seed uint64) *Builder {
	b.def.Mode = domain.ModeStochastic
	b.def.Seed = seed
	return b
}

// Directed selects balance-driven assignment stratified by the given
// attributes.
func (b *Builder) Directed(attrs ...string) *Builder {
	b.def.Mode = domain.ModeDirected
	b.def.StratifyBy = attrs
	return b
}

// Include appends a top-level inclusion filter. Subjects must pass every
// include spec to be processed.
func (b *Builder) Include(spec domain.FilterSpec) *Builder {
	b.def.Include = append(b.def.Include, spec)
	return b
}

// Exclude appends a top-level exclusion filter. Subjects matching any
// exclude spec are skipped.
func (b *Builder) Exclude(spec domain.FilterSpec) *Builder {
	b.def.Exclude = append(b.def.Exclude, spec)
	return b
}

// Attribute declares the expected type of a subject attribute
// ("string", "int", "[string]", ...).
func (b *Builder) Attribute(name, typeName string) *Builder {
	if b.def.Attributes == nil {
		b.def.Attributes = make(map[string]string)
	}
	b.def.Attributes[name] = typeName
	return b
}

// Build validates the assembled definition and returns it.
func (b *Builder) Build() (*domain.Definition, error) {
	def := b.def
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// MustBuild is Build for wiring code and examples, panicking on error.
func (b *Builder) MustBuild() *domain.Definition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// BuildLoader compiles the definition into a single-experiment memory
// loader, ready to back the serving surfaces.
func (b *Builder) BuildLoader() (*memory.Loader, error) {
	def, err := b.Build()
	if err != nil {
		return nil, err
	}
	return memory.NewLoader(def)
}
