package domain

import "fmt"

// Mode selects how unassigned subjects are mapped to treatment groups.
type Mode string

const (
	// ModeStochastic draws groups at random (uniform or weighted), relying on
	// volume for balance. Deterministic under a fixed seed.
	ModeStochastic Mode = "stochastic"

	// ModeDirected balances tracked attributes explicitly, assigning each
	// subject to the group that minimizes stratum imbalance.
	ModeDirected Mode = "directed"
)

// Group is a labeled treatment cohort.
type Group struct {
	Label string `json:"label" yaml:"label" mapstructure:"label"`

	// Weight biases stochastic draws. Zero means unweighted; when any group
	// in a definition carries a weight, zero-weight groups are never drawn.
	Weight float64 `json:"weight,omitempty" yaml:"weight,omitempty" mapstructure:"weight"`

	// Capacity caps directed assignment. Zero means unbounded. Ignored in
	// stochastic mode.
	Capacity int `json:"capacity,omitempty" yaml:"capacity,omitempty" mapstructure:"capacity"`
}

// Stage is one ordered position in the experiment pipeline. Its filter gates
// the move out of this stage; a nil filter always passes.
type Stage struct {
	Name   string      `json:"name" yaml:"name" mapstructure:"name"`
	Filter *FilterSpec `json:"filter,omitempty" yaml:"filter,omitempty" mapstructure:"filter"`
}

// Definition is the immutable configuration of one experiment: the ordered
// stage pipeline, the treatment groups, the distribution mode, and the
// top-level subject filters. It is supplied at Dish construction and never
// changes during a run.
type Definition struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`

	Stages []Stage `json:"stages" yaml:"stages" mapstructure:"stages"`
	Groups []Group `json:"groups" yaml:"groups" mapstructure:"groups"`

	Mode Mode `json:"mode" yaml:"mode" mapstructure:"mode"`

	// Seed makes stochastic distribution reproducible. Ignored in directed mode.
	Seed uint64 `json:"seed,omitempty" yaml:"seed,omitempty" mapstructure:"seed"`

	// StratifyBy names the attributes directed assignment balances on.
	// Required in directed mode.
	StratifyBy []string `json:"stratify_by,omitempty" yaml:"stratify_by,omitempty" mapstructure:"stratify_by"`

	// Include and Exclude are the top-level subject filters: a subject is
	// processed when it passes every include spec and no exclude spec.
	Include []FilterSpec `json:"include,omitempty" yaml:"include,omitempty" mapstructure:"include"`
	Exclude []FilterSpec `json:"exclude,omitempty" yaml:"exclude,omitempty" mapstructure:"exclude"`

	// Attributes optionally declares attribute types (schema type names such
	// as "string", "int", "[string]"). Subjects violating the declaration are
	// held, not advanced.
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty" mapstructure:"attributes"`
}

// Validate checks the definition's structure. Any problem is a ConfigError
// and is fatal: callers must refuse to run an invalid definition.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return &ConfigError{Field: "name", Reason: "experiment name is required"}
	}

	if len(d.Stages) == 0 {
		return &ConfigError{Field: "stages", Reason: "at least one stage is required"}
	}
	seenStages := make(map[string]bool, len(d.Stages))
	for _, st := range d.Stages {
		if st.Name == "" {
			return &ConfigError{Field: "stages", Reason: "stage name must not be empty"}
		}
		if st.Name == StageUnassigned || st.Name == StageComplete {
			return &ConfigError{Field: "stages", Reason: fmt.Sprintf("stage name %q is reserved", st.Name)}
		}
		if seenStages[st.Name] {
			return &ConfigError{Field: "stages", Reason: fmt.Sprintf("duplicate stage %q", st.Name)}
		}
		seenStages[st.Name] = true
		if st.Filter != nil {
			if _, err := st.Filter.Compile(); err != nil {
				return &ConfigError{Field: "stages", Reason: fmt.Sprintf("stage %q: %v", st.Name, err)}
			}
		}
	}

	if len(d.Groups) == 0 {
		return &ConfigError{Field: "groups", Reason: "at least one treatment group is required"}
	}
	seenGroups := make(map[string]bool, len(d.Groups))
	for _, g := range d.Groups {
		if g.Label == "" {
			return &ConfigError{Field: "groups", Reason: "group label must not be empty"}
		}
		if seenGroups[g.Label] {
			return &ConfigError{Field: "groups", Reason: fmt.Sprintf("duplicate group %q", g.Label)}
		}
		seenGroups[g.Label] = true
		if g.Weight < 0 {
			return &ConfigError{Field: "groups", Reason: fmt.Sprintf("group %q: weight must not be negative", g.Label)}
		}
		if g.Capacity < 0 {
			return &ConfigError{Field: "groups", Reason: fmt.Sprintf("group %q: capacity must not be negative", g.Label)}
		}
	}

	switch d.Mode {
	case ModeStochastic:
		// Seeded or not, nothing further to check.
	case ModeDirected:
		if len(d.StratifyBy) == 0 {
			return &ConfigError{Field: "stratify_by", Reason: "directed mode requires at least one stratifying attribute"}
		}
		for _, attr := range d.StratifyBy {
			if attr == "" {
				return &ConfigError{Field: "stratify_by", Reason: "stratifying attribute must not be empty"}
			}
		}
	default:
		return &ConfigError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q (want %q or %q)", d.Mode, ModeStochastic, ModeDirected)}
	}

	for i, spec := range d.Include {
		if _, err := spec.Compile(); err != nil {
			return &ConfigError{Field: "include", Reason: fmt.Sprintf("filter %d: %v", i, err)}
		}
	}
	for i, spec := range d.Exclude {
		if _, err := spec.Compile(); err != nil {
			return &ConfigError{Field: "exclude", Reason: fmt.Sprintf("filter %d: %v", i, err)}
		}
	}

	return nil
}

// StageIndex returns the position of a stage name in the pipeline, or -1.
// The pseudo-stages are not part of the pipeline.
func (d *Definition) StageIndex(name string) int {
	for i, st := range d.Stages {
		if st.Name == name {
			return i
		}
	}
	return -1
}

// FirstStage returns the name of the pipeline's first stage.
func (d *Definition) FirstStage() string {
	if len(d.Stages) == 0 {
		return ""
	}
	return d.Stages[0].Name
}

// NextStage returns the stage after the named one. The stage after the last
// is StageComplete. The second return is false when the name is not in the
// pipeline.
func (d *Definition) NextStage(name string) (string, bool) {
	i := d.StageIndex(name)
	if i < 0 {
		return "", false
	}
	if i == len(d.Stages)-1 {
		return StageComplete, true
	}
	return d.Stages[i+1].Name, true
}

// Labels returns the group labels in definition order.
func (d *Definition) Labels() []string {
	out := make([]string, len(d.Groups))
	for i, g := range d.Groups {
		out[i] = g.Label
	}
	return out
}
