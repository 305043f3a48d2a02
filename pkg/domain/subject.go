package domain

import "time"

// Reserved pseudo-stages. A subject sits at one of these or at a stage named
// by the experiment definition; definitions may not reuse these names.
const (
	// StageUnassigned marks a subject that has been observed but has not
	// entered the pipeline yet.
	StageUnassigned = "unassigned"

	// StageComplete marks a subject that passed the last stage. Complete
	// subjects are excluded from all further processing.
	StageComplete = "complete"
)

// Subject represents one experimentation subject and its current state.
type Subject struct {
	// ID uniquely identifies the subject. It is stable across runs and is
	// the upsert key for every sink.
	ID string `json:"id"`

	// Attributes are the subject's characteristics, used by filters and by
	// stratified group assignment.
	Attributes map[string]any `json:"attributes,omitempty"`

	// Group is the assigned treatment group label. Empty until distribution
	// occurs; once set it never changes for the experiment's duration.
	Group string `json:"group,omitempty"`

	// Stage is the current stage name, or one of the reserved pseudo-stages.
	Stage string `json:"stage"`

	// Joined records when the subject was first observed by the engine.
	Joined time.Time `json:"joined"`
}

// NewSubject creates an unassigned subject that has not entered the pipeline.
func NewSubject(id string) *Subject {
	return &Subject{
		ID:         id,
		Attributes: make(map[string]any),
		Stage:      StageUnassigned,
	}
}

// Assigned reports whether the subject already carries a treatment group.
func (s *Subject) Assigned() bool {
	return s.Group != ""
}

// Completed reports whether the subject has left the pipeline.
func (s *Subject) Completed() bool {
	return s.Stage == StageComplete
}

// Attr looks up an attribute by name. Safe on a nil attribute map.
func (s *Subject) Attr(name string) (any, bool) {
	if s.Attributes == nil {
		return nil, false
	}
	v, ok := s.Attributes[name]
	return v, ok
}

// Clone returns a deep copy of the subject. Nested attribute maps are copied
// so that mutating the clone never leaks into the original.
func (s *Subject) Clone() *Subject {
	out := *s
	out.Attributes = CopyAttributes(s.Attributes)
	return &out
}

// CopyAttributes deep-copies an attribute map, recursing into nested maps.
// Scalar values are copied by assignment.
func CopyAttributes(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if sub, ok := v.(map[string]any); ok {
			out[k] = CopyAttributes(sub)
			continue
		}
		out[k] = v
	}
	return out
}
