package domain

import (
	"errors"
	"fmt"
)

// ErrNoGroups is returned when distribution is attempted with no treatment groups.
var ErrNoGroups = errors.New("no treatment groups")

// ErrGroupsFull is returned by directed assignment when every group is at capacity.
var ErrGroupsFull = errors.New("all treatment groups at capacity")

// ErrMissingAttribute is returned when a filter or the directed distributor
// needs an attribute the subject does not carry.
var ErrMissingAttribute = errors.New("missing attribute")

// ErrSubjectNotFound is returned when a subject ID cannot be found in a store.
var ErrSubjectNotFound = errors.New("subject not found")

// ErrDefinitionNotFound is returned when an experiment definition cannot be
// found by a loader.
var ErrDefinitionNotFound = errors.New("experiment definition not found")

// ErrUnknownFilter is returned when a filter spec names a kind that is neither
// built in nor registered.
var ErrUnknownFilter = errors.New("unknown filter kind")

// ErrSourceUnavailable wraps a subject source failure. A run that hits it
// aborts before any state changes.
var ErrSourceUnavailable = errors.New("subject source unavailable")

// ErrSinkUnavailable wraps a subject sink failure. A run that hits it aborts;
// the source remains the authority for the next run.
var ErrSinkUnavailable = errors.New("subject sink unavailable")

// ConfigError reports an invalid experiment definition. It is fatal: it is
// surfaced at construction, before any run starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid definition: %s: %s", e.Field, e.Reason)
}

// FilterError reports that a predicate could not be evaluated for one subject.
// It is non-fatal: the engine holds the subject at its current state and
// records the hold in the run report.
type FilterError struct {
	SubjectID string
	Stage     string
	Err       error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("subject %q at %q: %v", e.SubjectID, e.Stage, e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}
