package distribute

import (
	"fmt"

	"github.com/aretw0/petri/pkg/domain"
)

type stratumKey struct {
	group string
	attr  string
	value string
}

// History tracks the current composition of every treatment group: total
// sizes and per-attribute-value counts for the stratifying attributes. The
// engine builds it from all fetched subjects at the start of a run and
// records every in-run assignment, so later subjects in the same batch see
// earlier ones.
type History struct {
	attrs  []string
	totals map[string]int
	strata map[stratumKey]int
}

// NewHistory creates an empty history tracking the given attributes.
func NewHistory(stratifyBy ...string) *History {
	return &History{
		attrs:  stratifyBy,
		totals: make(map[string]int),
		strata: make(map[stratumKey]int),
	}
}

// BuildHistory tallies the already assigned subjects in the batch.
func BuildHistory(subjects []domain.Subject, stratifyBy ...string) *History {
	h := NewHistory(stratifyBy...)
	for i := range subjects {
		h.Record(&subjects[i])
	}
	return h
}

// Record counts an assigned subject. Unassigned subjects are ignored, as are
// stratifying attributes the subject does not carry.
func (h *History) Record(s *domain.Subject) {
	if !s.Assigned() {
		return
	}
	h.totals[s.Group]++
	for _, attr := range h.attrs {
		v, ok := s.Attr(attr)
		if !ok {
			continue
		}
		h.strata[stratumKey{group: s.Group, attr: attr, value: attrKey(v)}]++
	}
}

// Total returns the current size of a group.
func (h *History) Total(label string) int {
	return h.totals[label]
}

// Stratum returns how many subjects in the group share the given value for
// the given attribute.
func (h *History) Stratum(label, attr string, value any) int {
	return h.strata[stratumKey{group: label, attr: attr, value: attrKey(value)}]
}

// attrKey normalizes an attribute value for counting. fmt renders whole
// floats without a fraction, so 42 and float64(42) land in the same stratum
// regardless of which decoder produced them.
func attrKey(v any) string {
	return fmt.Sprint(v)
}
