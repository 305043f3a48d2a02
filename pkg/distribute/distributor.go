package distribute

import (
	"fmt"

	"github.com/aretw0/petri/pkg/domain"
)

// Distributor maps one unassigned subject to exactly one treatment group.
//
// Implementations must be deterministic for a given input sequence (seeded
// randomness counts as deterministic). They are not safe for concurrent use;
// the engine drives them from a single goroutine.
type Distributor interface {
	Assign(s *domain.Subject, groups []domain.Group, hist *History) (string, error)
}

// ForDefinition builds the distributor the definition's mode asks for.
func ForDefinition(def *domain.Definition) (Distributor, error) {
	switch def.Mode {
	case domain.ModeStochastic:
		return NewStochastic(def.Seed), nil
	case domain.ModeDirected:
		return NewDirected(def.StratifyBy...), nil
	default:
		return nil, &domain.ConfigError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", def.Mode)}
	}
}
