package distribute

import (
	"math/rand/v2"

	"github.com/aretw0/petri/pkg/domain"
)

// Stochastic draws a treatment group at random. Unweighted groups are drawn
// uniformly; when any group carries a weight, draws are weight-proportional
// and zero-weight groups are never drawn.
type Stochastic struct {
	rng *rand.Rand
}

// NewStochastic creates a seeded stochastic distributor. The same seed and
// the same subject order reproduce the same assignment sequence.
func NewStochastic(seed uint64) *Stochastic {
	return &Stochastic{rng: rand.New(rand.NewPCG(seed, seed))}
}

// Assign picks a group for the subject. History is not consulted.
func (d *Stochastic) Assign(_ *domain.Subject, groups []domain.Group, _ *History) (string, error) {
	if len(groups) == 0 {
		return "", domain.ErrNoGroups
	}

	var total float64
	for _, g := range groups {
		total += g.Weight
	}
	if total == 0 {
		return groups[d.rng.IntN(len(groups))].Label, nil
	}

	r := d.rng.Float64() * total
	for _, g := range groups {
		r -= g.Weight
		if g.Weight > 0 && r < 0 {
			return g.Label, nil
		}
	}
	// Float rounding can leave a sliver past the last weighted group.
	for i := len(groups) - 1; i >= 0; i-- {
		if groups[i].Weight > 0 {
			return groups[i].Label, nil
		}
	}
	return groups[len(groups)-1].Label, nil
}
