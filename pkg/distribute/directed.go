package distribute

import (
	"fmt"

	"github.com/aretw0/petri/pkg/domain"
)

// Directed assigns each subject to the group that currently holds the fewest
// subjects sharing the subject's stratifying attribute values. Ties break to
// the smallest group total, then to lexicographic label order, making the
// result fully deterministic. Groups at capacity are not candidates.
type Directed struct {
	stratifyBy []string
}

// NewDirected creates a directed distributor balancing the given attributes.
func NewDirected(stratifyBy ...string) *Directed {
	return &Directed{stratifyBy: stratifyBy}
}

// Assign picks the group minimizing stratum imbalance for the subject.
// A subject missing a stratifying attribute cannot be placed and errors out
// (the engine holds it); a nil history counts as empty.
func (d *Directed) Assign(s *domain.Subject, groups []domain.Group, hist *History) (string, error) {
	if len(groups) == 0 {
		return "", domain.ErrNoGroups
	}
	if hist == nil {
		hist = NewHistory(d.stratifyBy...)
	}

	values := make(map[string]any, len(d.stratifyBy))
	for _, attr := range d.stratifyBy {
		v, ok := s.Attr(attr)
		if !ok {
			return "", fmt.Errorf("%w: %q", domain.ErrMissingAttribute, attr)
		}
		values[attr] = v
	}

	var (
		best      string
		bestScore int
		bestTotal int
	)
	for _, g := range groups {
		total := hist.Total(g.Label)
		if g.Capacity > 0 && total >= g.Capacity {
			continue
		}

		score := 0
		for _, attr := range d.stratifyBy {
			score += hist.Stratum(g.Label, attr, values[attr])
		}

		better := best == "" ||
			score < bestScore ||
			(score == bestScore && total < bestTotal) ||
			(score == bestScore && total == bestTotal && g.Label < best)
		if better {
			best, bestScore, bestTotal = g.Label, score, total
		}
	}

	if best == "" {
		return "", domain.ErrGroupsFull
	}
	return best, nil
}
