package dsl

import (
	"time"

	"github.com/aretw0/petri/pkg/domain"
)

// Filter spec constructors, one per built-in kind.

// Always passes every subject.
func Always() domain.FilterSpec {
	return domain.FilterSpec{Kind: "always"}
}

// Never passes no subject.
func Never() domain.FilterSpec {
	return domain.FilterSpec{Kind: "never"}
}

// AttrExists passes subjects carrying the attribute, whatever its value.
func AttrExists(attr string) domain.FilterSpec {
	return domain.FilterSpec{Kind: "attr_exists", Attr: attr}
}

// AttrEquals passes subjects whose attribute equals value.
func AttrEquals(attr string, value any) domain.FilterSpec {
	return domain.FilterSpec{Kind: "attr_equals", Attr: attr, Value: value}
}

// AttrIn passes subjects whose attribute equals one of values.
func AttrIn(attr string, values ...any) domain.FilterSpec {
	return domain.FilterSpec{Kind: "attr_in", Attr: attr, Values: values}
}

// AttrBetween passes subjects whose numeric attribute lies in [min, max].
func AttrBetween(attr string, min, max float64) domain.FilterSpec {
	return domain.FilterSpec{Kind: "attr_range", Attr: attr, Min: &min, Max: &max}
}

// AttrAtLeast passes subjects whose numeric attribute is >= min.
func AttrAtLeast(attr string, min float64) domain.FilterSpec {
	return domain.FilterSpec{Kind: "attr_range", Attr: attr, Min: &min}
}

// AttrAtMost passes subjects whose numeric attribute is <= max.
func AttrAtMost(attr string, max float64) domain.FilterSpec {
	return domain.FilterSpec{Kind: "attr_range", Attr: attr, Max: &max}
}

// MinAge passes subjects enrolled at least d ago.
func MinAge(d time.Duration) domain.FilterSpec {
	return domain.FilterSpec{Kind: "min_age", MinAge: d.String()}
}

// Not inverts a spec.
func Not(spec domain.FilterSpec) domain.FilterSpec {
	return domain.FilterSpec{Kind: "not", Specs: []domain.FilterSpec{spec}}
}

// All passes when every spec passes.
func All(specs ...domain.FilterSpec) domain.FilterSpec {
	return domain.FilterSpec{Kind: "all", Specs: specs}
}

// Any passes when at least one spec passes.
func Any(specs ...domain.FilterSpec) domain.FilterSpec {
	return domain.FilterSpec{Kind: "any", Specs: specs}
}

// Custom builds a spec for a kind registered with domain.RegisterFilterKind.
func Custom(kind string, params map[string]any) domain.FilterSpec {
	return domain.FilterSpec{Kind: kind, Params: params}
}
