package domain

import (
	"fmt"
	"reflect"
	"time"
)

// Filter is a predicate over a subject, evaluated at a point in time.
// Implementations return an error when the predicate cannot be decided
// (for example a required attribute is absent); the engine treats that as a
// hold, never as a pass or a fail.
type Filter interface {
	Eval(s *Subject, now time.Time) (bool, error)
}

// FilterFunc adapts a plain function to the Filter interface.
type FilterFunc func(s *Subject, now time.Time) (bool, error)

// Eval calls f.
func (f FilterFunc) Eval(s *Subject, now time.Time) (bool, error) {
	return f(s, now)
}

// Built-in filter kinds. Custom kinds can be added with RegisterFilterKind.
const (
	FilterAlways     = "always"
	FilterNever      = "never"
	FilterAttrExists = "attr_exists"
	FilterAttrEquals = "attr_equals"
	FilterAttrIn     = "attr_in"
	FilterAttrRange  = "attr_range"
	FilterMinAge     = "min_age"
	FilterNot        = "not"
	FilterAll        = "all"
	FilterAny        = "any"
)

// FilterSpec is the declarative form of a filter: a closed set of tagged
// variants selected by Kind. Specs travel inside definitions (YAML,
// frontmatter, JSON) and compile to executable Filters.
type FilterSpec struct {
	Kind string `json:"kind" yaml:"kind" mapstructure:"kind"`

	// Attr names the subject attribute inspected by the attr_* kinds.
	Attr string `json:"attr,omitempty" yaml:"attr,omitempty" mapstructure:"attr"`

	// Value is the comparison operand for attr_equals.
	Value any `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`

	// Values is the accepted set for attr_in.
	Values []any `json:"values,omitempty" yaml:"values,omitempty" mapstructure:"values"`

	// Min and Max bound attr_range (inclusive). A nil bound is open.
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty" mapstructure:"min"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty" mapstructure:"max"`

	// MinAge is a Go duration string ("72h", "30m") for the min_age kind:
	// the subject must have been enrolled at least this long.
	MinAge string `json:"min_age,omitempty" yaml:"min_age,omitempty" mapstructure:"min_age"`

	// Specs holds the operands of the not/all/any combinators.
	Specs []FilterSpec `json:"specs,omitempty" yaml:"specs,omitempty" mapstructure:"specs"`

	// Params carries free-form configuration for registered custom kinds.
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`
}

// Compile turns the spec into an executable Filter. Structural problems
// (unknown kind, missing operands, a bad duration) surface here, so a
// definition that compiles cleanly cannot fail on spec shape at run time.
func (f FilterSpec) Compile() (Filter, error) {
	switch f.Kind {
	case FilterAlways:
		return FilterFunc(func(*Subject, time.Time) (bool, error) {
			return true, nil
		}), nil

	case FilterNever:
		return FilterFunc(func(*Subject, time.Time) (bool, error) {
			return false, nil
		}), nil

	case FilterAttrExists:
		if f.Attr == "" {
			return nil, fmt.Errorf("%s: attr is required", f.Kind)
		}
		attr := f.Attr
		return FilterFunc(func(s *Subject, _ time.Time) (bool, error) {
			_, ok := s.Attr(attr)
			return ok, nil
		}), nil

	case FilterAttrEquals:
		if f.Attr == "" {
			return nil, fmt.Errorf("%s: attr is required", f.Kind)
		}
		attr, want := f.Attr, f.Value
		return FilterFunc(func(s *Subject, _ time.Time) (bool, error) {
			got, ok := s.Attr(attr)
			if !ok {
				return false, fmt.Errorf("%w: %q", ErrMissingAttribute, attr)
			}
			return attrEqual(got, want), nil
		}), nil

	case FilterAttrIn:
		if f.Attr == "" {
			return nil, fmt.Errorf("%s: attr is required", f.Kind)
		}
		if len(f.Values) == 0 {
			return nil, fmt.Errorf("%s: values is required", f.Kind)
		}
		attr, accepted := f.Attr, f.Values
		return FilterFunc(func(s *Subject, _ time.Time) (bool, error) {
			got, ok := s.Attr(attr)
			if !ok {
				return false, fmt.Errorf("%w: %q", ErrMissingAttribute, attr)
			}
			for _, v := range accepted {
				if attrEqual(got, v) {
					return true, nil
				}
			}
			return false, nil
		}), nil

	case FilterAttrRange:
		if f.Attr == "" {
			return nil, fmt.Errorf("%s: attr is required", f.Kind)
		}
		if f.Min == nil && f.Max == nil {
			return nil, fmt.Errorf("%s: at least one of min/max is required", f.Kind)
		}
		attr, lo, hi := f.Attr, f.Min, f.Max
		return FilterFunc(func(s *Subject, _ time.Time) (bool, error) {
			got, ok := s.Attr(attr)
			if !ok {
				return false, fmt.Errorf("%w: %q", ErrMissingAttribute, attr)
			}
			n, ok := toFloat(got)
			if !ok {
				return false, fmt.Errorf("attribute %q is not numeric (got %T)", attr, got)
			}
			if lo != nil && n < *lo {
				return false, nil
			}
			if hi != nil && n > *hi {
				return false, nil
			}
			return true, nil
		}), nil

	case FilterMinAge:
		d, err := time.ParseDuration(f.MinAge)
		if err != nil {
			return nil, fmt.Errorf("%s: bad duration %q: %w", f.Kind, f.MinAge, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("%s: duration must not be negative", f.Kind)
		}
		return FilterFunc(func(s *Subject, now time.Time) (bool, error) {
			if s.Joined.IsZero() {
				return false, fmt.Errorf("%w: joined", ErrMissingAttribute)
			}
			return now.Sub(s.Joined) >= d, nil
		}), nil

	case FilterNot:
		if len(f.Specs) != 1 {
			return nil, fmt.Errorf("%s: exactly one sub-spec is required", f.Kind)
		}
		inner, err := f.Specs[0].Compile()
		if err != nil {
			return nil, err
		}
		return FilterFunc(func(s *Subject, now time.Time) (bool, error) {
			ok, err := inner.Eval(s, now)
			if err != nil {
				return false, err
			}
			return !ok, nil
		}), nil

	case FilterAll, FilterAny:
		if len(f.Specs) == 0 {
			return nil, fmt.Errorf("%s: at least one sub-spec is required", f.Kind)
		}
		inner := make([]Filter, len(f.Specs))
		for i, sub := range f.Specs {
			c, err := sub.Compile()
			if err != nil {
				return nil, err
			}
			inner[i] = c
		}
		wantAll := f.Kind == FilterAll
		return FilterFunc(func(s *Subject, now time.Time) (bool, error) {
			for _, flt := range inner {
				ok, err := flt.Eval(s, now)
				if err != nil {
					return false, err
				}
				if ok != wantAll {
					return !wantAll, nil
				}
			}
			return wantAll, nil
		}), nil

	default:
		if compile, ok := lookupFilterKind(f.Kind); ok {
			return compile(f)
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, f.Kind)
	}
}

// CompileAll compiles a list of specs, stopping at the first failure.
func CompileAll(specs []FilterSpec) ([]Filter, error) {
	out := make([]Filter, len(specs))
	for i, spec := range specs {
		f, err := spec.Compile()
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// attrEqual compares attribute values with numeric coercion, since values
// arriving through JSON or YAML land as float64/int interchangeably.
func attrEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
