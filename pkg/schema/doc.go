// Package schema provides a type-safe validation system for subject attributes.
//
// It defines a simple type system with built-in types (string, int, float,
// bool, time) and support for slices and custom validators. Schemas map
// attribute names to types, letting an experiment definition declare what its
// subjects must carry before filters and stratified assignment touch them.
//
// Basic usage:
//
//	sc := schema.Schema{
//	    "site":    schema.String(),
//	    "age":     schema.Int(),
//	    "tags":    schema.Slice(schema.String()),
//	}
//
//	attrs := map[string]any{
//	    "site": "lisbon",
//	    "age":  42,
//	    "tags": []string{"pilot", "consented"},
//	}
//
//	if err := schema.Validate(sc, attrs); err != nil {
//	    // every failure, aggregated
//	}
//
// Definitions declare attribute types as strings, parsed at construction:
//
//	sc, err := schema.ParseTypeMap(map[string]string{
//	    "site": "string",
//	    "age":  "int",
//	    "tags": "[string]",
//	})
//
// Custom validators cover domain-specific constraints:
//
//	positive := schema.Custom("positive_int", func(v any) error {
//	    i, ok := v.(int)
//	    if !ok || i <= 0 {
//	        return fmt.Errorf("must be a positive int")
//	    }
//	    return nil
//	})
//
// The package has zero dependencies beyond the Go standard library.
package schema
