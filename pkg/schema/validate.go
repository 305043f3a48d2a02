package schema

// Schema is a map of attribute names to their expected types.
// Example: {"site": String(), "age": Int(), "tags": Slice(String())}
type Schema map[string]Type

// Validate checks if the attribute map conforms to the schema. Every declared
// attribute is required; undeclared attributes are ignored. All failures are
// collected into one error.
func Validate(schema Schema, attrs map[string]any) error {
	if len(schema) == 0 {
		// No schema = no validation
		return nil
	}

	var errs []error

	for name, typ := range schema {
		value, exists := attrs[name]
		if !exists {
			errs = append(errs, &ValidationError{
				Attr:   name,
				Reason: "required",
				Value:  nil,
			})
			continue
		}

		if err := typ.Validate(value); err != nil {
			errs = append(errs, &ValidationError{
				Attr:   name,
				Reason: err.Error(),
				Value:  value,
			})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}

	return nil
}
