/*
Package dsl provides a Go DSL (Domain Specific Language) for programmatically
constructing experiment definitions.

It allows developers to define experiments using a type-safe, fluent builder
pattern instead of relying on external YAML or markdown files. This is
particularly useful for dynamic experiment generation, unit testing, and
leveraging IDE autocompletion/type-checking.

Example usage:

	package main

	import (
		"time"

		"github.com/aretw0/petri/pkg/dsl"
	)

	func main() {
		def, err := dsl.NewExperiment("onboarding-v2").
			Describe("Reworked signup funnel").
			Stage("screen", dsl.AttrAtLeast("age", 18)).
			Stage("treat").
			Stage("observe", dsl.MinAge(72 * time.Hour)).
			Group("control").
			Group("variant").
			Stochastic(42).
			Exclude(dsl.AttrEquals("employee", true)).
			Build()
		if err != nil {
			panic(err)
		}

		// The resulting definition can be passed to petri.New(def, ...).
		_ = def
	}
*/
package dsl
