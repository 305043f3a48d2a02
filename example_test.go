package petri_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/petri"
	"github.com/aretw0/petri/pkg/adapters/memory"
	"github.com/aretw0/petri/pkg/domain"
	"github.com/aretw0/petri/pkg/dsl"
)

// Example demonstrates one full cycle over a small population, using the
// DSL for the definition and the default in-memory store.
func Example() {
	// 1. Define the experiment using the fluent builder
	def, err := dsl.NewExperiment("signup-copy").
		Describe("Compare two signup headlines.").
		Stage("exposed").
		Stage("converted", dsl.AttrEquals("signed_up", true)).
		Group("control").
		Group("variant").
		Stochastic(7).
		Build()
	if err != nil {
		log.Fatal(err)
	}

	// 2. Seed a store with subjects observed elsewhere
	store := memory.New().Seed(
		domain.Subject{ID: "u-1", Stage: domain.StageUnassigned},
		domain.Subject{ID: "u-2", Stage: domain.StageUnassigned},
		domain.Subject{ID: "u-3", Stage: domain.StageUnassigned},
	)

	dish, err := petri.New(def, petri.WithStore(store))
	if err != nil {
		log.Fatal(err)
	}

	// 3. One run: everyone is assigned and placed at the first stage
	report, err := dish.Run(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("assigned %d of %d subjects\n", report.Assigned, report.Fetched)
	fmt.Printf("%d at stage 'exposed'\n", report.Stages["exposed"])
	// Output:
	// assigned 3 of 3 subjects
	// 3 at stage 'exposed'
}
