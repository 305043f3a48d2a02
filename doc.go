/*
Package petri is a lightweight experimentation-tracking framework: it pulls subjects from a data source, assigns them to treatment groups, advances them through defined experiment stages, and writes the updated batch back to a sink.

It implements a "Rehydrate, Decide, Persist" cycle, separating the experiment definition (Logic) from the subject population (State) and storage (Adapters).

# Concept

Petri treats an experiment as an ordered pipeline of stages gated by filters. The Dish orchestrator manages group distribution, stage transitions, and persistence, while your application ("Host") decides where subjects come from and when runs happen. This Hexagonal Architecture allows Petri to be embedded in any interface: CLI, HTTP Server, or a plain cron job.

# Key Features

  - Deterministic Distribution: stochastic assignment under a fixed seed is fully reproducible; directed assignment balances stratifying attributes explicitly.
  - Hexagonal Architecture: the run cycle is decoupled from adapters (Memory, File, Redis, Postgres, Loam).
  - External State: no in-process state survives between runs; the source is rehydrated on every call, so restarts and retries are safe.
  - Strict Contracts: definitions and attribute schemas are validated before any run starts.

# Usage

Build a definition (with the DSL, the YAML parser, or a loam repository), construct a Dish, and trigger Run at your own cadence.

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/petri"
		"github.com/aretw0/petri/pkg/dsl"
	)

	func main() {
		// Define the experiment
		def, err := dsl.NewExperiment("onboarding").
			Stage("exposed").
			Stage("activated", dsl.AttrEquals("activated", true)).
			Group("control").
			Group("treatment").
			Stochastic(42).
			Build()
		if err != nil {
			log.Fatal(err)
		}

		// Initialize the Dish (in-memory store by default)
		dish, err := petri.New(def)
		if err != nil {
			log.Fatal(err)
		}

		// One run is one complete cycle over the population
		report, err := dish.Run(context.Background())
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("assigned %d, advanced %d, held %d",
			report.Assigned, report.Advanced, report.Held)
	}
*/
package petri
