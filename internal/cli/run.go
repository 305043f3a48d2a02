package cli

import (
	"context"
	"fmt"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	Definition  string // path to a single YAML/JSON definition file
	Dir         string // definitions directory (loam-backed)
	Experiment  string // experiment name within Dir
	Store       string // memory, file, redis or postgres
	DataDir     string // base directory for the file store
	RedisAddr   string
	RedisPass   string
	RedisDB     int
	PostgresDSN string
	Seed        uint64
	SeedSet     bool // true when the user passed --seed explicitly
	Debug       bool
	JSON        bool
}

// Execute handles the run command: load the definition, wire a dish and
// drive one complete cycle, then print the report.
func Execute(ctx context.Context, opts RunOptions) error {
	logger := createLogger(opts.Debug)

	def, err := loadDefinition(ctx, opts)
	if err != nil {
		return err
	}

	// The flag wins over the seed baked into the definition.
	if opts.SeedSet {
		def.Seed = opts.Seed
	}

	dish, closer, err := createDish(ctx, def, opts, logger)
	if err != nil {
		return err
	}
	defer closer()

	report, err := dish.Run(ctx)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	return renderReport(report, opts.JSON)
}
