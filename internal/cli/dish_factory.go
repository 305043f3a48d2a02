package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/petri"
	"github.com/aretw0/petri/internal/compiler"
	"github.com/aretw0/petri/pkg/adapters/file"
	loamadapter "github.com/aretw0/petri/pkg/adapters/loam"
	"github.com/aretw0/petri/pkg/adapters/memory"
	"github.com/aretw0/petri/pkg/adapters/postgres"
	"github.com/aretw0/petri/pkg/adapters/redis"
	"github.com/aretw0/petri/pkg/domain"
	"github.com/aretw0/petri/pkg/ports"
)

// loadDefinition resolves the experiment definition from the options:
// either a single file or a named experiment inside a definitions directory.
func loadDefinition(ctx context.Context, opts RunOptions) (*domain.Definition, error) {
	if opts.Definition != "" {
		return compiler.NewParser().ParseFile(opts.Definition)
	}

	if opts.Dir != "" {
		if opts.Experiment == "" {
			return nil, fmt.Errorf("--dir requires --experiment to select a definition")
		}
		loader, err := loamadapter.Open(opts.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open definitions directory: %w", err)
		}
		return loader.Load(ctx, opts.Experiment)
	}

	return nil, fmt.Errorf("a definition is required: pass --definition or --dir with --experiment")
}

// buildStore constructs the subject store selected by --store. The returned
// closer releases backend connections and is safe to call on every path.
func buildStore(ctx context.Context, opts RunOptions, experiment string) (ports.SubjectStore, func(), error) {
	noop := func() {}

	switch opts.Store {
	case "", "memory":
		return memory.New(), noop, nil

	case "file":
		store, err := file.New(opts.DataDir, experiment)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open file store: %w", err)
		}
		return store, noop, nil

	case "redis":
		store := redis.New(opts.RedisAddr, opts.RedisPass, opts.RedisDB, experiment)
		return store, func() { _ = store.Close() }, nil

	case "postgres":
		pool, err := postgres.NewPool(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		store := postgres.New(pool, experiment)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to migrate postgres store: %w", err)
		}
		return store, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q (want memory, file, redis or postgres)", opts.Store)
	}
}

// createDish wires a dish with the standard CLI conventions: the selected
// store, the shared logger and debug hooks when requested.
func createDish(ctx context.Context, def *domain.Definition, opts RunOptions, logger *slog.Logger) (*petri.Dish, func(), error) {
	store, closer, err := buildStore(ctx, opts, def.Name)
	if err != nil {
		return nil, nil, err
	}

	dishOpts := []petri.Option{
		petri.WithStore(store),
		petri.WithLogger(logger),
	}
	if opts.Debug {
		dishOpts = append(dishOpts, petri.WithHooks(createDebugHooks(logger)))
	}

	dish, err := petri.New(def, dishOpts...)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return dish, closer, nil
}
