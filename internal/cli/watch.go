package cli

import (
	"context"
	"fmt"

	"github.com/aretw0/petri"
	"github.com/aretw0/petri/internal/compiler"
	"github.com/aretw0/petri/internal/presentation/tui"
	loamadapter "github.com/aretw0/petri/pkg/adapters/loam"
)

// ValidateOptions contains all the configuration for the validate command.
type ValidateOptions struct {
	Definition string
	Dir        string
	Watch      bool
	Debug      bool
}

// RunValidate checks the selected definitions and prints one line per
// result. With Watch it keeps re-validating whenever the directory changes.
func RunValidate(ctx context.Context, opts ValidateOptions) error {
	if opts.Definition != "" {
		if opts.Watch {
			return fmt.Errorf("--watch requires --dir")
		}
		return validateFile(opts.Definition)
	}

	if opts.Dir == "" {
		return fmt.Errorf("a definition is required: pass --definition or --dir")
	}

	loader, err := loamadapter.Open(opts.Dir)
	if err != nil {
		return fmt.Errorf("failed to open definitions directory: %w", err)
	}

	if !opts.Watch {
		return validateDir(ctx, loader)
	}
	return watchDir(ctx, opts, loader)
}

func validateFile(path string) error {
	def, err := compiler.NewParser().ParseFile(path)
	if err != nil {
		printSystemMessage("Invalid: %v", err)
		return fmt.Errorf("validation failed")
	}
	printSystemMessage("Definition '%s' is valid.", def.Name)
	return nil
}

func validateDir(ctx context.Context, loader *loamadapter.Loader) error {
	names, err := loader.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list definitions: %w", err)
	}
	if len(names) == 0 {
		printSystemMessage("No definitions found.")
		return nil
	}

	failed := 0
	for _, name := range names {
		if _, err := loader.Load(ctx, name); err != nil {
			failed++
			printSystemMessage("✗ %s: %v", name, err)
			continue
		}
		printSystemMessage("✓ %s", name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d definitions failed validation", failed, len(names))
	}
	return nil
}

// watchDir re-validates on every change until the context is cancelled.
// Failures do not stop the loop; fixing them is what the watcher is for.
func watchDir(ctx context.Context, opts ValidateOptions, loader *loamadapter.Loader) error {
	logger := createLogger(opts.Debug)
	tui.PrintBanner(petri.Version)

	if err := validateDir(ctx, loader); err != nil {
		logger.Warn("Validation failed", "err", err)
	}

	watchCh, err := loader.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch definitions directory: %w", err)
	}

	printSystemMessage("Watching '%s' for changes...", opts.Dir)
	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\n")
			printSystemMessage("Watcher stopped.")
			return nil
		case _, ok := <-watchCh:
			if !ok {
				return nil
			}
			printSystemMessage("Change detected in '%s'.", opts.Dir)
			if err := validateDir(ctx, loader); err != nil {
				logger.Warn("Validation failed", "err", err)
			}
			printSystemMessage("Waiting for changes...")
		}
	}
}
