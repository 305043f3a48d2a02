package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/petri/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check experiment definitions for consistency",
	Long: `Parses and validates a single definition file or every definition in --dir.
With --watch, keeps re-validating whenever a definition changes.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := cli.ValidateOptions{}
		opts.Definition, _ = cmd.Flags().GetString("definition")
		opts.Dir, _ = cmd.Flags().GetString("dir")
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		opts.Debug, _ = cmd.Flags().GetBool("debug")

		if opts.Definition == "" && len(args) > 0 {
			opts.Definition = args[0]
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := cli.RunValidate(ctx, opts); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("definition", "f", "", "Path to a YAML or JSON definition file")
	validateCmd.Flags().Bool("watch", false, "Re-validate when definitions change")
	validateCmd.Flags().Bool("debug", false, "Enable debug logging")
}
