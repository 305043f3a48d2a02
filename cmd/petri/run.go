package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/petri/internal/cli"
	"github.com/aretw0/petri/internal/config"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive one experiment cycle",
	Long: `Fetches the population, screens it with the include/exclude filters,
distributes unassigned subjects to treatment groups, advances each subject
through the stage pipeline, writes the population back and prints the report.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := cli.RunOptions{}
		opts.Definition, _ = cmd.Flags().GetString("definition")
		opts.Dir, _ = cmd.Flags().GetString("dir")
		opts.Experiment, _ = cmd.Flags().GetString("experiment")
		opts.Store, _ = cmd.Flags().GetString("store")
		opts.DataDir, _ = cmd.Flags().GetString("data-dir")
		opts.RedisAddr, _ = cmd.Flags().GetString("redis-addr")
		opts.RedisPass, _ = cmd.Flags().GetString("redis-password")
		opts.RedisDB, _ = cmd.Flags().GetInt("redis-db")
		opts.PostgresDSN, _ = cmd.Flags().GetString("postgres-dsn")
		opts.Seed, _ = cmd.Flags().GetUint64("seed")
		opts.SeedSet = cmd.Flags().Changed("seed")
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.JSON, _ = cmd.Flags().GetBool("json")

		// A lone positional argument selects the definition file.
		if opts.Definition == "" && len(args) > 0 {
			opts.Definition = args[0]
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := cli.Execute(ctx, opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("definition", "f", "", "Path to a YAML or JSON definition file")
	runCmd.Flags().StringP("experiment", "e", "", "Experiment name inside --dir")
	runCmd.Flags().String("store", config.String("PETRI_STORE", "memory"), "Subject store backend: memory, file, redis or postgres")
	runCmd.Flags().String("data-dir", config.String("PETRI_DATA_DIR", ".petri/data"), "Base directory for the file store")
	runCmd.Flags().String("redis-addr", config.String("PETRI_REDIS_ADDR", "localhost:6379"), "Redis address for the redis store")
	runCmd.Flags().String("redis-password", config.String("PETRI_REDIS_PASSWORD", ""), "Redis password")
	runCmd.Flags().Int("redis-db", envInt("PETRI_REDIS_DB", 0), "Redis database number")
	runCmd.Flags().String("postgres-dsn", config.String("PETRI_POSTGRES_DSN", ""), "Postgres connection string for the postgres store")
	runCmd.Flags().Uint64("seed", 0, "Override the definition's random seed")
	runCmd.Flags().Bool("debug", false, "Enable debug logging")
	runCmd.Flags().Bool("json", false, "Force plain JSON report output")
}
