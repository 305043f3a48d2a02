package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/petri/internal/cli"
	"github.com/aretw0/petri/internal/config"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the pipeline visualization",
	Long: `Outputs a Mermaid diagram (graph LR) of the experiment pipeline: the
distribution edge, every stage and its exit filter. With --occupancy, stage
nodes carry the current subject counts from the selected store.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := cli.GraphOptions{}
		opts.Definition, _ = cmd.Flags().GetString("definition")
		opts.Dir, _ = cmd.Flags().GetString("dir")
		opts.Experiment, _ = cmd.Flags().GetString("experiment")
		opts.Store, _ = cmd.Flags().GetString("store")
		opts.DataDir, _ = cmd.Flags().GetString("data-dir")
		opts.RedisAddr, _ = cmd.Flags().GetString("redis-addr")
		opts.RedisPass, _ = cmd.Flags().GetString("redis-password")
		opts.RedisDB, _ = cmd.Flags().GetInt("redis-db")
		opts.PostgresDSN, _ = cmd.Flags().GetString("postgres-dsn")
		opts.Occupancy, _ = cmd.Flags().GetBool("occupancy")

		if opts.Definition == "" && len(args) > 0 {
			opts.Definition = args[0]
		}

		if err := cli.RunGraph(context.Background(), opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().StringP("definition", "f", "", "Path to a YAML or JSON definition file")
	graphCmd.Flags().StringP("experiment", "e", "", "Experiment name inside --dir")
	graphCmd.Flags().Bool("occupancy", false, "Overlay current stage occupancy from the store")
	graphCmd.Flags().String("store", config.String("PETRI_STORE", "memory"), "Subject store backend: memory, file, redis or postgres")
	graphCmd.Flags().String("data-dir", config.String("PETRI_DATA_DIR", ".petri/data"), "Base directory for the file store")
	graphCmd.Flags().String("redis-addr", config.String("PETRI_REDIS_ADDR", "localhost:6379"), "Redis address for the redis store")
	graphCmd.Flags().String("redis-password", config.String("PETRI_REDIS_PASSWORD", ""), "Redis password")
	graphCmd.Flags().Int("redis-db", envInt("PETRI_REDIS_DB", 0), "Redis database number")
	graphCmd.Flags().String("postgres-dsn", config.String("PETRI_POSTGRES_DSN", ""), "Postgres connection string for the postgres store")
}
