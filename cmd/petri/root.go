package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/petri/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "petri",
	Short: "Petri is a lightweight experimentation framework",
	Long: `Petri runs controlled experiments over populations of subjects: it screens
them with include/exclude filters, distributes them across treatment groups,
and advances them through a filter-gated stage pipeline.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", config.String("PETRI_DIR", "."), "Directory containing experiment definitions")
}

// envInt reads an integer environment default, keeping the fallback when the
// value does not parse.
func envInt(key string, def int) int {
	v, err := config.Int(key, def)
	if err != nil {
		return def
	}
	return v
}
