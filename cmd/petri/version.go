package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/petri"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of petri",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("petri version %s\n", strings.TrimSpace(petri.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
