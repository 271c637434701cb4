// Package main provides the progression CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "progression",
		Short: "Character progression evaluation for episode scripts",
		Long: `Progression evaluates episode scripts against the character economy,
applies creator overrides, and commits accepted outcomes to a local
sandbox ledger.`,
		Version: version,
	}

	rootCmd.AddCommand(
		newEpisodeCmd(),
		newEvaluateCmd(),
		newOverrideCmd(),
		newAcceptCmd(),
		newReevaluateCmd(),
		newStateCmd(),
		newHistoryCmd(),
		newCatalogCmd(),
		newExportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
