package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/styleverse/progression/pkg/formula"
)

func newCatalogCmd() *cobra.Command {
	var outputFmt string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List tiers and override reason codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFmt == "json" {
				return printJSON(map[string]any{
					"formula_version": formula.Version,
					"tiers":           formula.TierThresholds,
					"reasons":         formula.Reasons,
				})
			}

			fmt.Printf("formula %s\n\nTiers:\n", formula.Version)
			for _, info := range formula.TierThresholds {
				fmt.Printf("  %s %-5s score >= %d\n", info.Emoji, info.Tier, info.Min)
			}

			fmt.Println("\nOverride reasons:")
			for _, r := range formula.Reasons {
				fmt.Printf("  %-36s %-10s bump<=%d  %s\n", r.Code, r.Category, r.MaxTierBump, r.Label)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")
	return cmd
}
