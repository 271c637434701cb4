package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/styleverse/progression/internal/archive"
	"github.com/styleverse/progression/internal/evaluation"
)

func newStateCmd() *cobra.Command {
	var (
		dbPath       string
		showID       string
		seasonID     string
		characterKey string
		scope        string
		outputFmt    string
	)

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the character's current economy",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, store, err := openWorkflow(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			var season *string
			if seasonID != "" {
				season = &seasonID
			}
			st, err := svc.GetCharacterState(cmd.Context(), showID, season, characterKey, scope)
			if err != nil {
				return err
			}
			if outputFmt == "json" {
				return printJSON(st)
			}

			fmt.Printf("%s / %s\n", st.ShowID, st.CharacterKey)
			fmt.Printf("coins       %d\n", st.Stats.Coins)
			fmt.Printf("reputation  %d\n", st.Stats.Reputation)
			fmt.Printf("brand_trust %d\n", st.Stats.BrandTrust)
			fmt.Printf("influence   %d\n", st.Stats.Influence)
			fmt.Printf("stress      %d\n", st.Stats.Stress)
			if st.LastAppliedEpisodeID != nil {
				fmt.Printf("last applied episode: %s\n", *st.LastAppliedEpisodeID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Sandbox database path")
	cmd.Flags().StringVar(&showID, "show", "sandbox", "Show ID")
	cmd.Flags().StringVar(&seasonID, "season", "", "Season ID (empty for global scope)")
	cmd.Flags().StringVar(&characterKey, "character", "", "Character key (default: lala)")
	cmd.Flags().StringVar(&scope, "scope", "season", "State scope: season or global")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")

	return cmd
}

func newHistoryCmd() *cobra.Command {
	var (
		dbPath       string
		showID       string
		characterKey string
		limit        int
		outputFmt    string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the character state ledger, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, store, err := openWorkflow(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := svc.History(cmd.Context(), evaluation.HistoryQuery{
				ShowID:       showID,
				CharacterKey: characterKey,
				Limit:        limit,
			})
			if err != nil {
				return err
			}
			if outputFmt == "json" {
				return printJSON(entries)
			}

			if len(entries) == 0 {
				fmt.Println("no ledger entries")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%s  %-9s ep=%s coins=%d stress=%d  %s\n",
					e.CreatedAt.Format("2006-01-02 15:04"),
					e.Source, e.EpisodeID, e.StateAfter.Coins, e.StateAfter.Stress, e.Note)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Sandbox database path")
	cmd.Flags().StringVar(&showID, "show", "sandbox", "Show ID")
	cmd.Flags().StringVar(&characterKey, "character", "", "Filter by character key")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")

	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		dbPath       string
		showID       string
		seasonID     string
		characterKey string
		outDir       string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the character's state and ledger as a JSON bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := openWorkflow(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			var season *string
			if seasonID != "" {
				season = &seasonID
			}
			svc := archive.NewService(store, archive.NewLocalStorage(outDir))
			rec, err := svc.Export(cmd.Context(), showID, season, characterKey)
			if err != nil {
				return err
			}
			fmt.Printf("exported %d ledger entries to %s/%s/exports/%s.json\n",
				rec.Entries, outDir, showID, rec.ExportID)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Sandbox database path")
	cmd.Flags().StringVar(&showID, "show", "sandbox", "Show ID")
	cmd.Flags().StringVar(&seasonID, "season", "", "Season ID (empty for global scope)")
	cmd.Flags().StringVar(&characterKey, "character", "", "Character key (default: lala)")
	cmd.Flags().StringVar(&outDir, "out", "./exports", "Export output directory")

	return cmd
}
