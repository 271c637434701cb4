package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/styleverse/progression/internal/evaluation"
	"github.com/styleverse/progression/pkg/formula"
)

func newEpisodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "episode",
		Short: "Manage sandbox episodes",
	}
	cmd.AddCommand(newEpisodePutCmd(), newEpisodeShowCmd())
	return cmd
}

func newEpisodePutCmd() *cobra.Command {
	var (
		dbPath       string
		showID       string
		seasonID     string
		number       int
		title        string
		scriptFile   string
		wardrobeFile string
	)

	cmd := &cobra.Command{
		Use:   "put <episode-id>",
		Short: "Create or update an episode from a script file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := os.ReadFile(scriptFile)
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}

			var wardrobe []formula.WardrobeItem
			if wardrobeFile != "" {
				data, err := os.ReadFile(wardrobeFile)
				if err != nil {
					return fmt.Errorf("read wardrobe: %w", err)
				}
				if err := json.Unmarshal(data, &wardrobe); err != nil {
					return fmt.Errorf("parse wardrobe: %w", err)
				}
			}

			svc, store, err := openWorkflow(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			ep := &evaluation.Episode{
				ID:       args[0],
				ShowID:   showID,
				Number:   number,
				Title:    title,
				Script:   string(script),
				Wardrobe: wardrobe,
			}
			if seasonID != "" {
				ep.SeasonID = &seasonID
			}
			if err := svc.UpsertEpisode(cmd.Context(), ep); err != nil {
				return err
			}
			fmt.Printf("episode %s saved\n", ep.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Sandbox database path (default: ~/.progression/sandbox.db)")
	cmd.Flags().StringVar(&showID, "show", "sandbox", "Show ID")
	cmd.Flags().StringVar(&seasonID, "season", "", "Season ID (empty for global scope)")
	cmd.Flags().IntVar(&number, "number", 0, "Episode number (used for ordering checks)")
	cmd.Flags().StringVar(&title, "title", "", "Episode title")
	cmd.Flags().StringVar(&scriptFile, "script", "", "Path to the script file (required)")
	cmd.Flags().StringVar(&wardrobeFile, "wardrobe", "", "Path to a wardrobe JSON file")
	_ = cmd.MarkFlagRequired("script")

	return cmd
}

func newEpisodeShowCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "show <episode-id>",
		Short: "Print an episode and its evaluation record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, store, err := openWorkflow(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			ep, err := svc.GetEpisode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(ep)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Sandbox database path")
	return cmd
}
