package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/styleverse/progression/internal/evaluation"
	"github.com/styleverse/progression/pkg/formula"
)

func newEvaluateCmd() *cobra.Command {
	var (
		dbPath       string
		characterKey string
		scope        string
		skipIntent   bool
		boost        int
		outputFmt    string
	)

	cmd := &cobra.Command{
		Use:   "evaluate <episode-id>",
		Short: "Score an episode's tagged event against the character state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one episode id")
			}
			svc, store, err := openWorkflow(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			eval, err := svc.Evaluate(cmd.Context(), args[0], evaluation.EvaluateParams{
				CharacterKey: characterKey,
				Scope:        scope,
				SkipIntent:   skipIntent,
				TotalBoost:   boost,
			})
			if err != nil {
				return err
			}
			if outputFmt == "json" {
				return printJSON(eval)
			}
			printEvaluation(eval)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Sandbox database path")
	cmd.Flags().StringVar(&characterKey, "character", "", "Character key (default: lala)")
	cmd.Flags().StringVar(&scope, "scope", "season", "State scope: season or global")
	cmd.Flags().BoolVar(&skipIntent, "skip-intent", false, "Ignore the episode intent tag")
	cmd.Flags().IntVar(&boost, "boost", 0, "Total boost points to apply")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")

	return cmd
}

func newOverrideCmd() *cobra.Command {
	var (
		dbPath    string
		tierTo    string
		reason    string
		note      string
		outputFmt string
	)

	cmd := &cobra.Command{
		Use:   "override <episode-id>",
		Short: "Override a computed tier before accepting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, store, err := openWorkflow(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			eval, err := svc.Override(cmd.Context(), args[0], evaluation.OverrideParams{
				TierTo:        formula.Tier(tierTo),
				ReasonCode:    reason,
				NarrativeLine: note,
				AppliedBy:     "cli",
			})
			if err != nil {
				return err
			}
			if outputFmt == "json" {
				return printJSON(eval)
			}
			printEvaluation(eval)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Sandbox database path")
	cmd.Flags().StringVar(&tierTo, "tier", "", "Target tier: fail, mid, pass, slay (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason code from the catalog (required)")
	cmd.Flags().StringVar(&note, "note", "", "Narrative line explaining the override")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")
	_ = cmd.MarkFlagRequired("tier")
	_ = cmd.MarkFlagRequired("reason")

	return cmd
}

func newAcceptCmd() *cobra.Command {
	var (
		dbPath          string
		allowOutOfOrder bool
		outputFmt       string
	)

	cmd := &cobra.Command{
		Use:   "accept <episode-id>",
		Short: "Apply the evaluation's deltas to the character state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, store, err := openWorkflow(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := svc.Accept(cmd.Context(), args[0], evaluation.AcceptParams{
				AllowOutOfOrder: allowOutOfOrder,
			})
			if err != nil {
				return err
			}
			if outputFmt == "json" {
				return printJSON(res)
			}

			info := formula.Info(res.TierFinal)
			fmt.Printf("%s  accepted as %s (%d/100)\n", info.Emoji, res.TierFinal, res.Score)
			fmt.Printf("coins      %d -> %d\n", res.PreviousState.Coins, res.NewState.Coins)
			fmt.Printf("reputation %d -> %d\n", res.PreviousState.Reputation, res.NewState.Reputation)
			fmt.Printf("trust      %d -> %d\n", res.PreviousState.BrandTrust, res.NewState.BrandTrust)
			fmt.Printf("influence  %d -> %d\n", res.PreviousState.Influence, res.NewState.Influence)
			fmt.Printf("stress     %d -> %d\n", res.PreviousState.Stress, res.NewState.Stress)
			fmt.Println(res.Narrative)
			for _, w := range res.Warnings {
				fmt.Printf("warning: %s\n", w.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Sandbox database path")
	cmd.Flags().BoolVar(&allowOutOfOrder, "allow-out-of-order", false, "Accept even when an episode with a higher number was already applied")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")

	return cmd
}

func newReevaluateCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "reevaluate <episode-id>",
		Short: "Reopen the most recently accepted episode",
		Long: `Reverses the episode's ledger entry, restores the character state to the
preceding snapshot, and returns the evaluation to computed so it can be
adjusted and re-accepted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, store, err := openWorkflow(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			eval, err := svc.Reevaluate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("episode reopened; state restored, tier %s (%d/100) pending re-accept\n",
				eval.TierFinal, eval.Score)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Sandbox database path")
	return cmd
}
