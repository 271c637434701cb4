package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/styleverse/progression/internal/evaluation"
	"github.com/styleverse/progression/internal/sandbox"
	"github.com/styleverse/progression/pkg/config"
	"github.com/styleverse/progression/pkg/formula"
)

// openWorkflow opens the local sandbox database and wraps it in the
// evaluation workflow. Callers must Close the returned store.
func openWorkflow(dbPath string) (*evaluation.Service, *sandbox.Store, error) {
	if dbPath == "" {
		var err error
		dbPath, err = config.SandboxPath()
		if err != nil {
			return nil, nil, err
		}
	}
	store, err := sandbox.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return evaluation.NewService(store, nil), store, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printEvaluation renders an evaluation the way the writers room reads
// it: tier banner, breakdown, deltas, warnings.
func printEvaluation(eval *evaluation.Evaluation) {
	info := formula.Info(eval.TierFinal)
	fmt.Printf("%s  %s (%d/100)\n", info.Emoji, eval.TierFinal, eval.Score)
	if eval.TierFinal != eval.TierComputed {
		fmt.Printf("    overridden from %s\n", eval.TierComputed)
	}
	fmt.Printf("Event: %s (prestige %d, cost %d)\n",
		eval.EventParsed.Name, eval.EventParsed.Prestige, eval.EventParsed.Cost)
	if eval.Intent != "" {
		fmt.Printf("Intent: %s\n", eval.Intent)
	}

	fmt.Println("\nBreakdown:")
	for _, c := range eval.Breakdown {
		fmt.Printf("  %-24s %+4d  %s\n", c.Key, c.Value, c.Detail)
	}

	fmt.Println("\nStat deltas on accept:")
	for _, stat := range []string{"coins", "reputation", "brand_trust", "influence", "stress"} {
		if d, ok := eval.StatDeltas[stat]; ok && d != 0 {
			fmt.Printf("  %-12s %+d\n", stat, d)
		}
	}

	fmt.Printf("\n%s\n", eval.NarrativeLines.Short)

	for _, w := range eval.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w.Message)
	}
}
