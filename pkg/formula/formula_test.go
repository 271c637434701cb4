package formula_test

import (
	"testing"

	"github.com/styleverse/progression/pkg/formula"
)

func intPtr(v int) *int { return &v }

func TestTierFromScoreBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  formula.Tier
	}{
		{100, formula.TierSlay},
		{85, formula.TierSlay},
		{84, formula.TierPass},
		{65, formula.TierPass},
		{64, formula.TierMid},
		{45, formula.TierMid},
		{44, formula.TierFail},
		{0, formula.TierFail},
	}
	for _, tt := range tests {
		if got := formula.TierFromScore(tt.score); got != tt.want {
			t.Errorf("TierFromScore(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestEvaluateScoreInRange(t *testing.T) {
	// Extreme inputs in both directions must stay inside [0,100].
	low := formula.Evaluate(
		formula.Stats{Reputation: 0, Stress: 10},
		formula.Event{Deadline: "urgent"},
		formula.Style{},
		formula.IntentFailureComeback,
		formula.Bonuses{},
	)
	if low.Score < 0 || low.Score > 100 {
		t.Errorf("low score out of range: %d", low.Score)
	}

	high := formula.Evaluate(
		formula.Stats{Reputation: 10, Stress: 0},
		formula.Event{},
		formula.Style{OutfitMatch: intPtr(25), AccessoryMatch: intPtr(15)},
		"",
		formula.Bonuses{TotalBoost: 10},
	)
	if high.Score < 0 || high.Score > 100 {
		t.Errorf("high score out of range: %d", high.Score)
	}
	if high.TierComputed != formula.TierSlay {
		t.Errorf("expected slay for maxed inputs, got %s (score %d)", high.TierComputed, high.Score)
	}
}

// The reference scenario: state {coins:500, rep:5, stress:2}, event
// {cost:150, prestige:7, strictness:6, deadline:high}, no outfit assigned.
// 50 + 8(rep) - 4(stress) + 0(outfit) + 8(accessory neutral) - 12(deadline) = 50.
func TestEvaluateReferenceScenario(t *testing.T) {
	state := formula.Stats{Coins: 500, Reputation: 5, BrandTrust: 1, Influence: 1, Stress: 2}
	event := formula.Event{Cost: 150, Prestige: 7, Strictness: 6, Deadline: "high"}
	style := formula.Style{
		OutfitMatch:    nil, // no outfit: scores 0
		AccessoryMatch: intPtr(formula.AccessoryMatch(event, nil)), // neutral 8
	}

	result := formula.Evaluate(state, event, style, "", formula.Bonuses{})

	if result.Score != 50 {
		t.Errorf("score = %d, want 50", result.Score)
	}
	if result.TierComputed != formula.TierMid {
		t.Errorf("tier = %s, want mid", result.TierComputed)
	}
	if result.FormulaVersion != formula.Version {
		t.Errorf("formula version = %s, want %s", result.FormulaVersion, formula.Version)
	}

	byKey := map[string]formula.Contribution{}
	for _, c := range result.Breakdown {
		byKey[c.Key] = c
	}
	if c := byKey["reputation_contribution"]; c.Value != 8 {
		t.Errorf("reputation contribution = %d, want 8", c.Value)
	}
	if c := byKey["stress_penalty"]; c.Value != -4 {
		t.Errorf("stress penalty = %d, want -4", c.Value)
	}
	if c := byKey["outfit_match"]; c.Value != 0 {
		t.Errorf("outfit match = %d, want 0", c.Value)
	}
	if c := byKey["deadline_penalty"]; c.Value != -12 {
		t.Errorf("deadline penalty = %d, want -12", c.Value)
	}
}

func TestEvaluateMissingOutfitIsZeroNotNeutral(t *testing.T) {
	state := formula.DefaultStats()
	event := formula.Event{}

	missing := formula.Evaluate(state, event, formula.Style{}, "", formula.Bonuses{})
	assigned := formula.Evaluate(state, event, formula.Style{OutfitMatch: intPtr(15)}, "", formula.Bonuses{})

	if assigned.Score-missing.Score != 15 {
		t.Errorf("missing outfit should cost the full contribution: missing=%d assigned=%d",
			missing.Score, assigned.Score)
	}

	for _, c := range missing.Breakdown {
		if c.Key == "outfit_match" && c.Value != 0 {
			t.Errorf("missing outfit contribution = %d, want 0", c.Value)
		}
		if c.Key == "accessory_match" && c.Value != 0 {
			t.Errorf("missing accessory contribution = %d, want 0", c.Value)
		}
	}
}

func TestEvaluateIntentNudge(t *testing.T) {
	state := formula.DefaultStats()
	plain := formula.Evaluate(state, formula.Event{}, formula.Style{}, "", formula.Bonuses{})
	nudged := formula.Evaluate(state, formula.Event{}, formula.Style{}, formula.IntentFailureComeback, formula.Bonuses{})

	if plain.Score-nudged.Score != 6 {
		t.Errorf("intent nudge should cost 6 points: plain=%d nudged=%d", plain.Score, nudged.Score)
	}

	found := false
	for _, c := range nudged.Breakdown {
		if c.Key == "intent_nudge" {
			found = true
			if c.Value != -6 {
				t.Errorf("intent nudge value = %d, want -6", c.Value)
			}
		}
	}
	if !found {
		t.Error("expected a distinct intent_nudge breakdown line")
	}
}

func TestDeadlinePenalty(t *testing.T) {
	tests := []struct {
		name  string
		event formula.Event
		want  int
	}{
		{"urgent", formula.Event{Deadline: "urgent"}, 12},
		{"tonight", formula.Event{Deadline: "tonight"}, 12},
		{"high", formula.Event{Deadline: "high"}, 12},
		{"medium", formula.Event{Deadline: "medium"}, 6},
		{"tomorrow", formula.Event{Deadline: "tomorrow"}, 6},
		{"low", formula.Event{Deadline: "low"}, 3},
		{"none", formula.Event{}, 0},
		{"minutes 30", formula.Event{Deadline: "custom", DeadlineMinutes: 30}, 15},
		{"minutes 60", formula.Event{Deadline: "custom", DeadlineMinutes: 60}, 12},
		{"minutes 120", formula.Event{Deadline: "custom", DeadlineMinutes: 120}, 8},
		{"minutes 360", formula.Event{Deadline: "custom", DeadlineMinutes: 360}, 4},
		{"minutes 1000", formula.Event{Deadline: "custom", DeadlineMinutes: 1000}, 2},
		{"no deadline with minutes", formula.Event{DeadlineMinutes: 30}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formula.DeadlinePenalty(tt.event); got != tt.want {
				t.Errorf("DeadlinePenalty = %d, want %d", got, tt.want)
			}
		})
	}
}
