package formula

import (
	"fmt"
	"math"
	"strings"
)

// Evaluate computes the episode score and tier from character stats, event
// attributes, style-match scores, narrative intent, and bonuses. It is
// pure, deterministic, and total: any well-typed input produces a result,
// with missing fields scored at their neutral defaults.
func Evaluate(state Stats, event Event, style Style, intent string, bonuses Bonuses) Result {
	score := 50
	var breakdown []Contribution

	// Reputation contribution: 0-15 (rep × 1.5, capped).
	repContrib := clamp(int(math.Round(float64(state.Reputation)*1.5)), 0, 15)
	score += repContrib
	breakdown = append(breakdown, Contribution{
		Key:    "reputation_contribution",
		Value:  repContrib,
		Max:    15,
		Detail: fmt.Sprintf("Reputation %d × 1.5", state.Reputation),
	})

	// Stress penalty: 0-20.
	stressPenalty := clamp(state.Stress, 0, 10) * 2
	score -= stressPenalty
	breakdown = append(breakdown, Contribution{
		Key:    "stress_penalty",
		Value:  -stressPenalty,
		Max:    -20,
		Detail: fmt.Sprintf("Stress %d × 2", state.Stress),
	})

	// Outfit match: 0-25. No outfit assigned means 0, not a free bonus.
	outfitMatch := 0
	outfitDetail := "No outfit assigned (0 points)"
	if style.OutfitMatch != nil {
		outfitMatch = clamp(*style.OutfitMatch, 0, 25)
		outfitDetail = "From wardrobe tags"
	}
	score += outfitMatch
	breakdown = append(breakdown, Contribution{
		Key:    "outfit_match",
		Value:  outfitMatch,
		Max:    25,
		Detail: outfitDetail,
	})

	// Accessories match: 0-15. Same rule: nothing assigned scores 0 here.
	accessoryMatch := 0
	accessoryDetail := "No accessories assigned (0 points)"
	if style.AccessoryMatch != nil {
		accessoryMatch = clamp(*style.AccessoryMatch, 0, 15)
		accessoryDetail = "From wardrobe tags"
	}
	score += accessoryMatch
	breakdown = append(breakdown, Contribution{
		Key:    "accessory_match",
		Value:  accessoryMatch,
		Max:    15,
		Detail: accessoryDetail,
	})

	// Deadline penalty: 0-15, supplied or derived from the event.
	deadlinePenalty := 0
	if style.DeadlinePenalty != nil && *style.DeadlinePenalty != 0 {
		deadlinePenalty = *style.DeadlinePenalty
	} else {
		deadlinePenalty = DeadlinePenalty(event)
	}
	deadlinePenalty = clamp(deadlinePenalty, 0, 15)
	score -= deadlinePenalty
	deadline := event.Deadline
	if deadline == "" {
		deadline = "none"
	}
	breakdown = append(breakdown, Contribution{
		Key:    "deadline_penalty",
		Value:  -deadlinePenalty,
		Max:    -15,
		Detail: "Deadline: " + deadline,
	})

	// Bonuses: 0-10.
	totalBoost := clamp(bonuses.TotalBoost, 0, 10)
	score += totalBoost
	boostDetail := "No bonuses"
	if totalBoost > 0 {
		boostDetail = "Active boosts applied"
	}
	breakdown = append(breakdown, Contribution{
		Key:    "bonuses",
		Value:  totalBoost,
		Max:    10,
		Detail: boostDetail,
	})

	// Intent nudge: a failure-comeback setup raises the difficulty.
	if intent == IntentFailureComeback {
		score -= 6
		breakdown = append(breakdown, Contribution{
			Key:    "intent_nudge",
			Value:  -6,
			Max:    -6,
			Detail: "Failure setup: difficulty increased",
		})
	}

	score = clamp(score, 0, 100)
	tier := TierFromScore(score)

	return Result{
		Score:          score,
		TierComputed:   tier,
		TierFinal:      tier,
		Breakdown:      breakdown,
		FormulaVersion: Version,
	}
}

// DeadlinePenalty derives the deadline pressure penalty from an event.
// Categorical deadlines map to fixed penalties; a minutes-to-deadline
// value maps on a step function.
func DeadlinePenalty(event Event) int {
	switch strings.ToLower(event.Deadline) {
	case "high", "tonight", "urgent":
		return 12
	case "medium", "tomorrow":
		return 6
	case "low":
		return 3
	case "":
		return 0
	}

	if event.DeadlineMinutes > 0 {
		switch {
		case event.DeadlineMinutes <= 30:
			return 15
		case event.DeadlineMinutes <= 60:
			return 12
		case event.DeadlineMinutes <= 120:
			return 8
		case event.DeadlineMinutes <= 360:
			return 4
		default:
			return 2
		}
	}

	return 0
}
