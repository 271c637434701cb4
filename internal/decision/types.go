// Package decision records every decision point surfaced to a user (what
// was suggested, what was chosen, with what confidence) independent of
// whether it changed persistent state. Recording is best-effort: writes
// never block or fail the caller's primary operation.
package decision

import "time"

// Decision types emitted by the evaluation workflow.
const (
	TypeEvaluationComputed = "evaluation_computed"
	TypeTierOverride       = "tier_override"
	TypeStyleAdjust        = "style_adjust"
	TypeEvaluationAccepted = "evaluation_accepted"
	TypeEvaluationRerun    = "evaluation_rerun"
	TypeSuggestionAccepted = "suggestion_accepted"
	TypeSuggestionRejected = "suggestion_rejected"
)

// Types lists the known decision kinds, exposed read-only for clients.
var Types = []string{
	TypeEvaluationComputed,
	TypeTierOverride,
	TypeStyleAdjust,
	TypeEvaluationAccepted,
	TypeEvaluationRerun,
	TypeSuggestionAccepted,
	TypeSuggestionRejected,
}

// Entry is one decision-log record.
type Entry struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	EpisodeID    string         `json:"episode_id,omitempty"`
	ShowID       string         `json:"show_id,omitempty"`
	UserID       string         `json:"user_id,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
	Decision     map[string]any `json:"decision,omitempty"`
	Alternatives map[string]any `json:"alternatives,omitempty"`
	Confidence   *float64       `json:"confidence,omitempty"`
	Source       string         `json:"source,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
