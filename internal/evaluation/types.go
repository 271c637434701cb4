// Package evaluation implements the stateful acceptance workflow around
// the progression formula: Evaluate computes and persists a score,
// Override applies bounded manual adjustments, Accept mutates the
// character economy and appends a ledger entry, Reevaluate reopens the
// most recently applied episode. It is the only component that touches
// the persistent character state.
package evaluation

import (
	"context"
	"time"

	"github.com/styleverse/progression/pkg/formula"
)

// Evaluation statuses. Status only advances none → computed → accepted;
// Reevaluate is the one sanctioned way back from accepted to computed.
const (
	StatusNone     = "none"
	StatusComputed = "computed"
	StatusAccepted = "accepted"
)

// Ledger entry sources.
const (
	SourceComputed = "computed"
	SourceOverride = "override"
	SourceReversal = "reversal"
)

// Warning is a non-blocking advisory attached to an evaluation or accept
// result.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuggestedOverride is one entry of the override menu embedded in
// evaluation results for client UIs.
type SuggestedOverride struct {
	ReasonCode  string `json:"reason_code"`
	Label       string `json:"label"`
	Category    string `json:"category"`
	Allowed     bool   `json:"allowed"`
	MaxTierBump int    `json:"max_tier_bump"`
}

// Evaluation is the full evaluation record attached 1:1 to an episode.
// It embeds the formula result and carries everything needed to audit the
// outcome without re-deriving it.
type Evaluation struct {
	formula.Result

	StatDeltas         formula.Deltas         `json:"stat_deltas"`
	NarrativeLines     formula.NarrativeLines `json:"narrative_lines"`
	Overrides          []formula.Override     `json:"overrides,omitempty"`
	StyleScores        map[string]int         `json:"style_scores,omitempty"`
	EventParsed        formula.Event          `json:"event_parsed"`
	Intent             string                 `json:"intent,omitempty"`
	CharacterKey       string                 `json:"character_key"`
	Scope              string                 `json:"scope"`
	SuggestedOverrides []SuggestedOverride    `json:"suggested_overrides,omitempty"`
	Warnings           []Warning              `json:"warnings,omitempty"`
	EvaluatedAt        time.Time              `json:"evaluated_at"`
	AcceptedAt         *time.Time             `json:"accepted_at,omitempty"`
}

// TierChangeCount returns how many tier-changing overrides the evaluation
// carries.
func (e *Evaluation) TierChangeCount() int {
	n := 0
	for _, o := range e.Overrides {
		if o.Type == formula.OverrideTierChange {
			n++
		}
	}
	return n
}

// Episode is the narrative unit the engine evaluates. The engine only
// reads the script and wardrobe assignment and owns the evaluation
// columns; everything else about episodes belongs to the authoring tools.
type Episode struct {
	ID               string                 `json:"id"`
	ShowID           string                 `json:"show_id"`
	SeasonID         *string                `json:"season_id,omitempty"`
	Number           int                    `json:"episode_number"`
	Title            string                 `json:"title,omitempty"`
	Script           string                 `json:"script_content,omitempty"`
	Wardrobe         []formula.WardrobeItem `json:"wardrobe,omitempty"`
	Evaluation       *Evaluation            `json:"evaluation,omitempty"`
	EvaluationStatus string                 `json:"evaluation_status"`
	FormulaVersion   string                 `json:"formula_version,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// CharacterState is the persistent character economy row, keyed by
// (show, season-or-global, character key). Never mutated except through
// an Accept or Reevaluate commit.
type CharacterState struct {
	ID                   string        `json:"id"`
	ShowID               string        `json:"show_id"`
	SeasonID             *string       `json:"season_id,omitempty"`
	CharacterKey         string        `json:"character_key"`
	Stats                formula.Stats `json:"stats"`
	LastAppliedEpisodeID *string       `json:"last_applied_episode_id,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// LedgerEntry is one immutable row of the character-state history. The
// ledger is the source of truth: CharacterState is a materialized fold of
// its entries.
type LedgerEntry struct {
	ID           string        `json:"id"`
	ShowID       string        `json:"show_id"`
	SeasonID     *string       `json:"season_id,omitempty"`
	CharacterKey string        `json:"character_key"`
	EpisodeID    string        `json:"episode_id"`
	Source       string        `json:"source"`
	Deltas       formula.Deltas `json:"deltas"`
	StateAfter   formula.Stats `json:"state_after"`
	Note         string        `json:"note,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// AcceptCommit is the atomic unit an Accept writes: the new character
// stats, the ledger entry, and the frozen evaluation. A store must apply
// all three or none.
type AcceptCommit struct {
	StateID              string
	NewStats             formula.Stats
	LastAppliedEpisodeID string
	Ledger               LedgerEntry
	EpisodeID            string
	Evaluation           *Evaluation
}

// ReversalCommit is the atomic unit a Reevaluate writes: the restored
// character stats, the reversal ledger entry, and the reopened
// evaluation.
type ReversalCommit struct {
	StateID              string
	RestoredStats        formula.Stats
	LastAppliedEpisodeID *string
	Ledger               LedgerEntry
	EpisodeID            string
	Evaluation           *Evaluation
}

// HistoryQuery filters ledger reads.
type HistoryQuery struct {
	ShowID       string
	CharacterKey string
	Since        time.Time
	Until        time.Time
	Limit        int
}

// Store is the persistence surface the workflow runs against. The
// Postgres implementation lives in internal/store; the CLI's local
// sqlite implementation in internal/sandbox.
type Store interface {
	GetOrCreateState(ctx context.Context, showID string, seasonID *string, characterKey string, defaults formula.Stats) (*CharacterState, error)
	GetEpisode(ctx context.Context, id string) (*Episode, error)
	UpsertEpisode(ctx context.Context, ep *Episode) error
	SaveEvaluation(ctx context.Context, episodeID string, eval *Evaluation, status string) error
	CommitAccept(ctx context.Context, commit AcceptCommit) error
	CommitReversal(ctx context.Context, commit ReversalCommit) error
	LedgerForEpisode(ctx context.Context, showID string, seasonID *string, characterKey, episodeID string) (*LedgerEntry, error)
	LedgerBefore(ctx context.Context, showID string, seasonID *string, characterKey string, before time.Time) (*LedgerEntry, error)
	History(ctx context.Context, q HistoryQuery) ([]LedgerEntry, error)
}
