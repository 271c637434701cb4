// Package formula implements the character progression evaluation formula:
// a deterministic 0-100 scoring function over character stats, event
// attributes, and style-match scores, plus the pure helpers around it
// (style matchers, delta calculation, state application, override
// validation, narrative generation). Nothing in this package performs I/O.
package formula

import "time"

// Version tags every evaluation so future tuning does not retroactively
// reinterpret historical ledger entries.
const Version = "v1.1"

// Stats is the persistent character economy. Coins are unbounded above and
// floored at CoinFloor; the remaining stats are clamped to [0,10].
type Stats struct {
	Coins      int `json:"coins"`
	Reputation int `json:"reputation"`
	BrandTrust int `json:"brand_trust"`
	Influence  int `json:"influence"`
	Stress     int `json:"stress"`
}

// CoinFloor is the deepest debt a character can carry.
const CoinFloor = -9999

// DefaultStats seeds a character state created lazily on first read.
func DefaultStats() Stats {
	return Stats{Coins: 500, Reputation: 1, BrandTrust: 1, Influence: 1, Stress: 0}
}

// Event is a structured description of an in-narrative happening, parsed
// from the episode script by the caller.
type Event struct {
	Name            string `json:"name,omitempty"`
	Prestige        int    `json:"prestige,omitempty"`
	Cost            int    `json:"cost,omitempty"`
	Strictness      int    `json:"strictness,omitempty"`
	Deadline        string `json:"deadline,omitempty"`
	DeadlineMinutes int    `json:"deadline_minutes,omitempty"`
	DressCode       string `json:"dress_code,omitempty"`
}

// Style carries the style-match scores feeding the formula. A nil field
// means "nothing assigned": the formula scores a missing outfit or
// accessory set as 0, never a free midpoint. A nil DeadlinePenalty is
// derived from the event instead.
type Style struct {
	OutfitMatch     *int `json:"outfit_match"`
	AccessoryMatch  *int `json:"accessory_match"`
	DeadlinePenalty *int `json:"deadline_penalty"`
}

// Bonuses are episode-level boosts applied on top of the base formula.
type Bonuses struct {
	TotalBoost int `json:"total_boost"`
}

// IntentFailureComeback is the one narrative intent the formula reacts to:
// a deliberate difficulty bump setting up a comeback arc.
const IntentFailureComeback = "failure_comeback_setup"

// Contribution is one itemized line of the score breakdown: its value, the
// theoretical max for that line, and a human-readable detail, so a result
// is auditable without re-deriving it.
type Contribution struct {
	Key    string `json:"key"`
	Value  int    `json:"value"`
	Max    int    `json:"max"`
	Detail string `json:"detail"`
}

// Result is the output of Evaluate. TierFinal equals TierComputed until a
// tier override is applied one layer up.
type Result struct {
	Score          int            `json:"score"`
	TierComputed   Tier           `json:"tier_computed"`
	TierFinal      Tier           `json:"tier_final"`
	Breakdown      []Contribution `json:"breakdown"`
	FormulaVersion string         `json:"formula_version"`
}

// Deltas maps stat names to signed deltas. Keys are the Stats field names:
// coins, reputation, brand_trust, influence, stress.
type Deltas map[string]int

// Add merges other into d, summing overlapping keys.
func (d Deltas) Add(other Deltas) {
	for k, v := range other {
		d[k] += v
	}
}

// Clone returns an independent copy of d.
func (d Deltas) Clone() Deltas {
	out := make(Deltas, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Override type discriminators.
const (
	OverrideTierChange  = "tier_change"
	OverrideStyleAdjust = "style_adjust"
)

// Override is a manual, audited adjustment recorded on an evaluation.
// Tier changes carry TierFrom/TierTo plus any costs and impact deltas;
// style adjustments carry the replacement match values and are
// display/audit metadata only.
type Override struct {
	Type           string    `json:"type"`
	TierFrom       Tier      `json:"tier_from,omitempty"`
	TierTo         Tier      `json:"tier_to,omitempty"`
	ReasonCode     string    `json:"reason_code"`
	Costs          Deltas    `json:"costs,omitempty"`
	Impact         Deltas    `json:"impact,omitempty"`
	OutfitMatch    *int      `json:"outfit_match,omitempty"`
	AccessoryMatch *int      `json:"accessory_match,omitempty"`
	NarrativeLine  string    `json:"narrative_line,omitempty"`
	AppliedBy      string    `json:"applied_by,omitempty"`
	AppliedAt      time.Time `json:"applied_at"`
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
