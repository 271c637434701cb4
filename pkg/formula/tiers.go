package formula

// Tier is the discrete outcome derived from a numeric score.
type Tier string

const (
	TierFail Tier = "fail"
	TierMid  Tier = "mid"
	TierPass Tier = "pass"
	TierSlay Tier = "slay"
)

// TierOrder lists tiers from worst to best. Override bump validation and
// the read-only catalog both rely on this ordering.
var TierOrder = []Tier{TierFail, TierMid, TierPass, TierSlay}

// TierInfo describes one tier for client UIs: score floor plus display hints.
type TierInfo struct {
	Tier  Tier   `json:"tier"`
	Min   int    `json:"min"`
	Emoji string `json:"emoji"`
	Color string `json:"color"`
}

// TierThresholds is the tier threshold table, best tier first. The highest
// qualifying tier wins; thresholds are non-overlapping by construction.
var TierThresholds = []TierInfo{
	{Tier: TierSlay, Min: 85, Emoji: "👑", Color: "#FFD700"},
	{Tier: TierPass, Min: 65, Emoji: "✨", Color: "#22c55e"},
	{Tier: TierMid, Min: 45, Emoji: "😐", Color: "#eab308"},
	{Tier: TierFail, Min: 0, Emoji: "💔", Color: "#dc2626"},
}

// TierFromScore maps a 0-100 score to its tier.
func TierFromScore(score int) Tier {
	for _, ti := range TierThresholds {
		if score >= ti.Min {
			return ti.Tier
		}
	}
	return TierFail
}

// TierIndex returns the position of t in TierOrder, or -1 for an
// unrecognized tier name.
func TierIndex(t Tier) int {
	for i, tier := range TierOrder {
		if tier == t {
			return i
		}
	}
	return -1
}

// Info returns the display info for a tier. Unknown tiers map to FAIL.
func Info(t Tier) TierInfo {
	for _, ti := range TierThresholds {
		if ti.Tier == t {
			return ti
		}
	}
	return TierThresholds[len(TierThresholds)-1]
}
