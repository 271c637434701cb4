package formula

// Reason is one entry of the override reason-code catalog. MaxTierBump is
// advisory: it is surfaced to clients building override menus but the
// validator does not enforce it (the one-bump-only rule was relaxed in
// favor of creator control).
type Reason struct {
	Code        string `json:"reason_code"`
	Label       string `json:"label"`
	Category    string `json:"category"`
	MaxTierBump int    `json:"max_tier_bump"`
}

// Reasons is the fixed override reason catalog, grouped by category.
var Reasons = []Reason{
	// Community / Dream Fund
	{Code: "DREAM_FUND_BOOST", Label: "Dream Fund Boost", Category: "community", MaxTierBump: 1},
	{Code: "SUPPORT_PACK_SURGE", Label: "Support Pack Surge", Category: "community", MaxTierBump: 1},
	{Code: "BANK_METER_REWARD", Label: "Bank Meter Reward", Category: "community", MaxTierBump: 1},

	// Lala actions
	{Code: "EMERGENCY_GLAM_PACK", Label: "Emergency Glam Pack", Category: "lala", MaxTierBump: 1},
	{Code: "LAST_MINUTE_TAILOR", Label: "Last Minute Tailor", Category: "lala", MaxTierBump: 1},
	{Code: "CONFIDENCE_RESET", Label: "Confidence Reset", Category: "lala", MaxTierBump: 1},
	{Code: "CREATOR_MODE_LOCKIN", Label: "Creator Mode Lock-In", Category: "lala", MaxTierBump: 1},

	// House / brand
	{Code: "HOUSE_FAVOR", Label: "House Favor", Category: "brand", MaxTierBump: 1},
	{Code: "BRAND_SPONSOR_SAVE", Label: "Brand Sponsor Save", Category: "brand", MaxTierBump: 1},

	// Creator control
	{Code: "CREATOR_ADJUSTMENT_STYLE_MATCH", Label: "Style Match Adjustment", Category: "creator", MaxTierBump: 0},
	{Code: "CREATOR_STORY_OVERRIDE", Label: "Story Override", Category: "creator", MaxTierBump: 1},
	{Code: "INTENTIONAL_FAILURE", Label: "Intentional Failure", Category: "creator", MaxTierBump: 0},
}

// ReasonStyleAdjust is the default reason for style adjustments recorded
// without an explicit code.
const ReasonStyleAdjust = "CREATOR_ADJUSTMENT_STYLE_MATCH"

// LookupReason finds a catalog entry by code.
func LookupReason(code string) (Reason, bool) {
	for _, r := range Reasons {
		if r.Code == code {
			return r, true
		}
	}
	return Reason{}, false
}
