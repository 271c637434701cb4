package formula

import "fmt"

// Override validation errors.
var (
	ErrUnknownTier = fmt.Errorf("invalid tier value")
	ErrSameTier    = fmt.Errorf("no change requested")
)

// ValidateOverride checks the pure tier-change rule: both tiers must exist
// and must differ. Any directional change is structurally valid, including
// deliberate downgrades to FAIL. The business constraint of at most one
// tier-changing override per evaluation is enforced by the workflow, not
// here, so the rule and the policy can evolve independently.
func ValidateOverride(from, to Tier) error {
	fromIdx := TierIndex(from)
	toIdx := TierIndex(to)

	if fromIdx == -1 || toIdx == -1 {
		return ErrUnknownTier
	}
	if fromIdx == toIdx {
		return ErrSameTier
	}
	return nil
}
