package formula

// tierDeltas is the per-tier stat-delta table applied on acceptance.
var tierDeltas = map[Tier]Deltas{
	TierSlay: {"reputation": 2, "brand_trust": 1, "influence": 1, "stress": -1},
	TierPass: {"reputation": 1, "brand_trust": 1, "influence": 1, "stress": 0},
	TierMid:  {"reputation": 0, "brand_trust": 0, "influence": 0, "stress": 1},
	TierFail: {"reputation": -2, "brand_trust": -1, "influence": -1, "stress": 2},
}

// TierDeltas returns the stat-delta table entry for a tier. Unknown tiers
// yield an empty map.
func TierDeltas(tier Tier) Deltas {
	if d, ok := tierDeltas[tier]; ok {
		return d.Clone()
	}
	return Deltas{}
}

// ComputeDeltas derives the per-stat deltas an acceptance will apply: the
// event's coin cost (always charged, regardless of tier), the tier's stat
// table entry, and every override's costs and impact summed on top.
func ComputeDeltas(tierFinal Tier, event Event, overrides []Override) Deltas {
	deltas := Deltas{"coins": -event.Cost}
	deltas.Add(TierDeltas(tierFinal))

	for _, o := range overrides {
		deltas.Add(o.Costs)
		deltas.Add(o.Impact)
	}

	return deltas
}

// ApplyDeltas folds deltas into a character state. Coins add freely above
// and floor at CoinFloor; the capped stats clamp to [0,10] after
// diminishing returns. Positive gains shrink as a stat approaches its cap:
// at 7+ the delta caps at +1, at 4+ it is halved rounding up. Stress is
// exempt in both directions: penalties always land at full force.
func ApplyDeltas(state Stats, deltas Deltas) Stats {
	next := state

	next.Coins += deltas["coins"]
	if next.Coins < CoinFloor {
		next.Coins = CoinFloor
	}

	apply := func(current int, key string, diminish bool) int {
		delta, ok := deltas[key]
		if !ok {
			return current
		}
		if delta > 0 && diminish {
			switch {
			case current >= 7:
				if delta > 1 {
					delta = 1
				}
			case current >= 4:
				delta = (delta + 1) / 2
			}
		}
		return clamp(current+delta, 0, 10)
	}

	next.Reputation = apply(next.Reputation, "reputation", true)
	next.BrandTrust = apply(next.BrandTrust, "brand_trust", true)
	next.Influence = apply(next.Influence, "influence", true)
	next.Stress = apply(next.Stress, "stress", false)

	return next
}
