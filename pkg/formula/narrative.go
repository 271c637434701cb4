package formula

import "fmt"

// NarrativeLines are the host's result lines for a tier, in three
// registers the episode editor can pick from.
type NarrativeLines struct {
	Short    string `json:"short"`
	Dramatic string `json:"dramatic"`
	Comedic  string `json:"comedic"`
}

// GenerateNarrative produces the narrative result lines for a final tier
// and score. Unknown tiers read as MID.
func GenerateNarrative(tierFinal Tier, score int) NarrativeLines {
	switch tierFinal {
	case TierSlay:
		return NarrativeLines{
			Short:    fmt.Sprintf("Besties, she didn't just show up — she owned the room. Score: %d.", score),
			Dramatic: fmt.Sprintf("This is what it looks like when preparation meets prestige. %d points. Slay.", score),
			Comedic:  fmt.Sprintf("The house is talking. They're all talking. %d. Crown earned.", score),
		}
	case TierPass:
		return NarrativeLines{
			Short:    fmt.Sprintf("Solid work, bestie. She made an impression. Score: %d.", score),
			Dramatic: fmt.Sprintf("Not perfect, but she held her own. %d points. Respect earned.", score),
			Comedic:  fmt.Sprintf("The look landed. The room noticed. %d. A good day.", score),
		}
	case TierFail:
		return NarrativeLines{
			Short:    fmt.Sprintf("Besties... this is what prestige costs. Score: %d. They noticed.", score),
			Dramatic: fmt.Sprintf("The room went quiet. Not the good kind. %d. Recovery needed.", score),
			Comedic:  fmt.Sprintf("She tried. But trying isn't enough at this level. %d.", score),
		}
	default:
		return NarrativeLines{
			Short:    fmt.Sprintf("It was... fine. Not embarrassing, not memorable. Score: %d.", score),
			Dramatic: fmt.Sprintf("She showed up. The room was polite. %d. Room to grow.", score),
			Comedic:  fmt.Sprintf("Close, bestie. But 'almost' doesn't get invites back. %d.", score),
		}
	}
}
