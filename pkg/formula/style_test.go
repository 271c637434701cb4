package formula_test

import (
	"testing"

	"github.com/styleverse/progression/pkg/formula"
)

func TestOutfitMatchUntaggedItemIsNeutral(t *testing.T) {
	event := formula.Event{DressCode: "black tie gala", Prestige: 8}
	got := formula.OutfitMatch(event, formula.WardrobeItem{Name: "mystery dress"})
	if got != 15 {
		t.Errorf("untagged outfit = %d, want neutral 15", got)
	}
}

func TestOutfitMatchKeywordAndFormalityAlignment(t *testing.T) {
	event := formula.Event{
		DressCode:  "elegant evening gown",
		Prestige:   7,
		Strictness: 5,
	}
	outfit := formula.WardrobeItem{
		Tags: formula.WardrobeTags{
			Style:     []string{"elegant", "evening"},
			Formality: 7,
			Vibe:      []string{"gown"},
		},
	}

	// Style overlap 2×5 capped at 10, formality diff 0 → +10,
	// vibe overlap 1×2.5 → +2.5, rounds to 23 after clamping.
	got := formula.OutfitMatch(event, outfit)
	if got != 23 {
		t.Errorf("OutfitMatch = %d, want 23", got)
	}
}

func TestOutfitMatchStrictnessPenalty(t *testing.T) {
	event := formula.Event{DressCode: "formal dinner", Prestige: 9, Strictness: 8}

	underdressed := formula.WardrobeItem{
		Tags: formula.WardrobeTags{Style: []string{"formal"}, Formality: 4},
	}
	relaxedEvent := event
	relaxedEvent.Strictness = 5

	strict := formula.OutfitMatch(event, underdressed)
	relaxed := formula.OutfitMatch(relaxedEvent, underdressed)

	if relaxed-strict != 5 {
		t.Errorf("strictness penalty should cost 5: strict=%d relaxed=%d", strict, relaxed)
	}
}

func TestOutfitMatchBounds(t *testing.T) {
	event := formula.Event{DressCode: "casual brunch vibes flowy pastel", Prestige: 5, Strictness: 9}
	items := []formula.WardrobeItem{
		{Tags: formula.WardrobeTags{Style: []string{"casual", "brunch", "vibes", "flowy", "pastel"}, Formality: 5, Vibe: []string{"casual", "brunch", "vibes"}}},
		{Tags: formula.WardrobeTags{Formality: 1}},
	}
	for _, item := range items {
		got := formula.OutfitMatch(event, item)
		if got < 0 || got > 25 {
			t.Errorf("OutfitMatch out of range: %d", got)
		}
	}
}

func TestAccessoryMatchEmptyListIsNeutralEight(t *testing.T) {
	// Deliberate asymmetry with the no-outfit rule: an empty accessory
	// list scores 8, not 0.
	got := formula.AccessoryMatch(formula.Event{DressCode: "red carpet"}, nil)
	if got != 8 {
		t.Errorf("empty accessories = %d, want neutral 8", got)
	}
}

func TestAccessoryMatchOverlapCapped(t *testing.T) {
	event := formula.Event{DressCode: "golden hour garden party"}
	items := []formula.WardrobeItem{
		{Tags: formula.WardrobeTags{Style: []string{"golden", "garden"}}},
		{Tags: formula.WardrobeTags{Vibe: []string{"party", "golden", "hour"}}},
		{Tags: formula.WardrobeTags{Style: []string{"garden"}, Vibe: []string{"party"}}},
	}

	// Seven overlaps × 3 = 21, capped at 15.
	got := formula.AccessoryMatch(event, items)
	if got != 15 {
		t.Errorf("AccessoryMatch = %d, want capped 15", got)
	}

	one := formula.AccessoryMatch(event, items[:1])
	if one != 6 {
		t.Errorf("AccessoryMatch single item = %d, want 6", one)
	}
}

func TestAccessoryMatchNoOverlapScoresZero(t *testing.T) {
	event := formula.Event{DressCode: "minimalist monochrome"}
	items := []formula.WardrobeItem{
		{Tags: formula.WardrobeTags{Style: []string{"neon", "maximal"}}},
	}
	if got := formula.AccessoryMatch(event, items); got != 0 {
		t.Errorf("AccessoryMatch = %d, want 0", got)
	}
}
