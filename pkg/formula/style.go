package formula

import (
	"math"
	"strings"
)

// WardrobeTags are the styling tags attached to a wardrobe item. A zero
// Formality means untagged and is treated as the midpoint 5.
type WardrobeTags struct {
	Style      []string `json:"style,omitempty"`
	Formality  int      `json:"formality,omitempty"`
	ColorStory []string `json:"color_story,omitempty"`
	Vibe       []string `json:"vibe,omitempty"`
}

// WardrobeItem is one assigned wardrobe piece.
type WardrobeItem struct {
	Name     string       `json:"name,omitempty"`
	Category string       `json:"category,omitempty"`
	Tags     WardrobeTags `json:"tags"`
}

// HasTags reports whether the item carries any styling tag data.
func (w WardrobeItem) HasTags() bool {
	return len(w.Tags.Style) > 0 || len(w.Tags.Vibe) > 0 ||
		len(w.Tags.ColorStory) > 0 || w.Tags.Formality != 0
}

// OutfitMatch scores an outfit against the event's dress code, prestige,
// and strictness, in [0,25]. An item without tag data scores the neutral
// 15; the absence of any outfit at all is the caller's responsibility to
// report as 0 via a nil Style.OutfitMatch.
func OutfitMatch(event Event, outfit WardrobeItem) int {
	if !outfit.HasTags() {
		return 15
	}

	keywords := extractKeywords(event.DressCode)
	match := 0.0

	// Style overlap: 0-10.
	styleOverlap := overlap(keywords, outfit.Tags.Style)
	match += math.Min(float64(styleOverlap)*5, 10)

	// Formality alignment: 0-10.
	formality := outfit.Tags.Formality
	if formality == 0 {
		formality = 5
	}
	prestige := event.Prestige
	if prestige == 0 {
		prestige = 5
	}
	diff := formality - prestige
	if diff < 0 {
		diff = -diff
	}
	match += math.Max(float64(10-diff*2), 0)

	// Vibe overlap: 0-5.
	vibeOverlap := overlap(keywords, outfit.Tags.Vibe)
	match += math.Min(float64(vibeOverlap)*2.5, 5)

	// A strict event punishes underdressing hard.
	strictness := event.Strictness
	if strictness == 0 {
		strictness = 5
	}
	if strictness >= 7 && formality < prestige-2 {
		match -= 5
	}

	return clamp(int(math.Round(match)), 0, 25)
}

// AccessoryMatch scores the assigned accessories against the event's dress
// code, in [0,15]. An empty list scores the neutral 8, deliberately
// asymmetric with the no-outfit rule.
func AccessoryMatch(event Event, items []WardrobeItem) int {
	if len(items) == 0 {
		return 8
	}

	keywords := extractKeywords(event.DressCode)
	total := 0
	for _, item := range items {
		tags := append(append([]string{}, item.Tags.Style...), item.Tags.Vibe...)
		total += overlap(keywords, tags)
	}

	return clamp(int(math.Min(float64(total)*3, 15)), 0, 15)
}

// extractKeywords lowercases, strips non-letters, and keeps words longer
// than two characters.
func extractKeywords(text string) []string {
	if text == "" {
		return nil
	}
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || r == ' ' || r == '\t' || r == '\n' {
			b.WriteRune(r)
		}
	}
	var words []string
	for _, w := range strings.Fields(b.String()) {
		if len(w) > 2 {
			words = append(words, w)
		}
	}
	return words
}

// overlap counts how many entries of a appear in b, case-insensitively.
func overlap(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(b))
	for _, s := range b {
		set[strings.ToLower(s)] = true
	}
	n := 0
	for _, s := range a {
		if set[strings.ToLower(s)] {
			n++
		}
	}
	return n
}
