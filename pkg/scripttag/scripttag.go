// Package scripttag parses the inline structured tags embedded in episode
// scripts: the [EVENT: key="value" ...] tag describing the in-narrative
// event, and the [EPISODE_INTENT: "..."] tag carrying the narrative
// intent.
package scripttag

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/styleverse/progression/pkg/formula"
)

var (
	eventTagRe  = regexp.MustCompile(`(?i)\[EVENT:\s*(.+?)\]`)
	pairRe      = regexp.MustCompile(`(\w+)=(?:"([^"]+)"|(\S+))`)
	intentTagRe = regexp.MustCompile(`(?i)\[EPISODE_INTENT:\s*"?([^"\]]+)"?\]`)
)

// ParseEvent extracts the first [EVENT:] tag from a script. The second
// return value is false when no tag is present. Numeric attribute values
// are rounded to the nearest integer; unknown keys are ignored.
func ParseEvent(script string) (formula.Event, bool) {
	m := eventTagRe.FindStringSubmatch(script)
	if m == nil {
		return formula.Event{}, false
	}

	var event formula.Event
	for _, pair := range pairRe.FindAllStringSubmatch(m[1], -1) {
		key := strings.ToLower(pair[1])
		val := pair[2]
		if val == "" {
			val = pair[3]
		}
		switch key {
		case "name":
			event.Name = val
		case "prestige":
			event.Prestige = parseInt(val)
		case "cost":
			event.Cost = parseInt(val)
		case "strictness":
			event.Strictness = parseInt(val)
		case "deadline":
			event.Deadline = val
		case "deadline_minutes":
			event.DeadlineMinutes = parseInt(val)
		case "dress_code":
			event.DressCode = val
		}
	}

	return event, true
}

// ParseIntent extracts the [EPISODE_INTENT:] tag value, or "" when absent.
func ParseIntent(script string) string {
	m := intentTagRe.FindStringSubmatch(script)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func parseInt(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f >= 0 {
			return int(f + 0.5)
		}
		return int(f - 0.5)
	}
	return 0
}
