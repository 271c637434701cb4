package scripttag_test

import (
	"testing"

	"github.com/styleverse/progression/pkg/scripttag"
)

func TestParseEvent(t *testing.T) {
	script := `LALA: Besties, big news.
[EVENT: name="Gala Night" prestige=7 cost=150 strictness=6 deadline="high" dress_code="black tie elegant"]
LALA: We have work to do.`

	event, ok := scripttag.ParseEvent(script)
	if !ok {
		t.Fatal("expected an event tag")
	}
	if event.Name != "Gala Night" {
		t.Errorf("name = %q, want Gala Night", event.Name)
	}
	if event.Prestige != 7 || event.Cost != 150 || event.Strictness != 6 {
		t.Errorf("numeric attrs = %d/%d/%d, want 7/150/6", event.Prestige, event.Cost, event.Strictness)
	}
	if event.Deadline != "high" {
		t.Errorf("deadline = %q, want high", event.Deadline)
	}
	if event.DressCode != "black tie elegant" {
		t.Errorf("dress_code = %q, want black tie elegant", event.DressCode)
	}
}

func TestParseEventUnquotedAndFloatValues(t *testing.T) {
	event, ok := scripttag.ParseEvent(`[EVENT: prestige=7.6 cost=99 deadline=low]`)
	if !ok {
		t.Fatal("expected an event tag")
	}
	if event.Prestige != 8 {
		t.Errorf("prestige = %d, want 8 (rounded)", event.Prestige)
	}
	if event.Cost != 99 {
		t.Errorf("cost = %d, want 99", event.Cost)
	}
	if event.Deadline != "low" {
		t.Errorf("deadline = %q, want low", event.Deadline)
	}
}

func TestParseEventMissing(t *testing.T) {
	if _, ok := scripttag.ParseEvent("just dialogue, no tags"); ok {
		t.Error("expected no event")
	}
	if _, ok := scripttag.ParseEvent(""); ok {
		t.Error("expected no event for empty script")
	}
}

func TestParseIntent(t *testing.T) {
	tests := []struct {
		script string
		want   string
	}{
		{`[EPISODE_INTENT: "failure_comeback_setup"]`, "failure_comeback_setup"},
		{`[EPISODE_INTENT: glow_up]`, "glow_up"},
		{`no intent here`, ""},
	}
	for _, tt := range tests {
		if got := scripttag.ParseIntent(tt.script); got != tt.want {
			t.Errorf("ParseIntent(%q) = %q, want %q", tt.script, got, tt.want)
		}
	}
}
