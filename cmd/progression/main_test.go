package main

import (
	"testing"
)

func TestEvaluateCmdFlags(t *testing.T) {
	cmd := newEvaluateCmd()

	// Test default values
	f := cmd.Flags()
	scope, _ := f.GetString("scope")
	if scope != "season" {
		t.Errorf("default scope = %q, want season", scope)
	}
	outputFmt, _ := f.GetString("output")
	if outputFmt != "text" {
		t.Errorf("default output = %q, want text", outputFmt)
	}

	// Test that flags exist
	for _, flag := range []string{"db", "character", "scope", "skip-intent", "boost", "output"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestOverrideCmdFlags(t *testing.T) {
	cmd := newOverrideCmd()
	f := cmd.Flags()

	for _, flag := range []string{"db", "tier", "reason", "note", "output"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestAcceptCmdFlags(t *testing.T) {
	cmd := newAcceptCmd()
	f := cmd.Flags()

	allow, _ := f.GetBool("allow-out-of-order")
	if allow {
		t.Error("allow-out-of-order should default to false")
	}

	for _, flag := range []string{"db", "allow-out-of-order", "output"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestEpisodePutCmdFlags(t *testing.T) {
	cmd := newEpisodePutCmd()
	f := cmd.Flags()

	show, _ := f.GetString("show")
	if show != "sandbox" {
		t.Errorf("default show = %q, want sandbox", show)
	}

	for _, flag := range []string{"db", "show", "season", "number", "title", "script", "wardrobe"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}
