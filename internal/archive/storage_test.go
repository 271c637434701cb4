package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/styleverse/progression/internal/evaluation"
	"github.com/styleverse/progression/pkg/formula"
)

func TestLocalStoragePutGetExport(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)
	ctx := context.Background()

	data := []byte(`{"ledger":[]}`)
	if err := s.PutExport(ctx, "show-1", "export-1", data); err != nil {
		t.Fatalf("PutExport: %v", err)
	}

	got, err := s.GetExport(ctx, "show-1", "export-1")
	if err != nil {
		t.Fatalf("GetExport: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("GetExport = %q, want %q", got, data)
	}

	// Verify file path layout
	expectedPath := filepath.Join(dir, "show-1", "exports", "export-1.json")
	if _, err := os.Stat(expectedPath); err != nil {
		t.Errorf("expected file at %s: %v", expectedPath, err)
	}
}

func TestLocalStorageGetNotFound(t *testing.T) {
	s := NewLocalStorage(t.TempDir())
	if _, err := s.GetExport(context.Background(), "show-1", "nonexistent"); err == nil {
		t.Error("expected error for nonexistent export")
	}
}

// fakeLedger serves a fixed state and ledger.
type fakeLedger struct {
	state   evaluation.CharacterState
	entries []evaluation.LedgerEntry
}

func (f *fakeLedger) GetOrCreateState(_ context.Context, showID string, seasonID *string, characterKey string, _ formula.Stats) (*evaluation.CharacterState, error) {
	st := f.state
	return &st, nil
}

func (f *fakeLedger) History(_ context.Context, q evaluation.HistoryQuery) ([]evaluation.LedgerEntry, error) {
	return f.entries, nil
}

func TestExportWritesBundle(t *testing.T) {
	storage := NewLocalStorage(t.TempDir())
	ledger := &fakeLedger{
		state: evaluation.CharacterState{
			ID:           "st-1",
			ShowID:       "show-1",
			CharacterKey: "lala",
			Stats:        formula.Stats{Coins: 350, Reputation: 2, BrandTrust: 1, Influence: 1, Stress: 1},
		},
		entries: []evaluation.LedgerEntry{
			{
				ID:           "le-1",
				ShowID:       "show-1",
				CharacterKey: "lala",
				EpisodeID:    "ep-1",
				Source:       evaluation.SourceComputed,
				Deltas:       formula.Deltas{"coins": -150, "stress": 1},
				StateAfter:   formula.Stats{Coins: 350, Reputation: 2, BrandTrust: 1, Influence: 1, Stress: 1},
				CreatedAt:    time.Now().UTC(),
			},
		},
	}

	svc := NewService(ledger, storage)
	rec, err := svc.Export(context.Background(), "show-1", nil, "lala")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if rec.Entries != 1 {
		t.Errorf("entries = %d, want 1", rec.Entries)
	}

	bundle, err := svc.Fetch(context.Background(), "show-1", rec.ExportID)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if bundle.CharacterKey != "lala" || bundle.FormulaVersion != formula.Version {
		t.Errorf("bundle = %+v", bundle)
	}
	if len(bundle.Ledger) != 1 || bundle.Ledger[0].Deltas["coins"] != -150 {
		t.Errorf("ledger = %+v", bundle.Ledger)
	}
	if bundle.State.Stats.Coins != 350 {
		t.Errorf("state coins = %d", bundle.State.Stats.Coins)
	}
}
