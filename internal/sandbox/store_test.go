package sandbox

import (
	"context"
	"testing"

	"github.com/styleverse/progression/internal/evaluation"
	"github.com/styleverse/progression/pkg/formula"
)

const sandboxScript = `INT. RUNWAY - NIGHT

[EVENT: name="Fashion Week Finale" prestige=9 cost=300 strictness=8 deadline="tonight"]

All eyes on Lala.`

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSandboxRoundTripsEpisodes(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	season := "s1"
	ep := &evaluation.Episode{
		ID:       "ep-1",
		ShowID:   "show-1",
		SeasonID: &season,
		Number:   3,
		Title:    "The Finale",
		Script:   sandboxScript,
		Wardrobe: []formula.WardrobeItem{
			{Name: "Gown", Category: "dress", Tags: formula.WardrobeTags{Style: []string{"runway"}, Formality: 9}},
		},
		EvaluationStatus: evaluation.StatusNone,
	}
	if err := store.UpsertEpisode(ctx, ep); err != nil {
		t.Fatalf("UpsertEpisode: %v", err)
	}

	got, err := store.GetEpisode(ctx, "ep-1")
	if err != nil {
		t.Fatalf("GetEpisode: %v", err)
	}
	if got.Title != "The Finale" || got.Number != 3 {
		t.Errorf("episode = %+v", got)
	}
	if got.SeasonID == nil || *got.SeasonID != "s1" {
		t.Errorf("season = %v, want s1", got.SeasonID)
	}
	if len(got.Wardrobe) != 1 || got.Wardrobe[0].Tags.Formality != 9 {
		t.Errorf("wardrobe = %+v", got.Wardrobe)
	}

	if _, err := store.GetEpisode(ctx, "missing"); err != evaluation.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSandboxStateIsCreatedOnce(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.GetOrCreateState(ctx, "show-1", nil, "lala", formula.DefaultStats())
	if err != nil {
		t.Fatal(err)
	}
	if first.Stats != formula.DefaultStats() {
		t.Errorf("stats = %+v, want defaults", first.Stats)
	}

	// Second read must return the same row, not a fresh one.
	again, err := store.GetOrCreateState(ctx, "show-1", nil, "lala", formula.Stats{Coins: 9000})
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != first.ID || again.Stats != first.Stats {
		t.Errorf("second read = %+v, want %+v", again, first)
	}
}

// The full workflow against real SQLite: evaluate, override, accept,
// reopen, re-accept.
func TestSandboxFullWorkflow(t *testing.T) {
	store := openTestStore(t)
	svc := evaluation.NewService(store, nil)
	ctx := context.Background()

	season := "s1"
	if err := svc.UpsertEpisode(ctx, &evaluation.Episode{
		ID:       "ep-1",
		ShowID:   "show-1",
		SeasonID: &season,
		Number:   1,
		Script:   sandboxScript,
	}); err != nil {
		t.Fatal(err)
	}

	eval, err := svc.Evaluate(ctx, "ep-1", evaluation.EvaluateParams{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if eval.FormulaVersion != formula.Version {
		t.Errorf("formula version = %q", eval.FormulaVersion)
	}

	if _, err := svc.Override(ctx, "ep-1", evaluation.OverrideParams{
		TierTo:     formula.TierSlay,
		ReasonCode: "VIRAL_MOMENT",
	}); err != nil {
		t.Fatalf("Override: %v", err)
	}

	res, err := svc.Accept(ctx, "ep-1", evaluation.AcceptParams{})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if res.TierFinal != formula.TierSlay {
		t.Errorf("tier = %s, want slay", res.TierFinal)
	}
	// Slay deltas on seed state: coins 500-300, stress 0-1 clamped to 0.
	if res.NewState.Coins != 200 {
		t.Errorf("coins = %d, want 200", res.NewState.Coins)
	}
	if res.NewState.Stress != 0 {
		t.Errorf("stress = %d, want 0", res.NewState.Stress)
	}

	history, err := svc.History(ctx, evaluation.HistoryQuery{ShowID: "show-1"})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Source != evaluation.SourceOverride {
		t.Errorf("history = %+v", history)
	}

	if _, err := svc.Reevaluate(ctx, "ep-1"); err != nil {
		t.Fatalf("Reevaluate: %v", err)
	}
	st, err := svc.GetCharacterState(ctx, "show-1", &season, "lala", "season")
	if err != nil {
		t.Fatal(err)
	}
	if st.Stats != formula.DefaultStats() {
		t.Errorf("restored stats = %+v, want defaults", st.Stats)
	}

	if _, err := svc.Accept(ctx, "ep-1", evaluation.AcceptParams{}); err != nil {
		t.Fatalf("re-accept: %v", err)
	}
}
