package evaluation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/styleverse/progression/internal/decision"
	"github.com/styleverse/progression/pkg/formula"
	"github.com/styleverse/progression/pkg/scripttag"
)

// ErrNotFound is returned by stores when an entity does not exist.
var ErrNotFound = errors.New("not found")

// DefaultCharacterKey is the character evaluated when the caller names
// none.
const DefaultCharacterKey = "lala"

// ScopeGlobal addresses the character's global (season-less) state row.
const ScopeGlobal = "global"

// Wardrobe categories that count as the outfit vs. accessories.
var (
	outfitCategories    = map[string]bool{"dress": true, "top": true, "bottom": true, "outfit": true}
	accessoryCategories = map[string]bool{"accessories": true, "jewelry": true, "hat": true, "scarf": true}
)

// DecisionRecorder receives audit entries for every decision point. It
// must never block; the workflow treats it as fire-and-forget.
type DecisionRecorder interface {
	Record(e decision.Entry)
}

// Service is the evaluation workflow. It orchestrates compute → override
// → accept against a single episode's evaluation record and is the only
// writer of character state and the ledger.
type Service struct {
	store     Store
	decisions DecisionRecorder
	accepts   *keyedMutex
}

// NewService creates the workflow service. decisions may be nil.
func NewService(store Store, decisions DecisionRecorder) *Service {
	return &Service{
		store:     store,
		decisions: decisions,
		accepts:   newKeyedMutex(),
	}
}

// EvaluateParams configure an Evaluate call.
type EvaluateParams struct {
	CharacterKey string
	Scope        string
	SkipIntent   bool
	TotalBoost   int
}

// OverrideParams configure an Override call.
type OverrideParams struct {
	Type           string
	TierTo         formula.Tier
	ReasonCode     string
	Costs          formula.Deltas
	Impact         formula.Deltas
	OutfitMatch    *int
	AccessoryMatch *int
	NarrativeLine  string
	AppliedBy      string
}

// AcceptParams configure an Accept call.
type AcceptParams struct {
	AllowOutOfOrder bool
}

// AcceptResult is returned from a successful Accept.
type AcceptResult struct {
	AppliedDeltas formula.Deltas `json:"applied_deltas"`
	PreviousState formula.Stats  `json:"previous_state"`
	NewState      formula.Stats  `json:"new_state"`
	TierFinal     formula.Tier   `json:"tier_final"`
	Score         int            `json:"score"`
	Narrative     string         `json:"narrative"`
	Warnings      []Warning      `json:"warnings"`
}

// GetCharacterState returns the character's current economy, lazily
// creating the row with seed defaults on first read.
func (s *Service) GetCharacterState(ctx context.Context, showID string, seasonID *string, characterKey, scope string) (*CharacterState, error) {
	if characterKey == "" {
		characterKey = DefaultCharacterKey
	}
	if scope == ScopeGlobal {
		seasonID = nil
	}
	return s.store.GetOrCreateState(ctx, showID, seasonID, characterKey, formula.DefaultStats())
}

// Evaluate computes the episode's evaluation and persists it with
// status=computed. The episode's script must carry an event tag; an
// out-of-order episode produces a warning, not a failure.
func (s *Service) Evaluate(ctx context.Context, episodeID string, p EvaluateParams) (*Evaluation, error) {
	ep, err := s.getEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}

	event, ok := scripttag.ParseEvent(ep.Script)
	if !ok {
		return nil, &WorkflowError{
			Code:    CodeNoEventTag,
			Message: `no [EVENT:] tag found in script; add an [EVENT: name="..." prestige=7 cost=150 strictness=6 deadline="high"] tag`,
		}
	}

	intent := ""
	if !p.SkipIntent {
		intent = scripttag.ParseIntent(ep.Script)
	}

	characterKey := p.CharacterKey
	if characterKey == "" {
		characterKey = DefaultCharacterKey
	}
	scope := p.Scope
	if scope == "" {
		scope = "season"
	}
	seasonID := ep.SeasonID
	if scope == ScopeGlobal {
		seasonID = nil
	}

	state, err := s.store.GetOrCreateState(ctx, ep.ShowID, seasonID, characterKey, formula.DefaultStats())
	if err != nil {
		return nil, fmt.Errorf("load character state: %w", err)
	}

	style := s.styleScores(event, ep.Wardrobe)

	result := formula.Evaluate(state.Stats, event, style, intent, formula.Bonuses{TotalBoost: p.TotalBoost})

	eval := &Evaluation{
		Result:         result,
		StatDeltas:     formula.ComputeDeltas(result.TierFinal, event, nil),
		NarrativeLines: formula.GenerateNarrative(result.TierFinal, result.Score),
		EventParsed:    event,
		Intent:         intent,
		CharacterKey:   characterKey,
		Scope:          scope,
		EvaluatedAt:    time.Now().UTC(),
	}

	for _, r := range formula.Reasons {
		eval.SuggestedOverrides = append(eval.SuggestedOverrides, SuggestedOverride{
			ReasonCode:  r.Code,
			Label:       r.Label,
			Category:    r.Category,
			Allowed:     true,
			MaxTierBump: r.MaxTierBump,
		})
	}

	if w := s.outOfOrderWarning(ctx, ep, state, WarnOutOfOrderEpisode); w != nil {
		eval.Warnings = append(eval.Warnings, *w)
	}

	if err := s.store.SaveEvaluation(ctx, ep.ID, eval, StatusComputed); err != nil {
		return nil, fmt.Errorf("save evaluation: %w", err)
	}

	s.record(decision.Entry{
		Type:      decision.TypeEvaluationComputed,
		EpisodeID: ep.ID,
		ShowID:    ep.ShowID,
		Context:   map[string]any{"event": event.Name, "character_key": characterKey},
		Decision:  map[string]any{"score": result.Score, "tier": result.TierComputed},
		Source:    "evaluate",
	})

	return eval, nil
}

// Override applies a manual adjustment to a computed evaluation. A tier
// change re-runs delta calculation and narrative generation against the
// new tier; a style adjustment only records the correction and never
// changes the score or tier.
func (s *Service) Override(ctx context.Context, episodeID string, p OverrideParams) (*Evaluation, error) {
	ep, err := s.getEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if ep.EvaluationStatus != StatusComputed || ep.Evaluation == nil {
		return nil, errNotComputed(ep.EvaluationStatus)
	}
	eval := ep.Evaluation

	overrideType := p.Type
	if overrideType == "" {
		overrideType = formula.OverrideTierChange
	}

	switch overrideType {
	case formula.OverrideTierChange:
		if err := s.applyTierChange(eval, p); err != nil {
			return nil, err
		}
	case formula.OverrideStyleAdjust:
		s.applyStyleAdjust(eval, p)
	default:
		return nil, &WorkflowError{
			Code:    CodeInvalidTier,
			Message: "unknown override type: " + overrideType,
		}
	}

	if err := s.store.SaveEvaluation(ctx, ep.ID, eval, StatusComputed); err != nil {
		return nil, fmt.Errorf("save evaluation: %w", err)
	}

	return eval, nil
}

func (s *Service) applyTierChange(eval *Evaluation, p OverrideParams) error {
	if p.ReasonCode == "" {
		return &WorkflowError{Code: CodeUnknownReason, Message: "reason_code is required for a tier change"}
	}
	if _, ok := formula.LookupReason(p.ReasonCode); !ok {
		return &WorkflowError{Code: CodeUnknownReason, Message: "unknown reason_code: " + p.ReasonCode}
	}

	if err := formula.ValidateOverride(eval.TierFinal, p.TierTo); err != nil {
		return &WorkflowError{Code: CodeInvalidTier, Message: err.Error()}
	}

	if eval.TierChangeCount() >= 1 {
		return &WorkflowError{
			Code:    CodeMaxOverridesExceeded,
			Message: "maximum one tier override per episode",
		}
	}

	now := time.Now().UTC()
	override := formula.Override{
		Type:          formula.OverrideTierChange,
		TierFrom:      eval.TierFinal,
		TierTo:        p.TierTo,
		ReasonCode:    p.ReasonCode,
		Costs:         p.Costs,
		Impact:        p.Impact,
		NarrativeLine: p.NarrativeLine,
		AppliedBy:     appliedBy(p.AppliedBy),
		AppliedAt:     now,
	}

	eval.TierFinal = p.TierTo
	eval.Overrides = append(eval.Overrides, override)
	eval.StatDeltas = formula.ComputeDeltas(eval.TierFinal, eval.EventParsed, eval.Overrides)
	eval.NarrativeLines = formula.GenerateNarrative(eval.TierFinal, eval.Score)

	s.record(decision.Entry{
		Type:     decision.TypeTierOverride,
		Context:  map[string]any{"tier_from": override.TierFrom, "score": eval.Score},
		Decision: map[string]any{"tier_to": p.TierTo, "reason_code": p.ReasonCode, "costs": p.Costs},
		Alternatives: map[string]any{
			"could_accept":        true,
			"could_override_down": override.TierFrom != formula.TierFail,
		},
		Source: "override",
	})

	return nil
}

func (s *Service) applyStyleAdjust(eval *Evaluation, p OverrideParams) {
	reason := p.ReasonCode
	if reason == "" {
		reason = formula.ReasonStyleAdjust
	}

	if eval.StyleScores == nil {
		eval.StyleScores = map[string]int{}
	}
	breakdown := map[string]int{}
	for _, c := range eval.Breakdown {
		breakdown[c.Key] = c.Value
	}
	if p.OutfitMatch != nil {
		eval.StyleScores["outfit_match_original"] = breakdown["outfit_match"]
		eval.StyleScores["outfit_match"] = *p.OutfitMatch
	}
	if p.AccessoryMatch != nil {
		eval.StyleScores["accessory_match_original"] = breakdown["accessory_match"]
		eval.StyleScores["accessory_match"] = *p.AccessoryMatch
	}

	now := time.Now().UTC()
	eval.Overrides = append(eval.Overrides, formula.Override{
		Type:           formula.OverrideStyleAdjust,
		ReasonCode:     reason,
		OutfitMatch:    p.OutfitMatch,
		AccessoryMatch: p.AccessoryMatch,
		AppliedBy:      appliedBy(p.AppliedBy),
		AppliedAt:      now,
	})

	// The score was already computed; a style adjustment is for the
	// display and the record, not the number.

	s.record(decision.Entry{
		Type:     decision.TypeStyleAdjust,
		Context:  map[string]any{"outfit_match": breakdown["outfit_match"], "accessory_match": breakdown["accessory_match"]},
		Decision: map[string]any{"outfit_match": p.OutfitMatch, "accessory_match": p.AccessoryMatch, "reason": reason},
		Source:   "override",
	})
}

// Accept applies the evaluation's stat deltas to the character state,
// appends one ledger entry, and freezes the evaluation. The state update
// and ledger append are committed atomically; concurrent accepts for the
// same character key are serialized.
func (s *Service) Accept(ctx context.Context, episodeID string, p AcceptParams) (*AcceptResult, error) {
	ep, err := s.getEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if ep.Evaluation == nil {
		return nil, errNotComputed(ep.EvaluationStatus)
	}

	eval := ep.Evaluation
	seasonID := ep.SeasonID
	if eval.Scope == ScopeGlobal {
		seasonID = nil
	}

	unlock := s.accepts.Lock(stateKey(ep.ShowID, seasonID, eval.CharacterKey))
	defer unlock()

	// Re-read under the lock: a concurrent accept may have advanced the
	// status since the first load.
	ep, err = s.getEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	switch {
	case ep.EvaluationStatus == StatusAccepted:
		return nil, &WorkflowError{
			Code:    CodeAlreadyAccepted,
			Message: "episode already accepted; re-evaluate first",
			Status:  StatusAccepted,
		}
	case ep.EvaluationStatus != StatusComputed || ep.Evaluation == nil:
		return nil, errNotComputed(ep.EvaluationStatus)
	}
	eval = ep.Evaluation

	state, err := s.store.GetOrCreateState(ctx, ep.ShowID, seasonID, eval.CharacterKey, formula.DefaultStats())
	if err != nil {
		return nil, fmt.Errorf("load character state: %w", err)
	}

	var warnings []Warning
	if state.LastAppliedEpisodeID != nil && *state.LastAppliedEpisodeID != ep.ID {
		if w := s.outOfOrderWarning(ctx, ep, state, WarnOutOfOrderApply); w != nil {
			if !p.AllowOutOfOrder {
				lastEp, _ := s.store.GetEpisode(ctx, *state.LastAppliedEpisodeID)
				conflict := 0
				if lastEp != nil {
					conflict = lastEp.Number
				}
				return nil, &WorkflowError{
					Code: CodeOutOfOrder,
					Message: fmt.Sprintf(
						"last accepted was episode %d, this is episode %d; set allow_out_of_order to proceed",
						conflict, ep.Number),
					ConflictEpisode: conflict,
				}
			}
			warnings = append(warnings, *w)
		}
	}

	previous := state.Stats
	newStats := formula.ApplyDeltas(previous, eval.StatDeltas)

	now := time.Now().UTC()
	eval.AcceptedAt = &now

	source := SourceComputed
	if len(eval.Overrides) > 0 {
		source = SourceOverride
	}

	commit := AcceptCommit{
		StateID:              state.ID,
		NewStats:             newStats,
		LastAppliedEpisodeID: ep.ID,
		Ledger: LedgerEntry{
			ID:           uuid.New().String(),
			ShowID:       ep.ShowID,
			SeasonID:     seasonID,
			CharacterKey: eval.CharacterKey,
			EpisodeID:    ep.ID,
			Source:       source,
			Deltas:       eval.StatDeltas.Clone(),
			StateAfter:   newStats,
			Note:         eval.NarrativeLines.Short,
			CreatedAt:    now,
		},
		EpisodeID:  ep.ID,
		Evaluation: eval,
	}
	if err := s.store.CommitAccept(ctx, commit); err != nil {
		return nil, fmt.Errorf("commit accept: %w", err)
	}

	s.record(decision.Entry{
		Type:      decision.TypeEvaluationAccepted,
		EpisodeID: ep.ID,
		ShowID:    ep.ShowID,
		Context:   map[string]any{"score": eval.Score, "tier": eval.TierFinal, "had_overrides": len(eval.Overrides) > 0},
		Decision:  map[string]any{"accepted": true, "stat_deltas": eval.StatDeltas},
		Source:    "accept",
	})

	return &AcceptResult{
		AppliedDeltas: eval.StatDeltas.Clone(),
		PreviousState: previous,
		NewState:      newStats,
		TierFinal:     eval.TierFinal,
		Score:         eval.Score,
		Narrative:     eval.NarrativeLines.Short,
		Warnings:      warnings,
	}, nil
}

// Reevaluate reopens an accepted evaluation. Only the character's most
// recently applied episode can be reopened: the state is restored to the
// snapshot preceding this episode's ledger entry, a reversal entry is
// appended, and the evaluation returns to computed so it can be adjusted
// and re-accepted.
func (s *Service) Reevaluate(ctx context.Context, episodeID string) (*Evaluation, error) {
	ep, err := s.getEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if ep.EvaluationStatus != StatusAccepted || ep.Evaluation == nil {
		return nil, &WorkflowError{
			Code:    CodeNotAccepted,
			Message: "only an accepted episode can be re-evaluated, current status: " + ep.EvaluationStatus,
			Status:  ep.EvaluationStatus,
		}
	}
	eval := ep.Evaluation

	seasonID := ep.SeasonID
	if eval.Scope == ScopeGlobal {
		seasonID = nil
	}

	unlock := s.accepts.Lock(stateKey(ep.ShowID, seasonID, eval.CharacterKey))
	defer unlock()

	state, err := s.store.GetOrCreateState(ctx, ep.ShowID, seasonID, eval.CharacterKey, formula.DefaultStats())
	if err != nil {
		return nil, fmt.Errorf("load character state: %w", err)
	}
	if state.LastAppliedEpisodeID == nil || *state.LastAppliedEpisodeID != ep.ID {
		return nil, &WorkflowError{
			Code:    CodeNotLatestApplied,
			Message: "only the most recently applied episode can be reopened",
		}
	}

	entry, err := s.store.LedgerForEpisode(ctx, ep.ShowID, seasonID, eval.CharacterKey, ep.ID)
	if err != nil {
		return nil, fmt.Errorf("load ledger entry: %w", err)
	}

	restored := formula.DefaultStats()
	var lastApplied *string
	prev, err := s.store.LedgerBefore(ctx, ep.ShowID, seasonID, eval.CharacterKey, entry.CreatedAt)
	switch {
	case err == nil:
		restored = prev.StateAfter
		if prev.Source != SourceReversal {
			episodeID := prev.EpisodeID
			lastApplied = &episodeID
		}
	case errors.Is(err, ErrNotFound):
		// First ever entry: restore the seed defaults.
	default:
		return nil, fmt.Errorf("load prior ledger entry: %w", err)
	}

	now := time.Now().UTC()
	eval.AcceptedAt = nil

	commit := ReversalCommit{
		StateID:              state.ID,
		RestoredStats:        restored,
		LastAppliedEpisodeID: lastApplied,
		Ledger: LedgerEntry{
			ID:           uuid.New().String(),
			ShowID:       ep.ShowID,
			SeasonID:     seasonID,
			CharacterKey: eval.CharacterKey,
			EpisodeID:    ep.ID,
			Source:       SourceReversal,
			Deltas:       statsDiff(state.Stats, restored),
			StateAfter:   restored,
			Note:         "reopened for re-evaluation",
			CreatedAt:    now,
		},
		EpisodeID:  ep.ID,
		Evaluation: eval,
	}
	if err := s.store.CommitReversal(ctx, commit); err != nil {
		return nil, fmt.Errorf("commit reversal: %w", err)
	}

	s.record(decision.Entry{
		Type:      decision.TypeEvaluationRerun,
		EpisodeID: ep.ID,
		ShowID:    ep.ShowID,
		Context:   map[string]any{"score": eval.Score, "tier": eval.TierFinal},
		Decision:  map[string]any{"reopened": true},
		Source:    "reevaluate",
	})

	return eval, nil
}

// History returns ledger entries for a show, newest first.
func (s *Service) History(ctx context.Context, q HistoryQuery) ([]LedgerEntry, error) {
	return s.store.History(ctx, q)
}

// UpsertEpisode writes an episode row so the engine can evaluate it.
func (s *Service) UpsertEpisode(ctx context.Context, ep *Episode) error {
	if ep.ID == "" {
		ep.ID = uuid.New().String()
	}
	if ep.EvaluationStatus == "" {
		ep.EvaluationStatus = StatusNone
	}
	return s.store.UpsertEpisode(ctx, ep)
}

// GetEpisode returns an episode with its evaluation record.
func (s *Service) GetEpisode(ctx context.Context, id string) (*Episode, error) {
	return s.getEpisode(ctx, id)
}

func (s *Service) getEpisode(ctx context.Context, id string) (*Episode, error) {
	ep, err := s.store.GetEpisode(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, &WorkflowError{Code: CodeEpisodeNotFound, Message: "episode not found: " + id}
	}
	if err != nil {
		return nil, fmt.Errorf("load episode: %w", err)
	}
	return ep, nil
}

// styleScores derives the formula's style inputs from the episode's
// wardrobe assignment. A missing outfit reports as nil (scored 0); the
// accessory matcher is always consulted so an empty set keeps its neutral
// score.
func (s *Service) styleScores(event formula.Event, wardrobe []formula.WardrobeItem) formula.Style {
	var style formula.Style
	var accessories []formula.WardrobeItem

	for _, item := range wardrobe {
		category := strings.ToLower(item.Category)
		switch {
		case outfitCategories[category] && style.OutfitMatch == nil:
			match := formula.OutfitMatch(event, item)
			style.OutfitMatch = &match
		case accessoryCategories[category]:
			accessories = append(accessories, item)
		}
	}

	accessoryMatch := formula.AccessoryMatch(event, accessories)
	style.AccessoryMatch = &accessoryMatch

	return style
}

// outOfOrderWarning checks the episode's sequence number against the
// episode currently recorded as last applied.
func (s *Service) outOfOrderWarning(ctx context.Context, ep *Episode, state *CharacterState, code string) *Warning {
	if state.LastAppliedEpisodeID == nil || ep.Number <= 0 {
		return nil
	}
	lastEp, err := s.store.GetEpisode(ctx, *state.LastAppliedEpisodeID)
	if err != nil || lastEp.Number <= 0 {
		return nil
	}
	if ep.Number > lastEp.Number {
		return nil
	}
	return &Warning{
		Code: code,
		Message: fmt.Sprintf("this is episode %d but the last applied was episode %d",
			ep.Number, lastEp.Number),
	}
}

func (s *Service) record(e decision.Entry) {
	if s.decisions != nil {
		s.decisions.Record(e)
	}
}

func appliedBy(by string) string {
	if by == "" {
		return "user"
	}
	return by
}

func stateKey(showID string, seasonID *string, characterKey string) string {
	season := ""
	if seasonID != nil {
		season = *seasonID
	}
	return showID + "|" + season + "|" + characterKey
}

// statsDiff returns the exact per-stat deltas that transform from into
// to, for recording in a reversal ledger entry.
func statsDiff(from, to formula.Stats) formula.Deltas {
	return formula.Deltas{
		"coins":       to.Coins - from.Coins,
		"reputation":  to.Reputation - from.Reputation,
		"brand_trust": to.BrandTrust - from.BrandTrust,
		"influence":   to.Influence - from.Influence,
		"stress":      to.Stress - from.Stress,
	}
}
