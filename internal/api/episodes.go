package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/styleverse/progression/internal/evaluation"
	"github.com/styleverse/progression/pkg/formula"
)

type upsertEpisodeRequest struct {
	ShowID   string                 `json:"show_id"`
	SeasonID *string                `json:"season_id,omitempty"`
	Number   int                    `json:"episode_number"`
	Title    string                 `json:"title"`
	Script   string                 `json:"script_content"`
	Wardrobe []formula.WardrobeItem `json:"wardrobe,omitempty"`
}

// handleUpsertEpisode creates or replaces an episode's authored fields.
// Evaluation state is untouched.
func (h *Handler) handleUpsertEpisode(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("episodeID")

	var req upsertEpisodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ShowID == "" {
		writeError(w, http.StatusBadRequest, "show_id is required")
		return
	}

	ep := &evaluation.Episode{
		ID:       episodeID,
		ShowID:   req.ShowID,
		SeasonID: req.SeasonID,
		Number:   req.Number,
		Title:    req.Title,
		Script:   req.Script,
		Wardrobe: req.Wardrobe,
	}
	if err := h.workflow.UpsertEpisode(r.Context(), ep); err != nil {
		writeError(w, http.StatusInternalServerError, "upsert episode: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ep)
}

func (h *Handler) handleGetEpisode(w http.ResponseWriter, r *http.Request) {
	ep, err := h.workflow.GetEpisode(r.Context(), r.PathValue("episodeID"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ep)
}

type evaluateRequest struct {
	CharacterKey string `json:"character_key"`
	Scope        string `json:"scope"`
	SkipIntent   bool   `json:"skip_intent"`
	TotalBoost   int    `json:"total_boost"`
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	eval, err := h.workflow.Evaluate(r.Context(), r.PathValue("episodeID"), evaluation.EvaluateParams{
		CharacterKey: req.CharacterKey,
		Scope:        req.Scope,
		SkipIntent:   req.SkipIntent,
		TotalBoost:   req.TotalBoost,
	})
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

type overrideRequest struct {
	Type           string         `json:"type"`
	TierTo         formula.Tier   `json:"tier_to"`
	ReasonCode     string         `json:"reason_code"`
	Costs          formula.Deltas `json:"costs,omitempty"`
	Impact         formula.Deltas `json:"impact,omitempty"`
	OutfitMatch    *int           `json:"outfit_match,omitempty"`
	AccessoryMatch *int           `json:"accessory_match,omitempty"`
	NarrativeLine  string         `json:"narrative_line,omitempty"`
	AppliedBy      string         `json:"applied_by,omitempty"`
}

func (h *Handler) handleOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	eval, err := h.workflow.Override(r.Context(), r.PathValue("episodeID"), evaluation.OverrideParams{
		Type:           req.Type,
		TierTo:         req.TierTo,
		ReasonCode:     req.ReasonCode,
		Costs:          req.Costs,
		Impact:         req.Impact,
		OutfitMatch:    req.OutfitMatch,
		AccessoryMatch: req.AccessoryMatch,
		NarrativeLine:  req.NarrativeLine,
		AppliedBy:      req.AppliedBy,
	})
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

type acceptRequest struct {
	AllowOutOfOrder bool `json:"allow_out_of_order"`
}

type acceptResponse struct {
	*evaluation.AcceptResult
	AcceptedAt time.Time `json:"accepted_at"`
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	res, err := h.workflow.Accept(r.Context(), r.PathValue("episodeID"), evaluation.AcceptParams{
		AllowOutOfOrder: req.AllowOutOfOrder,
	})
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acceptResponse{AcceptResult: res, AcceptedAt: time.Now().UTC()})
}

func (h *Handler) handleReevaluate(w http.ResponseWriter, r *http.Request) {
	eval, err := h.workflow.Reevaluate(r.Context(), r.PathValue("episodeID"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eval)
}
