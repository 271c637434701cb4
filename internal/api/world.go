package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/styleverse/progression/internal/evaluation"
)

// handleHistory returns ledger entries for a show, newest first.
// Query params: character_key, since, until (RFC 3339), limit.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := evaluation.HistoryQuery{
		ShowID:       r.PathValue("showID"),
		CharacterKey: r.URL.Query().Get("character_key"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit: "+v)
			return
		}
		q.Limit = limit
	}
	if v := r.URL.Query().Get("since"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since: "+v)
			return
		}
		q.Since = ts
	}
	if v := r.URL.Query().Get("until"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid until: "+v)
			return
		}
		q.Until = ts
	}

	entries, err := h.workflow.History(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query history: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) handleDecisions(w http.ResponseWriter, r *http.Request) {
	if h.decisions == nil {
		writeError(w, http.StatusServiceUnavailable, "decision log not configured")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	entries, err := h.decisions.Recent(r.Context(), r.PathValue("showID"), r.URL.Query().Get("type"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list decisions: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decisions": entries})
}

func (h *Handler) handleDecisionStats(w http.ResponseWriter, r *http.Request) {
	if h.decisions == nil {
		writeError(w, http.StatusServiceUnavailable, "decision log not configured")
		return
	}
	stats, err := h.decisions.Stats(r.Context(), r.PathValue("showID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "decision stats: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

func (h *Handler) handleOverridePatterns(w http.ResponseWriter, r *http.Request) {
	if h.decisions == nil {
		writeError(w, http.StatusServiceUnavailable, "decision log not configured")
		return
	}
	patterns, err := h.decisions.OverridePatterns(r.Context(), r.PathValue("showID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "override patterns: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patterns": patterns})
}

type exportRequest struct {
	SeasonID     *string `json:"season_id,omitempty"`
	CharacterKey string  `json:"character_key"`
}

// handleExport bundles the character's state and ledger and writes it to
// the configured blob storage.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil {
		writeError(w, http.StatusServiceUnavailable, "export storage not configured")
		return
	}

	var req exportRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	rec, err := h.exports.Export(r.Context(), r.PathValue("showID"), req.SeasonID, req.CharacterKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export ledger: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleGetExport(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil {
		writeError(w, http.StatusServiceUnavailable, "export storage not configured")
		return
	}
	bundle, err := h.exports.Fetch(r.Context(), r.PathValue("showID"), r.PathValue("exportID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "export not found: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}
