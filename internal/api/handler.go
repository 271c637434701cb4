// Package api implements the progression engine REST API: the evaluate →
// override → accept workflow on episodes, character state reads, world
// history views, and ledger exports.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/styleverse/progression/internal/archive"
	"github.com/styleverse/progression/internal/decision"
	"github.com/styleverse/progression/internal/evaluation"
)

// Handler is the top-level API handler for the progression service.
type Handler struct {
	workflow  *evaluation.Service
	decisions *decision.Service
	exports   *archive.Service
}

// NewHandler creates a new API handler. decisions and exports may be nil;
// their endpoints then report 503.
func NewHandler(workflow *evaluation.Service, decisions *decision.Service, exports *archive.Service) *Handler {
	return &Handler{
		workflow:  workflow,
		decisions: decisions,
		exports:   exports,
	}
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Episode workflow (auth-protected writes)
	mux.HandleFunc("PUT /api/v1/episodes/{episodeID}", h.handleUpsertEpisode)
	mux.HandleFunc("POST /api/v1/episodes/{episodeID}/evaluate", h.handleEvaluate)
	mux.HandleFunc("POST /api/v1/episodes/{episodeID}/override", h.handleOverride)
	mux.HandleFunc("POST /api/v1/episodes/{episodeID}/accept", h.handleAccept)
	mux.HandleFunc("POST /api/v1/episodes/{episodeID}/reevaluate", h.handleReevaluate)
	mux.HandleFunc("POST /api/v1/shows/{showID}/export", h.handleExport)

	// Read endpoints
	mux.HandleFunc("GET /api/v1/episodes/{episodeID}", h.handleGetEpisode)
	mux.HandleFunc("GET /api/v1/shows/{showID}/characters/{characterKey}/state", h.handleCharacterState)
	mux.HandleFunc("GET /api/v1/shows/{showID}/history", h.handleHistory)
	mux.HandleFunc("GET /api/v1/shows/{showID}/decisions", h.handleDecisions)
	mux.HandleFunc("GET /api/v1/shows/{showID}/decisions/stats", h.handleDecisionStats)
	mux.HandleFunc("GET /api/v1/shows/{showID}/decisions/patterns", h.handleOverridePatterns)
	mux.HandleFunc("GET /api/v1/shows/{showID}/exports/{exportID}", h.handleGetExport)
	mux.HandleFunc("GET /api/v1/catalog/reasons", h.handleReasons)
	mux.HandleFunc("GET /api/v1/catalog/tiers", h.handleTiers)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeWorkflowError maps workflow rejections to HTTP statuses and emits
// the structured error body so clients can branch on the code.
func writeWorkflowError(w http.ResponseWriter, err error) {
	var we *evaluation.WorkflowError
	if !errors.As(err, &we) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusBadRequest
	switch we.Code {
	case evaluation.CodeEpisodeNotFound:
		status = http.StatusNotFound
	case evaluation.CodeNotComputed, evaluation.CodeAlreadyAccepted,
		evaluation.CodeNotAccepted, evaluation.CodeNotLatestApplied,
		evaluation.CodeOutOfOrder:
		status = http.StatusConflict
	}
	writeJSON(w, status, we)
}
