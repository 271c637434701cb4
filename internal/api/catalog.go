package api

import (
	"net/http"

	"github.com/styleverse/progression/pkg/formula"
)

// handleReasons returns the override reason catalog.
func (h *Handler) handleReasons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"reasons": formula.Reasons,
	})
}

// handleTiers returns the tier thresholds and the formula version.
func (h *Handler) handleTiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"formula_version": formula.Version,
		"tiers":           formula.TierThresholds,
	})
}
