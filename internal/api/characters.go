package api

import "net/http"

// handleCharacterState returns the character's current economy, creating
// the row with seed defaults on first read. scope=global addresses the
// season-less row; otherwise pass season_id for season scope.
func (h *Handler) handleCharacterState(w http.ResponseWriter, r *http.Request) {
	showID := r.PathValue("showID")
	characterKey := r.PathValue("characterKey")

	var seasonID *string
	if v := r.URL.Query().Get("season_id"); v != "" {
		seasonID = &v
	}
	scope := r.URL.Query().Get("scope")

	st, err := h.workflow.GetCharacterState(r.Context(), showID, seasonID, characterKey, scope)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get character state: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}
