package rest

import "net/http"

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, r, http.StatusOK, h.stats.GetStats())
}
