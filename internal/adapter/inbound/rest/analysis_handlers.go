package rest

import (
	"net/http"

	"github.com/opsdeck/opsdeck/internal/service"
)

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req service.AnalyzeRequest
	if err := readJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := h.analysis.Analyze(r.Context(), req)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, resp)
}
