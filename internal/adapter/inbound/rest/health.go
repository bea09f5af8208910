package rest

import "net/http"

// healthResponse reports overall status plus per-component checks.
type healthResponse struct {
	Status string            `json:"status"` // "healthy" or "unhealthy"
	Checks map[string]string `json:"checks"`
}

// handleHealth probes the database and key-value backends. The AI check is
// informational only: a missing API key degrades analysis, not the service.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			checks["database"] = "error: " + err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}
	if h.kv != nil {
		if err := h.kv.Ping(r.Context()); err != nil {
			checks["kv"] = "error: " + err.Error()
			healthy = false
		} else {
			checks["kv"] = "ok"
		}
	}
	if h.llmAvailable != nil {
		if h.llmAvailable() {
			checks["ai"] = "ok"
		} else {
			checks["ai"] = "unconfigured"
		}
	}

	resp := healthResponse{Status: "healthy", Checks: checks}
	code := http.StatusOK
	if !healthy {
		resp.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	h.respondJSON(w, r, code, resp)
}
