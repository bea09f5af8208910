// Package rest provides the JSON HTTP API for the dashboard.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/opsdeck/opsdeck/internal/ctxkey"
	"github.com/opsdeck/opsdeck/internal/domain/auth"
	"github.com/opsdeck/opsdeck/internal/domain/monitor"
	"github.com/opsdeck/opsdeck/internal/service"
)

// listEnvelope is the response shape for list endpoints.
type listEnvelope struct {
	Data     any `json:"data"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// respondJSON writes a JSON response with the given status code and data.
func (h *Handler) respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.requestLogger(r).Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a JSON error response with the given status code and
// message.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.respondJSON(w, r, status, map[string]string{"error": message})
}

// respondDomainError maps domain errors onto HTTP statuses.
func (h *Handler) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, monitor.ErrNotFound), errors.Is(err, auth.ErrUserNotFound):
		h.respondError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, auth.ErrEmailTaken):
		h.respondError(w, r, http.StatusConflict, "email already registered")
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.respondError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrInvalidInput):
		h.respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrBadAnalysisRequest):
		h.respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNoAnalysisData):
		h.respondError(w, r, http.StatusNotFound, err.Error())
	default:
		h.stats.RecordError()
		h.requestLogger(r).Error("request failed", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// readJSON decodes the request body into v.
func readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// requestLogger returns the enriched logger stored by the request-ID
// middleware, or the handler's base logger.
func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	if l, ok := r.Context().Value(ctxkey.LoggerKey{}).(*slog.Logger); ok {
		return l
	}
	return h.logger
}

// pageFromQuery parses page and pageSize query parameters. Absent or
// malformed values fall back to the store defaults.
func pageFromQuery(r *http.Request) monitor.Page {
	var p monitor.Page
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		p.Number = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("pageSize")); err == nil && v > 0 {
		p.Size = v
	}
	return p
}
