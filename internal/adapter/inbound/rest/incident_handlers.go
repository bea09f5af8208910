package rest

import (
	"net/http"

	"github.com/opsdeck/opsdeck/internal/domain/monitor"
)

func (h *Handler) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	filter := monitor.IncidentFilter{
		ServiceID: r.URL.Query().Get("serviceId"),
		Status:    monitor.IncidentStatus(r.URL.Query().Get("status")),
		Severity:  monitor.Severity(r.URL.Query().Get("severity")),
	}
	items, total, err := h.incidents.List(r.Context(), filter, page)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, listEnvelope{
		Data: items, Total: total, Page: page.Number, PageSize: page.Size,
	})
}

func (h *Handler) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	inc, err := h.incidents.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, inc)
}

func (h *Handler) handleCreateIncident(w http.ResponseWriter, r *http.Request) {
	var inc monitor.Incident
	if err := readJSON(r, &inc); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := h.incidents.Create(r.Context(), &inc)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, created)
}

func (h *Handler) handleUpdateIncident(w http.ResponseWriter, r *http.Request) {
	var inc monitor.Incident
	if err := readJSON(r, &inc); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	updated, err := h.incidents.Update(r.Context(), r.PathValue("id"), &inc)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, updated)
}

func (h *Handler) handleDeleteIncident(w http.ResponseWriter, r *http.Request) {
	if err := h.incidents.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
