package rest

import (
	"net/http"

	"github.com/opsdeck/opsdeck/internal/domain/monitor"
)

func (h *Handler) handleListActions(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	filter := monitor.ActionFilter{
		IncidentID: r.URL.Query().Get("incidentId"),
	}
	items, total, err := h.actions.List(r.Context(), filter, page)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, listEnvelope{
		Data: items, Total: total, Page: page.Number, PageSize: page.Size,
	})
}

func (h *Handler) handleGetAction(w http.ResponseWriter, r *http.Request) {
	action, err := h.actions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, action)
}

// handleListIncidentActions lists the remediation history of one incident.
func (h *Handler) handleListIncidentActions(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	filter := monitor.ActionFilter{IncidentID: r.PathValue("id")}
	items, total, err := h.actions.List(r.Context(), filter, page)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, listEnvelope{
		Data: items, Total: total, Page: page.Number, PageSize: page.Size,
	})
}

func (h *Handler) handleCreateAction(w http.ResponseWriter, r *http.Request) {
	var action monitor.Action
	if err := readJSON(r, &action); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := h.actions.Create(r.Context(), &action)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, created)
}

func (h *Handler) handleUpdateAction(w http.ResponseWriter, r *http.Request) {
	var action monitor.Action
	if err := readJSON(r, &action); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	updated, err := h.actions.Update(r.Context(), r.PathValue("id"), &action)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, updated)
}

func (h *Handler) handleDeleteAction(w http.ResponseWriter, r *http.Request) {
	if err := h.actions.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
