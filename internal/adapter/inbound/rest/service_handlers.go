package rest

import (
	"net/http"

	"github.com/opsdeck/opsdeck/internal/domain/monitor"
)

func (h *Handler) handleListServices(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	filter := monitor.ServiceFilter{
		Status: monitor.ServiceStatus(r.URL.Query().Get("status")),
		Name:   r.URL.Query().Get("name"),
	}
	items, total, err := h.catalog.List(r.Context(), filter, page)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, listEnvelope{
		Data: items, Total: total, Page: page.Number, PageSize: page.Size,
	})
}

func (h *Handler) handleGetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, svc)
}

func (h *Handler) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var svc monitor.Service
	if err := readJSON(r, &svc); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := h.catalog.Create(r.Context(), &svc)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, created)
}

func (h *Handler) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	var svc monitor.Service
	if err := readJSON(r, &svc); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	updated, err := h.catalog.Update(r.Context(), r.PathValue("id"), &svc)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, updated)
}

func (h *Handler) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
