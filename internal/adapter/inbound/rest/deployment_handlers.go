package rest

import (
	"net/http"

	"github.com/opsdeck/opsdeck/internal/domain/monitor"
)

func (h *Handler) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	filter := monitor.DeploymentFilter{
		ServiceID: r.URL.Query().Get("serviceId"),
		Status:    monitor.DeploymentStatus(r.URL.Query().Get("status")),
	}
	items, total, err := h.deployments.List(r.Context(), filter, page)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, listEnvelope{
		Data: items, Total: total, Page: page.Number, PageSize: page.Size,
	})
}

func (h *Handler) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	dep, err := h.deployments.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, dep)
}

func (h *Handler) handleCreateDeployment(w http.ResponseWriter, r *http.Request) {
	var dep monitor.Deployment
	if err := readJSON(r, &dep); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := h.deployments.Create(r.Context(), &dep)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, created)
}

func (h *Handler) handleUpdateDeployment(w http.ResponseWriter, r *http.Request) {
	var dep monitor.Deployment
	if err := readJSON(r, &dep); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	updated, err := h.deployments.Update(r.Context(), r.PathValue("id"), &dep)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, updated)
}

func (h *Handler) handleDeleteDeployment(w http.ResponseWriter, r *http.Request) {
	if err := h.deployments.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
