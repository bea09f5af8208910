package rest

import (
	"net/http"

	"github.com/opsdeck/opsdeck/internal/domain/monitor"
)

func (h *Handler) handleListLogs(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	filter := monitor.LogFilter{
		ServiceID: r.URL.Query().Get("serviceId"),
		Level:     monitor.LogLevel(r.URL.Query().Get("level")),
	}
	items, total, err := h.logs.List(r.Context(), filter, page)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, listEnvelope{
		Data: items, Total: total, Page: page.Number, PageSize: page.Size,
	})
}

func (h *Handler) handleGetLog(w http.ResponseWriter, r *http.Request) {
	entry, err := h.logs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, entry)
}

func (h *Handler) handleIngestLog(w http.ResponseWriter, r *http.Request) {
	var entry monitor.LogEntry
	if err := readJSON(r, &entry); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := h.logs.Ingest(r.Context(), &entry)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, created)
}

func (h *Handler) handleIngestLogBatch(w http.ResponseWriter, r *http.Request) {
	var entries []monitor.LogEntry
	if err := readJSON(r, &entries); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := h.logs.IngestBatch(r.Context(), entries)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, listEnvelope{Data: created, Total: len(created)})
}

func (h *Handler) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	if err := h.logs.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
