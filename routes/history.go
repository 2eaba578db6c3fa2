package routes

import (
	"net/http"

	"jxlpress/history"
	"jxlpress/logger"
)

// HistoryQueryHandler returns one history record by job id.
func (h *Handlers) HistoryQueryHandler(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		writeMessage(w, http.StatusNotFound, "History is disabled.")
		return
	}
	id := r.PathValue("id")
	record, err := h.History.Get(id)
	if err != nil {
		logger.Errorf("Failed to query history for %s: %v", id, err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if record == nil {
		writeMessage(w, http.StatusNotFound, "No history for job "+id+".")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// HistoryListHandler lists history records, newest first. ?status=success or
// ?status=failed narrows the list.
func (h *Handlers) HistoryListHandler(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		writeMessage(w, http.StatusNotFound, "History is disabled.")
		return
	}
	status := r.URL.Query().Get("status")
	switch status {
	case "", history.StatusSuccess, history.StatusFailed:
	default:
		writeMessage(w, http.StatusBadRequest, "status must be success or failed")
		return
	}

	records, err := h.History.List(status)
	if err != nil {
		logger.Errorf("Failed to list history: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}
