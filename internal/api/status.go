package api

import (
	"net/http"

	"github.com/clipworks/clip-engine/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// StatusHandler serves the poll-style processing status read.
type StatusHandler struct {
	tracker *pipeline.Tracker
	log     zerolog.Logger
}

// NewStatusHandler creates the status endpoint handler.
func NewStatusHandler(tracker *pipeline.Tracker, log zerolog.Logger) *StatusHandler {
	return &StatusHandler{tracker: tracker, log: log}
}

// Routes registers the status endpoint.
func (h *StatusHandler) Routes(r chi.Router) {
	r.Get("/media/{id}/status", h.Get)
}

// Get handles GET /api/v1/media/{id}/status. Cheap enough to poll every few
// seconds: a cache hit or single-row primary key lookup, no transcript joins.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	row, err := h.tracker.Read(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Msg("read status failed")
		WriteError(w, http.StatusInternalServerError, "failed to read status")
		return
	}
	if row == nil {
		WriteError(w, http.StatusNotFound, "no processing status for media")
		return
	}
	WriteJSON(w, http.StatusOK, row)
}
