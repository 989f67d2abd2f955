package api

import (
	"context"
	"net/http"

	"github.com/clipworks/clip-engine/internal/clips"
	"github.com/clipworks/clip-engine/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TranscriptStore is the database surface for transcript reads.
type TranscriptStore interface {
	GetTranscript(ctx context.Context, mediaID uuid.UUID) (*database.TranscriptRow, error)
	ListSegments(ctx context.Context, mediaID uuid.UUID) ([]database.SegmentRow, error)
	SegmentsInRange(ctx context.Context, mediaID uuid.UUID, start, end float64) ([]database.SegmentRow, error)
}

// TranscriptHandler serves transcript and caption reads.
type TranscriptHandler struct {
	store TranscriptStore
	log   zerolog.Logger
}

// NewTranscriptHandler creates the transcript endpoints handler.
func NewTranscriptHandler(store TranscriptStore, log zerolog.Logger) *TranscriptHandler {
	return &TranscriptHandler{store: store, log: log}
}

// Routes registers the transcript endpoints.
func (h *TranscriptHandler) Routes(r chi.Router) {
	r.Get("/media/{id}/transcript", h.Get)
	r.Get("/media/{id}/captions", h.Captions)
}

// TranscriptResponse is the full transcript read.
type TranscriptResponse struct {
	MediaID  uuid.UUID             `json:"media_id"`
	Language string                `json:"language"`
	Complete bool                  `json:"complete"`
	Segments []database.SegmentRow `json:"segments"`
}

// Get handles GET /api/v1/media/{id}/transcript: the ordered segment list
// with the transcript's completion state. During an in-progress run it
// returns the segments appended so far with complete=false.
func (h *TranscriptHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tr, err := h.store.GetTranscript(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Msg("get transcript failed")
		WriteError(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}
	if tr == nil {
		WriteError(w, http.StatusNotFound, "no transcript for media")
		return
	}

	segs, err := h.store.ListSegments(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Msg("list segments failed")
		WriteError(w, http.StatusInternalServerError, "failed to load segments")
		return
	}

	WriteJSON(w, http.StatusOK, TranscriptResponse{
		MediaID:  id,
		Language: tr.Language,
		Complete: tr.Complete,
		Segments: segs,
	})
}

// Captions handles GET /api/v1/media/{id}/captions?start=&end=: the rebased,
// clip-local caption projection for an arbitrary window. Recomputed on every
// call; nothing about the window is persisted.
func (h *TranscriptHandler) Captions(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	start, ok, err := QueryFloat(r, "start")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		WriteError(w, http.StatusBadRequest, "missing start parameter")
		return
	}
	end, ok, err := QueryFloat(r, "end")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		WriteError(w, http.StatusBadRequest, "missing end parameter")
		return
	}
	if end <= start || start < 0 {
		WriteError(w, http.StatusBadRequest, "end must be after start and start must not be negative")
		return
	}

	segs, err := h.store.SegmentsInRange(r.Context(), id, start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("segments in range failed")
		WriteError(w, http.StatusInternalServerError, "failed to load segments")
		return
	}

	captions := clips.Rebase(segs, start, end)
	if captions == nil {
		captions = []clips.RebasedCaption{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"media_id": id,
		"start":    start,
		"end":      end,
		"captions": captions,
	})
}
