package api

import (
	"context"
	"net/http"
	"os"

	"github.com/clipworks/clip-engine/internal/clips"
	"github.com/clipworks/clip-engine/internal/database"
	"github.com/clipworks/clip-engine/internal/events"
	"github.com/clipworks/clip-engine/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ClipMaterializer resolves candidate windows to stored clips.
// Satisfied by *clips.Materializer.
type ClipMaterializer interface {
	Materialize(ctx context.Context, req clips.Request) (*database.ClipRow, bool, error)
}

// ClipLister is the database surface for clip reads.
type ClipLister interface {
	GetMedia(ctx context.Context, id uuid.UUID) (*database.MediaRow, error)
	ListClips(ctx context.Context, mediaID uuid.UUID) ([]database.ClipRow, error)
}

// ClipsHandler serves clip materialization and listing.
type ClipsHandler struct {
	store    ClipLister
	mat      ClipMaterializer
	events   *events.Publisher
	uploader *storage.AsyncUploader // nil without S3
	log      zerolog.Logger
}

// NewClipsHandler creates the clip endpoints handler.
func NewClipsHandler(store ClipLister, mat ClipMaterializer, pub *events.Publisher, uploader *storage.AsyncUploader, log zerolog.Logger) *ClipsHandler {
	return &ClipsHandler{
		store:    store,
		mat:      mat,
		events:   pub,
		uploader: uploader,
		log:      log.With().Str("handler", "clips").Logger(),
	}
}

// Routes registers the clip endpoints.
func (h *ClipsHandler) Routes(r chi.Router) {
	r.Post("/media/{id}/clips", h.Materialize)
	r.Get("/media/{id}/clips", h.List)
	r.Get("/platforms", h.Platforms)
}

// MaterializeRequest is the POST body for clip materialization.
// Title is display metadata for the caller's own bookkeeping; it is not part
// of the clip's identity and is not stored.
type MaterializeRequest struct {
	Start           float64 `json:"start"`
	End             float64 `json:"end"`
	Platform        string  `json:"platform"`
	IncludeCaptions bool    `json:"include_captions"`
	Title           string  `json:"title,omitempty"`
}

// Materialize handles POST /api/v1/media/{id}/clips. Idempotent: repeating a
// request that describes an already-stored clip returns that clip with 200
// instead of rendering a new one.
func (h *ClipsHandler) Materialize(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req MaterializeRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	media, err := h.store.GetMedia(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load media")
		return
	}
	if media == nil {
		WriteError(w, http.StatusNotFound, "media not found")
		return
	}

	clip, created, err := h.mat.Materialize(r.Context(), clips.Request{
		MediaID:         id,
		SrcPath:         media.FilePath,
		Start:           req.Start,
		End:             req.End,
		Platform:        req.Platform,
		IncludeCaptions: req.IncludeCaptions,
	})
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if created {
		h.log.Info().
			Str("media_id", id.String()).
			Str("clip_id", clip.ID.String()).
			Str("platform", clip.Platform).
			Str("title", req.Title).
			Msg("clip materialized")
		h.events.PublishClip(clip)
		h.enqueueUpload(clip)
		WriteJSON(w, http.StatusCreated, clip)
		return
	}
	WriteJSON(w, http.StatusOK, clip)
}

// List handles GET /api/v1/media/{id}/clips.
func (h *ClipsHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := h.store.ListClips(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Msg("list clips failed")
		WriteError(w, http.StatusInternalServerError, "failed to list clips")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"clips": rows})
}

// Platforms handles GET /api/v1/platforms: the supported export targets.
func (h *ClipsHandler) Platforms(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"platforms": clips.Platforms()})
}

// enqueueUpload mirrors a freshly rendered clip to S3 in the background.
func (h *ClipsHandler) enqueueUpload(clip *database.ClipRow) {
	if h.uploader == nil {
		return
	}
	data, err := os.ReadFile(clip.FilePath)
	if err != nil {
		h.log.Warn().Err(err).Str("path", clip.FilePath).Msg("read rendered clip for upload failed")
		return
	}
	h.uploader.Enqueue("clips/"+clip.ID.String()+".mp4", data, "video/mp4")
}
