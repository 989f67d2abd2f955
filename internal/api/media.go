package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/clipworks/clip-engine/internal/database"
	"github.com/clipworks/clip-engine/internal/media"
	"github.com/clipworks/clip-engine/internal/pipeline"
	"github.com/clipworks/clip-engine/internal/storage"
	"github.com/clipworks/clip-engine/internal/watch"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MediaStore is the database surface for media intake and lifecycle.
type MediaStore interface {
	InsertMedia(ctx context.Context, m *database.MediaRow) error
	GetMedia(ctx context.Context, id uuid.UUID) (*database.MediaRow, error)
	ListMedia(ctx context.Context, limit, offset int) ([]database.MediaRow, error)
	ListClips(ctx context.Context, mediaID uuid.UUID) ([]database.ClipRow, error)
	DeleteMedia(ctx context.Context, id uuid.UUID) error
}

// RunControl is the slice of the pipeline runner the API drives.
type RunControl interface {
	Start(mediaID uuid.UUID, srcPath string) error
	Cancel(mediaID uuid.UUID) bool
	Active(mediaID uuid.UUID) bool
}

// MediaHandler handles media intake, listing, and deletion.
type MediaHandler struct {
	store       MediaStore
	tracker     *pipeline.Tracker
	runs        RunControl
	blobs       storage.BlobStore
	maxUploadMB int64
	log         zerolog.Logger
}

// NewMediaHandler creates the media endpoints handler.
func NewMediaHandler(store MediaStore, tracker *pipeline.Tracker, runs RunControl, blobs storage.BlobStore, maxUploadMB int64, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		store:       store,
		tracker:     tracker,
		runs:        runs,
		blobs:       blobs,
		maxUploadMB: maxUploadMB,
		log:         log.With().Str("handler", "media").Logger(),
	}
}

// Routes registers the media endpoints.
func (h *MediaHandler) Routes(r chi.Router) {
	r.Post("/media", h.Upload)
	r.Post("/media/url", h.UploadFromURL)
	r.Get("/media", h.List)
	r.Get("/media/{id}", h.Get)
	r.Get("/media/{id}/thumbnail", h.Thumbnail)
	r.Delete("/media/{id}", h.Delete)
	r.Post("/media/{id}/reprocess", h.Reprocess)
}

// Upload handles POST /api/v1/media: a multipart "file" field with the
// source media. The file is stored, a media row and pending status are
// created, and a processing run starts immediately.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadMB << 20); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	original := filepath.Base(header.Filename)
	if !watch.IsMediaFile(original) {
		WriteError(w, http.StatusUnsupportedMediaType,
			fmt.Sprintf("unsupported file type %q", filepath.Ext(original)))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	id := uuid.New()
	key := MediaKey(id, original)
	if err := h.blobs.Save(r.Context(), key, data, header.Header.Get("Content-Type")); err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("store upload failed")
		WriteError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	path := h.blobs.LocalPath(key)
	if path == "" {
		WriteError(w, http.StatusInternalServerError, "stored file has no local path")
		return
	}

	row := &database.MediaRow{
		ID:               id,
		Filename:         filepath.Base(key),
		OriginalFilename: &original,
		MediaType:        media.TypeFor(original),
		SourceType:       "upload",
		FilePath:         path,
	}
	if err := h.store.InsertMedia(r.Context(), row); err != nil {
		h.log.Error().Err(err).Msg("insert media failed")
		WriteError(w, http.StatusInternalServerError, "failed to create media")
		return
	}

	if err := h.tracker.Reset(r.Context(), id); err != nil {
		h.log.Error().Err(err).Msg("init status failed")
	}
	if err := h.runs.Start(id, path); err != nil {
		h.log.Error().Err(err).Msg("start run failed")
	}

	h.log.Info().Str("media_id", id.String()).Str("filename", original).Int("bytes", len(data)).Msg("media uploaded")
	WriteJSON(w, http.StatusCreated, row)
}

// URLUploadRequest is the body of POST /api/v1/media/url.
type URLUploadRequest struct {
	URL string `json:"url"`
}

// UploadFromURL handles POST /api/v1/media/url: ingest media from a YouTube,
// X Spaces, or generic URL. The row is created immediately; the actual
// download happens inside the processing run, so the response is 202 and the
// caller polls status.
func (h *MediaHandler) UploadFromURL(w http.ResponseWriter, r *http.Request) {
	var req URLUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.URL == "" {
		WriteError(w, http.StatusBadRequest, "url is required")
		return
	}
	if err := media.ValidateSourceURL(req.URL); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := uuid.New()
	row := &database.MediaRow{
		ID:         id,
		Filename:   "",
		MediaType:  "video", // provisional until the download reveals the real type
		SourceType: "url",
		SourceURL:  &req.URL,
	}
	if err := h.store.InsertMedia(r.Context(), row); err != nil {
		h.log.Error().Err(err).Msg("insert media failed")
		WriteError(w, http.StatusInternalServerError, "failed to create media")
		return
	}

	if err := h.tracker.Reset(r.Context(), id); err != nil {
		h.log.Error().Err(err).Msg("init status failed")
	}
	if err := h.runs.Start(id, ""); err != nil {
		h.log.Error().Err(err).Msg("start run failed")
	}

	h.log.Info().Str("media_id", id.String()).Str("url", req.URL).Msg("url ingest started")
	WriteJSON(w, http.StatusAccepted, row)
}

// List handles GET /api/v1/media.
func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePagination(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := h.store.ListMedia(r.Context(), p.Limit, p.Offset)
	if err != nil {
		h.log.Error().Err(err).Msg("list media failed")
		WriteError(w, http.StatusInternalServerError, "failed to list media")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"media":  rows,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

// Get handles GET /api/v1/media/{id}.
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	row, err := h.store.GetMedia(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Msg("get media failed")
		WriteError(w, http.StatusInternalServerError, "failed to load media")
		return
	}
	if row == nil {
		WriteError(w, http.StatusNotFound, "media not found")
		return
	}
	WriteJSON(w, http.StatusOK, row)
}

// Thumbnail handles GET /api/v1/media/{id}/thumbnail, serving the preview
// frame captured during processing. Audio items have none.
func (h *MediaHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	row, err := h.store.GetMedia(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load media")
		return
	}
	if row == nil {
		WriteError(w, http.StatusNotFound, "media not found")
		return
	}
	if row.ThumbnailPath == nil {
		WriteError(w, http.StatusNotFound, "no thumbnail for this media")
		return
	}
	http.ServeFile(w, r, *row.ThumbnailPath)
}

// Delete handles DELETE /api/v1/media/{id}: cancels any active run, removes
// the database rows (transcript, status, and clips cascade), the stored
// source files, and any rendered clip files.
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	row, err := h.store.GetMedia(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load media")
		return
	}
	if row == nil {
		WriteError(w, http.StatusNotFound, "media not found")
		return
	}

	// Clip rows cascade away with the media row, so collect their rendered
	// file paths first.
	clips, err := h.store.ListClips(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Msg("list clips failed")
		WriteError(w, http.StatusInternalServerError, "failed to load clips")
		return
	}

	h.runs.Cancel(id)
	if err := h.store.DeleteMedia(r.Context(), id); err != nil {
		h.log.Error().Err(err).Msg("delete media failed")
		WriteError(w, http.StatusInternalServerError, "failed to delete media")
		return
	}
	h.tracker.Forget(id)

	for _, clip := range clips {
		if clip.FilePath == "" {
			continue
		}
		if err := os.Remove(clip.FilePath); err != nil && !os.IsNotExist(err) {
			h.log.Warn().Err(err).Str("path", clip.FilePath).Msg("remove clip file failed")
		}
	}
	if row.FilePath != "" {
		if err := os.RemoveAll(filepath.Dir(row.FilePath)); err != nil {
			h.log.Warn().Err(err).Str("path", row.FilePath).Msg("remove media files failed")
		}
	}

	h.log.Info().Str("media_id", id.String()).Msg("media deleted")
	w.WriteHeader(http.StatusNoContent)
}

// Reprocess handles POST /api/v1/media/{id}/reprocess: an explicit new run
// starting from pending. Rejected while a run is active.
func (h *MediaHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	row, err := h.store.GetMedia(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load media")
		return
	}
	if row == nil {
		WriteError(w, http.StatusNotFound, "media not found")
		return
	}
	if h.runs.Active(id) {
		WriteError(w, http.StatusConflict, "media is already processing")
		return
	}

	if err := h.tracker.Reset(r.Context(), id); err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to reset status")
		return
	}
	if err := h.runs.Start(id, row.FilePath); err != nil {
		WriteError(w, http.StatusConflict, err.Error())
		return
	}

	h.log.Info().Str("media_id", id.String()).Msg("reprocess started")
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
}

// MediaKey is the blob key for a source media file.
func MediaKey(id uuid.UUID, filename string) string {
	return fmt.Sprintf("media/%s/%s", id, sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
