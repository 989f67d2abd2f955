package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/clipworks/clip-engine/internal/clips"
	"github.com/clipworks/clip-engine/internal/database"
	"github.com/clipworks/clip-engine/internal/pipeline"
	"github.com/clipworks/clip-engine/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type memStatusStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]database.StatusRow
}

func newMemStatusStore() *memStatusStore {
	return &memStatusStore{rows: make(map[uuid.UUID]database.StatusRow)}
}

func (s *memStatusStore) UpsertStatus(ctx context.Context, row *database.StatusRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[row.MediaID] = *row
	return nil
}

func (s *memStatusStore) GetStatus(ctx context.Context, mediaID uuid.UUID) (*database.StatusRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[mediaID]; ok {
		return &row, nil
	}
	return nil, nil
}

type fakeMediaStore struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]*database.MediaRow
	clips    map[uuid.UUID][]database.ClipRow
	inserted int
	deleted  int
}

func newFakeMediaStore() *fakeMediaStore {
	return &fakeMediaStore{
		rows:  make(map[uuid.UUID]*database.MediaRow),
		clips: make(map[uuid.UUID][]database.ClipRow),
	}
}

func (s *fakeMediaStore) InsertMedia(ctx context.Context, m *database.MediaRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.CreatedAt = time.Now()
	s.rows[m.ID] = m
	s.inserted++
	return nil
}

func (s *fakeMediaStore) GetMedia(ctx context.Context, id uuid.UUID) (*database.MediaRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id], nil
}

func (s *fakeMediaStore) ListMedia(ctx context.Context, limit, offset int) ([]database.MediaRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]database.MediaRow, 0, len(s.rows))
	for _, m := range s.rows {
		out = append(out, *m)
	}
	return out, nil
}

func (s *fakeMediaStore) ListClips(ctx context.Context, mediaID uuid.UUID) ([]database.ClipRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clips[mediaID], nil
}

func (s *fakeMediaStore) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	s.deleted++
	return nil
}

type fakeRuns struct {
	mu        sync.Mutex
	started   []uuid.UUID
	cancelled []uuid.UUID
	active    map[uuid.UUID]bool
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{active: make(map[uuid.UUID]bool)}
}

func (r *fakeRuns) Start(mediaID uuid.UUID, srcPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, mediaID)
	return nil
}

func (r *fakeRuns) Cancel(mediaID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, mediaID)
	return r.active[mediaID]
}

func (r *fakeRuns) Active(mediaID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[mediaID]
}

func newTestTracker() *pipeline.Tracker {
	return pipeline.NewTracker(newMemStatusStore(), nil, zerolog.Nop())
}

func mediaRouter(t *testing.T, store *fakeMediaStore, runs *fakeRuns) (chi.Router, *pipeline.Tracker) {
	t.Helper()
	tracker := newTestTracker()
	blobs := storage.NewLocalStore(t.TempDir())
	h := NewMediaHandler(store, tracker, runs, blobs, 64, zerolog.Nop())
	r := chi.NewRouter()
	h.Routes(r)
	return r, tracker
}

func multipartUpload(t *testing.T, filename string, body []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(body)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadStartsRun(t *testing.T) {
	store := newFakeMediaStore()
	runs := newFakeRuns()
	router, tracker := mediaRouter(t, store, runs)

	body, ctype := multipartUpload(t, "episode one.mp3", []byte("fake audio"))
	req := httptest.NewRequest("POST", "/media", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var row database.MediaRow
	if err := json.Unmarshal(w.Body.Bytes(), &row); err != nil {
		t.Fatal(err)
	}
	if row.MediaType != "audio" || row.SourceType != "upload" {
		t.Errorf("row = %+v", row)
	}
	if row.FilePath == "" {
		t.Error("expected a local file path")
	}
	if store.inserted != 1 {
		t.Errorf("inserted = %d", store.inserted)
	}
	if len(runs.started) != 1 || runs.started[0] != row.ID {
		t.Errorf("started = %v", runs.started)
	}

	st, err := tracker.Read(context.Background(), row.ID)
	if err != nil || st == nil {
		t.Fatalf("status after upload: %v %v", st, err)
	}
	if st.Stage != string(pipeline.StagePending) {
		t.Errorf("stage = %s", st.Stage)
	}
}

func TestUploadFromURLStartsRun(t *testing.T) {
	store := newFakeMediaStore()
	runs := newFakeRuns()
	router, tracker := mediaRouter(t, store, runs)

	body := bytes.NewBufferString(`{"url": "https://www.youtube.com/watch?v=abc123"}`)
	req := httptest.NewRequest("POST", "/media/url", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var row database.MediaRow
	if err := json.Unmarshal(w.Body.Bytes(), &row); err != nil {
		t.Fatal(err)
	}
	if row.SourceType != "url" {
		t.Errorf("source type = %q", row.SourceType)
	}
	if row.SourceURL == nil || *row.SourceURL != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("source url = %v", row.SourceURL)
	}
	if row.FilePath != "" {
		t.Errorf("file path = %q, must be empty until the download runs", row.FilePath)
	}
	if len(runs.started) != 1 || runs.started[0] != row.ID {
		t.Errorf("started = %v", runs.started)
	}

	st, err := tracker.Read(context.Background(), row.ID)
	if err != nil || st == nil {
		t.Fatalf("status after ingest: %v %v", st, err)
	}
	if st.Stage != string(pipeline.StagePending) {
		t.Errorf("stage = %s", st.Stage)
	}
}

func TestUploadFromURLRejectsBadInput(t *testing.T) {
	router, _ := mediaRouter(t, newFakeMediaStore(), newFakeRuns())

	for _, body := range []string{
		`{}`,
		`{"url": ""}`,
		`{"url": "ftp://example.com/file.mp4"}`,
		`{"url": "not a url at all\x7f"}`,
		`not json`,
	} {
		req := httptest.NewRequest("POST", "/media/url", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	router, _ := mediaRouter(t, newFakeMediaStore(), newFakeRuns())

	body, ctype := multipartUpload(t, "notes.txt", []byte("not media"))
	req := httptest.NewRequest("POST", "/media", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d", w.Code)
	}
}

func TestUploadMissingFileField(t *testing.T) {
	router, _ := mediaRouter(t, newFakeMediaStore(), newFakeRuns())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("name", "no file here")
	mw.Close()
	req := httptest.NewRequest("POST", "/media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestGetMediaNotFound(t *testing.T) {
	router, _ := mediaRouter(t, newFakeMediaStore(), newFakeRuns())

	req := httptest.NewRequest("GET", "/media/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/media/not-a-uuid", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad uuid status = %d", w.Code)
	}
}

func TestDeleteMediaCancelsRun(t *testing.T) {
	store := newFakeMediaStore()
	runs := newFakeRuns()
	router, _ := mediaRouter(t, store, runs)

	id := uuid.New()
	store.rows[id] = &database.MediaRow{ID: id, Filename: "a.mp3"}

	req := httptest.NewRequest("DELETE", "/media/"+id.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if store.deleted != 1 {
		t.Errorf("deleted = %d", store.deleted)
	}
	if len(runs.cancelled) != 1 || runs.cancelled[0] != id {
		t.Errorf("cancelled = %v", runs.cancelled)
	}
}

func TestDeleteMediaRemovesClipFiles(t *testing.T) {
	store := newFakeMediaStore()
	runs := newFakeRuns()
	router, _ := mediaRouter(t, store, runs)

	dir := t.TempDir()
	clipPath := filepath.Join(dir, uuid.NewString()+".mp4")
	if err := os.WriteFile(clipPath, []byte("rendered clip"), 0o644); err != nil {
		t.Fatal(err)
	}

	id := uuid.New()
	store.rows[id] = &database.MediaRow{ID: id, Filename: "a.mp3"}
	store.clips[id] = []database.ClipRow{
		{ID: uuid.New(), MediaID: id, FilePath: clipPath},
		{ID: uuid.New(), MediaID: id, FilePath: filepath.Join(dir, "already-gone.mp4")},
	}

	req := httptest.NewRequest("DELETE", "/media/"+id.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if _, err := os.Stat(clipPath); !os.IsNotExist(err) {
		t.Errorf("rendered clip file still on disk: %v", err)
	}
}

func TestThumbnailEndpoint(t *testing.T) {
	store := newFakeMediaStore()
	router, _ := mediaRouter(t, store, newFakeRuns())

	thumb := filepath.Join(t.TempDir(), "thumb.jpg")
	if err := os.WriteFile(thumb, []byte("jpeg bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	withThumb := uuid.New()
	store.rows[withThumb] = &database.MediaRow{ID: withThumb, MediaType: "video", ThumbnailPath: &thumb}
	audioOnly := uuid.New()
	store.rows[audioOnly] = &database.MediaRow{ID: audioOnly, MediaType: "audio"}

	req := httptest.NewRequest("GET", "/media/"+withThumb.String()+"/thumbnail", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "jpeg bytes" {
		t.Errorf("body = %q", w.Body.String())
	}

	req = httptest.NewRequest("GET", "/media/"+audioOnly.String()+"/thumbnail", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("audio thumbnail status = %d, want 404", w.Code)
	}
}

func TestReprocessConflictsWhileActive(t *testing.T) {
	store := newFakeMediaStore()
	runs := newFakeRuns()
	router, _ := mediaRouter(t, store, runs)

	id := uuid.New()
	store.rows[id] = &database.MediaRow{ID: id, Filename: "a.mp3", FilePath: "/data/a.mp3"}
	runs.active[id] = true

	req := httptest.NewRequest("POST", "/media/"+id.String()+"/reprocess", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("active status = %d", w.Code)
	}

	runs.active[id] = false
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/media/"+id.String()+"/reprocess", nil))
	if w.Code != http.StatusAccepted {
		t.Fatalf("idle status = %d, body %s", w.Code, w.Body.String())
	}
	if len(runs.started) != 1 {
		t.Errorf("started = %v", runs.started)
	}
}

func TestStatusEndpoint(t *testing.T) {
	tracker := newTestTracker()
	h := NewStatusHandler(tracker, zerolog.Nop())
	router := chi.NewRouter()
	h.Routes(router)

	id := uuid.New()
	req := httptest.NewRequest("GET", "/media/"+id.String()+"/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown media status = %d", w.Code)
	}

	if err := tracker.Reset(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	progress := 0.5
	if err := tracker.Advance(context.Background(), id, pipeline.StageTranscribing, "chunk 3/6", &progress); err != nil {
		t.Fatal(err)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/media/"+id.String()+"/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var row database.StatusRow
	if err := json.Unmarshal(w.Body.Bytes(), &row); err != nil {
		t.Fatal(err)
	}
	if row.Stage != string(pipeline.StageTranscribing) || row.Message != "chunk 3/6" {
		t.Errorf("row = %+v", row)
	}
	if row.Progress == nil || *row.Progress != 0.5 {
		t.Errorf("progress = %v", row.Progress)
	}
}

type fakeTranscriptStore struct {
	transcript *database.TranscriptRow
	segments   []database.SegmentRow
}

func (s *fakeTranscriptStore) GetTranscript(ctx context.Context, mediaID uuid.UUID) (*database.TranscriptRow, error) {
	return s.transcript, nil
}

func (s *fakeTranscriptStore) ListSegments(ctx context.Context, mediaID uuid.UUID) ([]database.SegmentRow, error) {
	return s.segments, nil
}

func (s *fakeTranscriptStore) SegmentsInRange(ctx context.Context, mediaID uuid.UUID, start, end float64) ([]database.SegmentRow, error) {
	var out []database.SegmentRow
	for _, seg := range s.segments {
		if seg.End > start && seg.Start < end {
			out = append(out, seg)
		}
	}
	return out, nil
}

func transcriptRouter(store *fakeTranscriptStore) chi.Router {
	h := NewTranscriptHandler(store, zerolog.Nop())
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func TestTranscriptEndpoint(t *testing.T) {
	id := uuid.New()
	store := &fakeTranscriptStore{
		transcript: &database.TranscriptRow{MediaID: id, Language: "en", Complete: true},
		segments: []database.SegmentRow{
			{Seq: 1, Start: 0, End: 5, Text: "hello"},
			{Seq: 2, Start: 5, End: 9, Text: "world"},
		},
	}
	router := transcriptRouter(store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/media/"+id.String()+"/transcript", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp TranscriptResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Complete || resp.Language != "en" || len(resp.Segments) != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestTranscriptNotFound(t *testing.T) {
	router := transcriptRouter(&fakeTranscriptStore{})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/media/"+uuid.NewString()+"/transcript", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestCaptionsEndpointRebases(t *testing.T) {
	id := uuid.New()
	store := &fakeTranscriptStore{
		segments: []database.SegmentRow{
			{Seq: 1, Start: 115.0, End: 119.0, Text: "before"},
			{Seq: 2, Start: 125.5, End: 140.2, Text: "inside"},
		},
	}
	router := transcriptRouter(store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET",
		fmt.Sprintf("/media/%s/captions?start=120&end=130", id), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Captions []clips.RebasedCaption `json:"captions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Captions) != 1 {
		t.Fatalf("captions = %+v", resp.Captions)
	}
	c := resp.Captions[0]
	if c.Start != 5.5 || c.End != 10.0 {
		t.Errorf("rebased window = [%v, %v]", c.Start, c.End)
	}
	if c.AbsoluteStart != 125.5 {
		t.Errorf("absolute start = %v", c.AbsoluteStart)
	}
}

func TestCaptionsEndpointValidation(t *testing.T) {
	router := transcriptRouter(&fakeTranscriptStore{})
	id := uuid.NewString()

	for _, q := range []string{"", "start=10", "end=20", "start=20&end=10", "start=-1&end=5", "start=abc&end=5"} {
		target := "/media/" + id + "/captions"
		if q != "" {
			target += "?" + q
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("query %q: status = %d", q, w.Code)
		}
	}
}

type fakeMaterializer struct {
	clip    *database.ClipRow
	created bool
	err     error
	calls   []clips.Request
}

func (m *fakeMaterializer) Materialize(ctx context.Context, req clips.Request) (*database.ClipRow, bool, error) {
	m.calls = append(m.calls, req)
	return m.clip, m.created, m.err
}

type fakeClipLister struct {
	media *database.MediaRow
	clips []database.ClipRow
}

func (s *fakeClipLister) GetMedia(ctx context.Context, id uuid.UUID) (*database.MediaRow, error) {
	return s.media, nil
}

func (s *fakeClipLister) ListClips(ctx context.Context, mediaID uuid.UUID) ([]database.ClipRow, error) {
	return s.clips, nil
}

func clipsRouter(store *fakeClipLister, mat *fakeMaterializer) chi.Router {
	h := NewClipsHandler(store, mat, nil, nil, zerolog.Nop())
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func materializeBody(t *testing.T, req MaterializeRequest) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(b)
}

func TestMaterializeCreated(t *testing.T) {
	id := uuid.New()
	clipID := uuid.New()
	store := &fakeClipLister{media: &database.MediaRow{ID: id, FilePath: "/data/a.mp4"}}
	mat := &fakeMaterializer{
		clip:    &database.ClipRow{ID: clipID, MediaID: id, Platform: "tiktok"},
		created: true,
	}
	router := clipsRouter(store, mat)

	req := httptest.NewRequest("POST", "/media/"+id.String()+"/clips",
		materializeBody(t, MaterializeRequest{Start: 10, End: 40, Platform: "tiktok", IncludeCaptions: true}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if len(mat.calls) != 1 {
		t.Fatalf("calls = %d", len(mat.calls))
	}
	call := mat.calls[0]
	if call.MediaID != id || call.SrcPath != "/data/a.mp4" || !call.IncludeCaptions {
		t.Errorf("request = %+v", call)
	}
}

func TestMaterializeDeduplicated(t *testing.T) {
	id := uuid.New()
	store := &fakeClipLister{media: &database.MediaRow{ID: id}}
	mat := &fakeMaterializer{clip: &database.ClipRow{ID: uuid.New(), MediaID: id}, created: false}
	router := clipsRouter(store, mat)

	req := httptest.NewRequest("POST", "/media/"+id.String()+"/clips",
		materializeBody(t, MaterializeRequest{Start: 10, End: 40, Platform: "tiktok"}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestMaterializeInvalidWindow(t *testing.T) {
	id := uuid.New()
	store := &fakeClipLister{media: &database.MediaRow{ID: id}}
	mat := &fakeMaterializer{err: errors.New("clip window exceeds platform limit")}
	router := clipsRouter(store, mat)

	req := httptest.NewRequest("POST", "/media/"+id.String()+"/clips",
		materializeBody(t, MaterializeRequest{Start: 0, End: 9999, Platform: "twitter"}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d", w.Code)
	}
}

func TestMaterializeMediaNotFound(t *testing.T) {
	router := clipsRouter(&fakeClipLister{}, &fakeMaterializer{})

	req := httptest.NewRequest("POST", "/media/"+uuid.NewString()+"/clips",
		materializeBody(t, MaterializeRequest{Start: 0, End: 30, Platform: "tiktok"}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestPlatformsEndpoint(t *testing.T) {
	router := clipsRouter(&fakeClipLister{}, &fakeMaterializer{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/platforms", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Platforms []clips.PlatformSpec `json:"platforms"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Platforms) != 7 {
		t.Errorf("platforms = %d", len(resp.Platforms))
	}
}
