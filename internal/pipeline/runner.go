package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/clipworks/clip-engine/internal/database"
	"github.com/clipworks/clip-engine/internal/highlight"
	"github.com/clipworks/clip-engine/internal/media"
	"github.com/clipworks/clip-engine/internal/metrics"
	"github.com/clipworks/clip-engine/internal/transcribe"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RunStore is the database surface a processing run needs.
// Implemented by *database.DB.
type RunStore interface {
	GetMedia(ctx context.Context, id uuid.UUID) (*database.MediaRow, error)
	SetMediaFile(ctx context.Context, id uuid.UUID, filename, title, mediaType, path string) error
	SetMediaThumbnail(ctx context.Context, id uuid.UUID, path string) error
	SetMediaDuration(ctx context.Context, id uuid.UUID, seconds float64) error
	ResetTranscript(ctx context.Context, mediaID uuid.UUID) error
	ListSegments(ctx context.Context, mediaID uuid.UUID) ([]database.SegmentRow, error)
}

// Prober reports a media file's duration in seconds.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Fetcher downloads source media from a URL into local storage.
// Satisfied by *media.YtDlp.
type Fetcher interface {
	Fetch(ctx context.Context, url string, mediaID uuid.UUID) (path, title string, err error)
}

// Thumbnailer captures a preview frame from a video file.
// Satisfied by media.FFmpegThumbnailer.
type Thumbnailer interface {
	Thumbnail(ctx context.Context, videoPath string) (string, error)
}

// Transcriber runs a full transcription for one media item.
// Satisfied by *transcribe.Engine.
type Transcriber interface {
	Run(ctx context.Context, mediaID uuid.UUID, srcPath string, duration float64) (string, error)
}

// CandidatesFunc receives highlight candidates after scoring. Used to publish
// them; must not block.
type CandidatesFunc func(mediaID uuid.UUID, cands []highlight.Candidate)

// RunnerOptions configures the pipeline runner.
type RunnerOptions struct {
	Store   RunStore
	Tracker *Tracker
	Probe   Prober
	Fetch   Fetcher     // nil disables URL ingest runs
	Thumbs  Thumbnailer // nil skips thumbnail capture

	// Engine is the template for per-run transcription engines; OnProgress
	// is overwritten per run to feed the tracker.
	Engine transcribe.EngineOptions

	// NewEngine overrides engine construction. Nil means build from Engine.
	NewEngine func(onProgress transcribe.ProgressFunc) Transcriber

	Scorer       highlight.Scorer // nil skips the analyzing stage
	OnCandidates CandidatesFunc   // nil discards candidates beyond logging

	Log zerolog.Logger
}

// Runner owns one goroutine per media processing run: probe, transcribe,
// optionally score highlights, then mark the run complete. Runs for
// different media items are fully independent; a media item has at most one
// active run.
type Runner struct {
	opts RunnerOptions
	log  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	active map[uuid.UUID]context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a pipeline runner. Runs launched by Start are children
// of ctx; cancelling it stops every active run.
func NewRunner(ctx context.Context, opts RunnerOptions) *Runner {
	rctx, cancel := context.WithCancel(ctx)
	return &Runner{
		opts:   opts,
		log:    opts.Log,
		ctx:    rctx,
		cancel: cancel,
		active: make(map[uuid.UUID]context.CancelFunc),
	}
}

// Start launches a processing run for the media item in its own goroutine.
// Returns an error if a run is already active for it.
func (r *Runner) Start(mediaID uuid.UUID, srcPath string) error {
	r.mu.Lock()
	if _, ok := r.active[mediaID]; ok {
		r.mu.Unlock()
		return fmt.Errorf("media %s already processing", mediaID)
	}
	ctx, cancel := context.WithCancel(r.ctx)
	r.active[mediaID] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.active, mediaID)
			r.mu.Unlock()
		}()
		r.process(ctx, mediaID, srcPath)
	}()
	return nil
}

// Cancel stops an active run before its next chunk. Returns false if no run
// is active for the media item.
func (r *Runner) Cancel(mediaID uuid.UUID) bool {
	r.mu.Lock()
	cancel, ok := r.active[mediaID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Active reports whether the media item has a run in flight.
func (r *Runner) Active(mediaID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[mediaID]
	return ok
}

// Shutdown cancels all runs and waits for their goroutines, bounded by ctx.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) process(ctx context.Context, mediaID uuid.UUID, srcPath string) {
	tracker := r.opts.Tracker
	log := r.log.With().Str("media_id", mediaID.String()).Logger()

	fail := func(outcome, message string) {
		// The run context may already be cancelled; the terminal write must
		// still land.
		wctx, wcancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer wcancel()
		if err := tracker.Fail(wctx, mediaID, message); err != nil {
			log.Error().Err(err).Msg("failed to record terminal error")
		}
		metrics.RunsTotal.WithLabelValues(outcome).Inc()
	}

	row, err := r.opts.Store.GetMedia(ctx, mediaID)
	if err != nil {
		fail("error", fmt.Sprintf("Media lookup failed: %v", err))
		return
	}
	if row == nil {
		fail("error", "Media no longer exists")
		return
	}

	if srcPath == "" {
		srcPath = row.FilePath
	}
	mediaType := row.MediaType

	if srcPath == "" {
		// URL ingest: the row was created without a file and the download
		// runs here, as the first stage of processing.
		if row.SourceURL == nil {
			fail("error", "Media has no file and no source URL")
			return
		}
		if r.opts.Fetch == nil {
			fail("error", "URL ingest is not configured")
			return
		}
		if err := tracker.Advance(ctx, mediaID, StageDownloading, "Downloading media", nil); err != nil {
			log.Error().Err(err).Msg("advance failed")
		}
		path, title, err := r.opts.Fetch.Fetch(ctx, *row.SourceURL, mediaID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fail("cancelled", "Processing cancelled")
			} else {
				fail("error", fmt.Sprintf("Download failed: %v", err))
			}
			return
		}
		mediaType = media.TypeFor(path)
		if err := r.opts.Store.SetMediaFile(ctx, mediaID, filepath.Base(path), title, mediaType, path); err != nil {
			fail("error", fmt.Sprintf("Could not record downloaded file: %v", err))
			return
		}
		srcPath = path
		log.Info().Str("path", path).Str("media_type", mediaType).Msg("download finished")
	}

	duration := 0.0
	if row.Duration != nil {
		duration = *row.Duration
	} else {
		if err := tracker.Advance(ctx, mediaID, StageDownloading, "Preparing media", nil); err != nil {
			log.Error().Err(err).Msg("advance failed")
		}
		d, err := r.opts.Probe.Duration(ctx, srcPath)
		if err != nil {
			fail("error", fmt.Sprintf("Could not determine media duration: %v", err))
			return
		}
		duration = d
		if err := r.opts.Store.SetMediaDuration(ctx, mediaID, d); err != nil {
			fail("error", fmt.Sprintf("Could not record media duration: %v", err))
			return
		}
	}

	if r.opts.Thumbs != nil && mediaType == "video" && row.ThumbnailPath == nil {
		// Best effort; a missing preview frame never fails the run.
		if thumb, err := r.opts.Thumbs.Thumbnail(ctx, srcPath); err != nil {
			log.Warn().Err(err).Msg("thumbnail capture failed")
		} else if err := r.opts.Store.SetMediaThumbnail(ctx, mediaID, thumb); err != nil {
			log.Warn().Err(err).Msg("thumbnail write failed")
		}
	}

	if err := r.opts.Store.ResetTranscript(ctx, mediaID); err != nil {
		fail("error", fmt.Sprintf("Could not reset transcript: %v", err))
		return
	}
	if err := tracker.Advance(ctx, mediaID, StageTranscribing, "Starting transcription", nil); err != nil {
		log.Error().Err(err).Msg("advance failed")
	}

	onProgress := func(pctx context.Context, chunk, total int, message string) {
		// Fraction of chunks already finished; the message names the one in
		// flight. Only real chunk counts ever reach here.
		completed := float64(chunk-1) / float64(total)
		if err := tracker.Advance(pctx, mediaID, StageTranscribing, message, &completed); err != nil {
			log.Warn().Err(err).Msg("progress write failed")
		}
	}

	engine := r.buildEngine(onProgress)
	lang, err := engine.Run(ctx, mediaID, srcPath, duration)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fail("cancelled", "Processing cancelled")
		} else {
			fail("error", fmt.Sprintf("Transcription failed: %v", err))
		}
		return
	}
	log.Info().Str("language", lang).Msg("transcription finished")

	if r.opts.Scorer == nil {
		if err := tracker.Advance(ctx, mediaID, StageComplete, "Processing complete", nil); err != nil {
			log.Error().Err(err).Msg("advance failed")
		}
		metrics.RunsTotal.WithLabelValues("complete").Inc()
		return
	}

	if err := tracker.Advance(ctx, mediaID, StageAnalyzing, "Scoring highlights", nil); err != nil {
		log.Error().Err(err).Msg("advance failed")
	}
	segs, err := r.opts.Store.ListSegments(ctx, mediaID)
	if err != nil {
		fail("error", fmt.Sprintf("Could not load transcript for scoring: %v", err))
		return
	}
	cands, err := r.opts.Scorer.Score(ctx, segs)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fail("cancelled", "Processing cancelled")
		} else {
			fail("error", fmt.Sprintf("Highlight scoring failed: %v", err))
		}
		return
	}
	log.Info().Int("candidates", len(cands)).Msg("highlight scoring finished")
	if r.opts.OnCandidates != nil {
		r.opts.OnCandidates(mediaID, cands)
	}

	msg := fmt.Sprintf("Processing complete (%d highlight candidates)", len(cands))
	if err := tracker.Advance(ctx, mediaID, StageComplete, msg, nil); err != nil {
		log.Error().Err(err).Msg("advance failed")
	}
	metrics.RunsTotal.WithLabelValues("complete").Inc()
}

func (r *Runner) buildEngine(onProgress transcribe.ProgressFunc) Transcriber {
	if r.opts.NewEngine != nil {
		return r.opts.NewEngine(onProgress)
	}
	o := r.opts.Engine
	o.OnProgress = onProgress
	return transcribe.NewEngine(o)
}
