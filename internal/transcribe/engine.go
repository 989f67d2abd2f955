package transcribe

import (
	"context"
	"fmt"
	"time"

	"github.com/clipworks/clip-engine/internal/database"
	"github.com/clipworks/clip-engine/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SegmentStore is where the engine appends merged segments. Implemented by
// *database.DB; tests use an in-memory fake.
type SegmentStore interface {
	AppendSegments(ctx context.Context, mediaID uuid.UUID, segs []database.SegmentRow) error
	MarkTranscriptComplete(ctx context.Context, mediaID uuid.UUID, language string) error
}

// Extractor extracts a bounded audio sub-range from a source file, returning
// the path of a temporary file and a cleanup func.
type Extractor interface {
	ExtractRange(ctx context.Context, srcPath string, start, duration float64) (string, func(), error)
}

// ProgressFunc reports exact chunk progress: chunk is 1-based, total is the
// chunk count. It is only called when there is a real countable denominator.
type ProgressFunc func(ctx context.Context, chunk, total int, message string)

// EngineOptions configures the chunked transcription engine.
type EngineOptions struct {
	Provider Provider
	Store    SegmentStore
	Extract  Extractor

	Window  float64 // chunk window in seconds
	Overlap float64 // trailing overlap margin in seconds

	MaxRetries     int           // attempts per chunk
	RetryBase      time.Duration // backoff base: base·2^attempt
	RetryCap       time.Duration // backoff ceiling
	AttemptTimeout time.Duration // per-attempt deadline for the provider call

	Language       string
	AssignSpeakers bool
	OnProgress     ProgressFunc
	Log            zerolog.Logger
}

// Engine produces a complete, ordered transcript for media of arbitrary
// length. Chunks are processed strictly in order, since the overlap merge
// depends on seeing chunk k before chunk k+1. A single run never interleaves
// with itself. Different media items may run concurrently; each run touches
// only its own transcript.
type Engine struct {
	opts EngineOptions
	log  zerolog.Logger
}

// NewEngine creates a chunked transcription engine.
func NewEngine(opts EngineOptions) *Engine {
	if opts.Window <= 0 {
		opts.Window = 600
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 2 * time.Second
	}
	return &Engine{opts: opts, log: opts.Log}
}

// Run transcribes the media at srcPath and appends all segments to the store,
// marking the transcript complete at the end. On any chunk exhausting its
// retries the run fails as a whole: already-appended segments stay queryable
// for diagnostics, but the transcript is never marked complete. Cancellation
// is honored between chunks, not mid-chunk.
//
// Returns the detected language.
func (e *Engine) Run(ctx context.Context, mediaID uuid.UUID, srcPath string, duration float64) (string, error) {
	chunks := PlanChunks(duration, e.opts.Window, e.opts.Overlap)
	if len(chunks) == 0 {
		return "", fmt.Errorf("media %s has no usable duration (%.2fs)", mediaID, duration)
	}
	total := len(chunks)

	e.log.Info().
		Str("media_id", mediaID.String()).
		Float64("duration", duration).
		Int("chunks", total).
		Msg("transcription run starting")

	lang := e.opts.Language
	speakers := &speakerAssigner{current: 1}
	var tail []database.SegmentRow
	var prevEnd float64

	for _, ch := range chunks {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("cancelled before chunk %d/%d: %w", ch.Index+1, total, err)
		}

		e.progress(ctx, ch.Index+1, total, fmt.Sprintf(
			"Transcribing chunk %d/%d (%s - %s)",
			ch.Index+1, total, formatClock(ch.Start), formatClock(ch.End()),
		))

		path := srcPath
		cleanup := func() {}
		if total > 1 {
			p, c, err := e.opts.Extract.ExtractRange(ctx, srcPath, ch.Start, ch.Duration)
			if err != nil {
				return "", fmt.Errorf("extract chunk %d/%d [%s - %s]: %w",
					ch.Index+1, total, formatClock(ch.Start), formatClock(ch.End()), err)
			}
			path, cleanup = p, c
		}

		resp, err := e.transcribeWithRetry(ctx, path)
		cleanup()
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d [%s - %s]: %w",
				ch.Index+1, total, formatClock(ch.Start), formatClock(ch.End()), err)
		}

		if ch.Index == 0 && resp.Language != "" {
			lang = resp.Language
		}

		rows := absoluteRows(resp.Segments, ch.Start)
		rows = dedupeOverlap(tail, rows, prevEnd)
		if e.opts.AssignSpeakers {
			speakers.assign(rows)
		}

		if err := e.opts.Store.AppendSegments(ctx, mediaID, rows); err != nil {
			return "", fmt.Errorf("append chunk %d/%d: %w", ch.Index+1, total, err)
		}

		metrics.ChunksTranscribedTotal.Inc()
		e.log.Debug().
			Str("media_id", mediaID.String()).
			Int("chunk", ch.Index+1).
			Int("total", total).
			Int("segments", len(rows)).
			Msg("chunk transcribed")

		tail = rows
		prevEnd = ch.End()
	}

	if err := e.opts.Store.MarkTranscriptComplete(ctx, mediaID, lang); err != nil {
		return "", fmt.Errorf("mark transcript complete: %w", err)
	}

	e.log.Info().Str("media_id", mediaID.String()).Str("language", lang).Msg("transcription run complete")
	return lang, nil
}

func (e *Engine) progress(ctx context.Context, chunk, total int, msg string) {
	if e.opts.OnProgress != nil {
		e.opts.OnProgress(ctx, chunk, total, msg)
	}
}

// transcribeWithRetry invokes the provider with up to MaxRetries attempts and
// exponential backoff. A timeout counts as a transient failure; cancellation
// of the run context stops retrying immediately.
func (e *Engine) transcribeWithRetry(ctx context.Context, path string) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt < e.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(e.opts.RetryBase, e.opts.RetryCap, attempt-1)
			metrics.TranscriptionRetriesTotal.Inc()
			e.log.Warn().Err(lastErr).Int("attempt", attempt).Dur("backoff", delay).Msg("transcription attempt failed, retrying")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		actx := ctx
		cancel := context.CancelFunc(func() {})
		if e.opts.AttemptTimeout > 0 {
			actx, cancel = context.WithTimeout(ctx, e.opts.AttemptTimeout)
		}
		resp, err := e.opts.Provider.Transcribe(actx, path, TranscribeOpts{Language: e.opts.Language})
		cancel()
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("transcription failed after %d attempts: %w", e.opts.MaxRetries, lastErr)
}

// backoffDelay computes base·2^n capped at max (0 = uncapped).
func backoffDelay(base, max time.Duration, n int) time.Duration {
	d := base
	for i := 0; i < n; i++ {
		d *= 2
		if max > 0 && d >= max {
			return max
		}
	}
	if max > 0 && d > max {
		return max
	}
	return d
}

// speakerAssigner carries the gap heuristic state across chunks so speaker
// labels stay continuous through the whole run.
type speakerAssigner struct {
	current int
	prevEnd float64
}

func (a *speakerAssigner) assign(rows []database.SegmentRow) {
	if a.current == 0 {
		a.current = 1
	}
	for i := range rows {
		gap := rows[i].Start - a.prevEnd
		if gap > 1.5 {
			a.current = 3 - a.current
		} else if gap > 0.8 && len(rows[i].Text) > 50 {
			a.current = 3 - a.current
		}
		label := speakerLabel(a.current)
		rows[i].Speaker = &label
		a.prevEnd = rows[i].End
	}
}

// formatClock renders seconds as m:ss for chunk progress messages.
func formatClock(sec float64) string {
	s := int(sec)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
