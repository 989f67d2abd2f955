package clips

import (
	"context"
	"fmt"
	"time"

	"github.com/clipworks/clip-engine/internal/database"
	"github.com/clipworks/clip-engine/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ClipStore is the database surface materialization needs.
// Implemented by *database.DB.
type ClipStore interface {
	GetClipByIdentity(ctx context.Context, mediaID uuid.UUID, identity string) (*database.ClipRow, error)
	InsertClip(ctx context.Context, c *database.ClipRow) (*database.ClipRow, error)
	SegmentsInRange(ctx context.Context, mediaID uuid.UUID, start, end float64) ([]database.SegmentRow, error)
}

// RenderRequest describes one clip render.
type RenderRequest struct {
	SrcPath  string
	ClipID   uuid.UUID
	Start    float64 // absolute seconds
	End      float64
	Spec     PlatformSpec
	Captions []RebasedCaption // clip-local; empty means no caption burn-in
}

// Renderer produces the clip file. Invoked only after the identity check
// missed, so an already-materialized clip is never re-rendered.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (string, error)
}

// Request is a candidate clip window to materialize.
type Request struct {
	MediaID         uuid.UUID
	SrcPath         string
	Start           float64 // absolute seconds
	End             float64
	Platform        string
	IncludeCaptions bool
}

// MaterializerOptions configures clip materialization.
type MaterializerOptions struct {
	Store      ClipStore
	Render     Renderer
	MinSeconds float64
	MaxSeconds float64
	Log        zerolog.Logger
}

// Materializer turns candidate windows into stored clip artifacts,
// at most one per content identity.
type Materializer struct {
	opts MaterializerOptions
	log  zerolog.Logger
}

// NewMaterializer creates a clip materializer.
func NewMaterializer(opts MaterializerOptions) *Materializer {
	return &Materializer{opts: opts, log: opts.Log}
}

// Materialize resolves a candidate window to a stored clip. If a clip with
// the same identity already exists it is returned unchanged, with created
// false, and nothing is rendered. Concurrent calls for the same identity
// converge on one row through the store's uniqueness guarantee.
func (m *Materializer) Materialize(ctx context.Context, req Request) (*database.ClipRow, bool, error) {
	spec, err := Platform(req.Platform)
	if err != nil {
		return nil, false, err
	}
	if err := ValidateWindow(spec, req.Start, req.End, m.opts.MinSeconds, m.opts.MaxSeconds); err != nil {
		return nil, false, err
	}

	segs, err := m.opts.Store.SegmentsInRange(ctx, req.MediaID, req.Start, req.End)
	if err != nil {
		return nil, false, fmt.Errorf("load segments: %w", err)
	}
	captions := Rebase(segs, req.Start, req.End)

	captionsText := ""
	if req.IncludeCaptions {
		captionsText = CaptionsText(captions)
	} else {
		captions = nil
	}

	identity := Identity(req.MediaID, req.Start, req.End, req.Platform, captionsText)
	if existing, err := m.opts.Store.GetClipByIdentity(ctx, req.MediaID, identity); err != nil {
		return nil, false, fmt.Errorf("identity lookup: %w", err)
	} else if existing != nil {
		metrics.ClipsDeduplicatedTotal.Inc()
		m.log.Debug().
			Str("media_id", req.MediaID.String()).
			Str("clip_id", existing.ID.String()).
			Msg("clip already materialized")
		return existing, false, nil
	}

	clipID, err := IDFromIdentity(identity)
	if err != nil {
		return nil, false, err
	}

	renderStart := time.Now()
	filePath, err := m.opts.Render.Render(ctx, RenderRequest{
		SrcPath:  req.SrcPath,
		ClipID:   clipID,
		Start:    req.Start,
		End:      req.End,
		Spec:     spec,
		Captions: captions,
	})
	if err != nil {
		return nil, false, fmt.Errorf("render clip: %w", err)
	}
	metrics.RenderDuration.Observe(time.Since(renderStart).Seconds())

	row, err := m.opts.Store.InsertClip(ctx, &database.ClipRow{
		ID:          clipID,
		MediaID:     req.MediaID,
		Identity:    identity,
		Platform:    req.Platform,
		Start:       req.Start,
		End:         req.End,
		Duration:    req.End - req.Start,
		FilePath:    filePath,
		Width:       spec.Width,
		Height:      spec.Height,
		HasCaptions: req.IncludeCaptions && captionsText != "",
	})
	if err != nil {
		return nil, false, err
	}

	// A concurrent call racing this one converges on the same row: the id
	// and file path are both derived from the identity, so whichever insert
	// lands first defines the artifact both callers return.
	metrics.ClipsMaterializedTotal.Inc()
	m.log.Info().
		Str("media_id", req.MediaID.String()).
		Str("clip_id", clipID.String()).
		Str("platform", req.Platform).
		Float64("start", req.Start).
		Float64("end", req.End).
		Msg("clip materialized")
	return row, true, nil
}
