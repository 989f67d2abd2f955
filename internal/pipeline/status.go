package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clipworks/clip-engine/internal/database"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Stage is a media item's position in the processing lifecycle.
type Stage string

const (
	StagePending      Stage = "pending"
	StageDownloading  Stage = "downloading"
	StageTranscribing Stage = "transcribing"
	StageAnalyzing    Stage = "analyzing"
	StageComplete     Stage = "complete"
	StageError        Stage = "error"
)

// Terminal reports whether the stage ends a processing run. A new run
// requires an explicit Reset.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// StatusStore persists processing state. Implemented by *database.DB.
type StatusStore interface {
	UpsertStatus(ctx context.Context, s *database.StatusRow) error
	GetStatus(ctx context.Context, mediaID uuid.UUID) (*database.StatusRow, error)
}

// ChangeFunc is notified after every persisted stage write. Used to publish
// status events; must not block.
type ChangeFunc func(row *database.StatusRow)

// Tracker is the processing state machine. Every write goes through to the
// store, and a per-media cache keeps the poll read path off the database for
// status the owning process just wrote. The cache is only a fast path: reads
// for media this process never touched fall through to the store.
type Tracker struct {
	store    StatusStore
	log      zerolog.Logger
	onChange ChangeFunc

	mu    sync.RWMutex
	cache map[uuid.UUID]*database.StatusRow
}

// NewTracker creates a state machine backed by store. onChange may be nil.
func NewTracker(store StatusStore, onChange ChangeFunc, log zerolog.Logger) *Tracker {
	return &Tracker{
		store:    store,
		log:      log,
		onChange: onChange,
		cache:    make(map[uuid.UUID]*database.StatusRow),
	}
}

// Advance moves a media item to stage. Advancing to the current stage again
// refreshes message and progress only. Advancing out of a terminal stage is
// rejected; use Reset to start a new run. Progress must come from a real
// countable quantity; pass nil when there is no denominator.
func (t *Tracker) Advance(ctx context.Context, mediaID uuid.UUID, stage Stage, message string, progress *float64) error {
	if stage == StageError {
		return fmt.Errorf("advance to error stage not allowed, use Fail")
	}

	t.mu.RLock()
	cur, ok := t.cache[mediaID]
	t.mu.RUnlock()
	if !ok {
		// Cold cache, e.g. right after a restart. The terminal check must
		// hold against the persisted row, not just this process's view.
		stored, err := t.store.GetStatus(ctx, mediaID)
		if err != nil {
			return fmt.Errorf("read status before advance: %w", err)
		}
		if stored != nil {
			cur = stored
			ok = true
		}
	}
	if ok && Stage(cur.Stage).Terminal() {
		return fmt.Errorf("media %s is %s, cannot advance to %s", mediaID, cur.Stage, stage)
	}

	t.mu.Lock()
	row := &database.StatusRow{
		MediaID:   mediaID,
		Stage:     string(stage),
		Message:   message,
		Progress:  progress,
		UpdatedAt: time.Now(),
	}
	t.cache[mediaID] = row
	t.mu.Unlock()

	if err := t.store.UpsertStatus(ctx, row); err != nil {
		return err
	}
	t.notify(row)
	return nil
}

// Fail records a terminal error for the current run.
func (t *Tracker) Fail(ctx context.Context, mediaID uuid.UUID, message string) error {
	row := &database.StatusRow{
		MediaID:   mediaID,
		Stage:     string(StageError),
		Message:   message,
		Error:     &message,
		UpdatedAt: time.Now(),
	}

	t.mu.Lock()
	t.cache[mediaID] = row
	t.mu.Unlock()

	if err := t.store.UpsertStatus(ctx, row); err != nil {
		return err
	}
	t.log.Warn().Str("media_id", mediaID.String()).Str("message", message).Msg("processing run failed")
	t.notify(row)
	return nil
}

// Reset starts a fresh run: back to pending regardless of the current stage.
func (t *Tracker) Reset(ctx context.Context, mediaID uuid.UUID) error {
	row := &database.StatusRow{
		MediaID:   mediaID,
		Stage:     string(StagePending),
		Message:   "Queued for processing",
		UpdatedAt: time.Now(),
	}

	t.mu.Lock()
	t.cache[mediaID] = row
	t.mu.Unlock()

	if err := t.store.UpsertStatus(ctx, row); err != nil {
		return err
	}
	t.notify(row)
	return nil
}

// Read returns the current status, cache first. Returns nil when no run has
// been recorded for the media item.
func (t *Tracker) Read(ctx context.Context, mediaID uuid.UUID) (*database.StatusRow, error) {
	t.mu.RLock()
	row, ok := t.cache[mediaID]
	t.mu.RUnlock()
	if ok {
		return row, nil
	}

	row, err := t.store.GetStatus(ctx, mediaID)
	if err != nil || row == nil {
		return row, err
	}
	t.mu.Lock()
	t.cache[mediaID] = row
	t.mu.Unlock()
	return row, nil
}

// Forget drops the cache entry for a deleted media item.
func (t *Tracker) Forget(mediaID uuid.UUID) {
	t.mu.Lock()
	delete(t.cache, mediaID)
	t.mu.Unlock()
}

func (t *Tracker) notify(row *database.StatusRow) {
	if t.onChange != nil {
		t.onChange(row)
	}
}
