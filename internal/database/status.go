package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StatusRow is the polling-facing processing state for a media item.
// Progress is nil when the current stage has no countable denominator.
type StatusRow struct {
	MediaID   uuid.UUID `json:"media_id"`
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	Progress  *float64  `json:"progress,omitempty"`
	Error     *string   `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertStatus writes the current processing state for a media item.
// The read path is a single-row primary key lookup so polling stays cheap.
func (db *DB) UpsertStatus(ctx context.Context, s *StatusRow) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO processing_status (media_id, stage, message, progress, error, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (media_id) DO UPDATE SET
			stage = EXCLUDED.stage,
			message = EXCLUDED.message,
			progress = EXCLUDED.progress,
			error = EXCLUDED.error,
			updated_at = now()
	`, s.MediaID, s.Stage, s.Message, s.Progress, s.Error)
	if err != nil {
		return fmt.Errorf("upsert status: %w", err)
	}
	return nil
}

// GetStatus returns the current processing state for a media item, or nil if
// no processing run has been recorded.
func (db *DB) GetStatus(ctx context.Context, mediaID uuid.UUID) (*StatusRow, error) {
	var s StatusRow
	err := db.Pool.QueryRow(ctx, `
		SELECT media_id, stage, message, progress, error, updated_at
		FROM processing_status WHERE media_id = $1
	`, mediaID).Scan(&s.MediaID, &s.Stage, &s.Message, &s.Progress, &s.Error, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	return &s, nil
}
