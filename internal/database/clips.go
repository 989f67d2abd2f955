package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ClipRow is a materialized export artifact. Start/End are absolute seconds
// on the source media timeline; Identity is the content hash that makes
// storage idempotent.
type ClipRow struct {
	ID          uuid.UUID `json:"id"`
	MediaID     uuid.UUID `json:"media_id"`
	Identity    string    `json:"-"`
	Platform    string    `json:"platform"`
	Start       float64   `json:"start"`
	End         float64   `json:"end"`
	Duration    float64   `json:"duration"`
	FilePath    string    `json:"file_path"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	HasCaptions bool      `json:"has_captions"`
	CreatedAt   time.Time `json:"created_at"`
}

// GetClipByIdentity returns the clip with the given content identity for a
// media item, or nil if none exists.
func (db *DB) GetClipByIdentity(ctx context.Context, mediaID uuid.UUID, identity string) (*ClipRow, error) {
	row, err := db.scanClip(db.Pool.QueryRow(ctx, `
		SELECT id, media_id, identity, platform, start_s, end_s, duration, file_path, width, height, has_captions, created_at
		FROM clips WHERE media_id = $1 AND identity = $2
	`, mediaID, identity))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return row, err
}

// InsertClip stores a new clip. The UNIQUE (media_id, identity) constraint
// serializes concurrent materialize calls for the same logical clip: the
// loser's insert is a no-op and the winner's row is read back, so both
// callers converge on one stored artifact.
func (db *DB) InsertClip(ctx context.Context, c *ClipRow) (*ClipRow, error) {
	tag, err := db.Pool.Exec(ctx, `
		INSERT INTO clips (id, media_id, identity, platform, start_s, end_s, duration, file_path, width, height, has_captions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (media_id, identity) DO NOTHING
	`, c.ID, c.MediaID, c.Identity, c.Platform, c.Start, c.End, c.Duration, c.FilePath, c.Width, c.Height, c.HasCaptions)
	if err != nil {
		return nil, fmt.Errorf("insert clip: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Lost the race. Return the winner's row.
		existing, err := db.GetClipByIdentity(ctx, c.MediaID, c.Identity)
		if err != nil {
			return nil, fmt.Errorf("read back clip: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("clip %s vanished after conflict", c.Identity)
		}
		return existing, nil
	}

	return db.GetClipByIdentity(ctx, c.MediaID, c.Identity)
}

// ListClips returns all clips for a media item, newest first.
func (db *DB) ListClips(ctx context.Context, mediaID uuid.UUID) ([]ClipRow, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, media_id, identity, platform, start_s, end_s, duration, file_path, width, height, has_captions, created_at
		FROM clips WHERE media_id = $1 ORDER BY created_at DESC
	`, mediaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ClipRow
	for rows.Next() {
		var c ClipRow
		if err := rows.Scan(
			&c.ID, &c.MediaID, &c.Identity, &c.Platform, &c.Start, &c.End,
			&c.Duration, &c.FilePath, &c.Width, &c.Height, &c.HasCaptions, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if result == nil {
		result = []ClipRow{}
	}
	return result, rows.Err()
}

func (db *DB) scanClip(row pgx.Row) (*ClipRow, error) {
	var c ClipRow
	err := row.Scan(
		&c.ID, &c.MediaID, &c.Identity, &c.Platform, &c.Start, &c.End,
		&c.Duration, &c.FilePath, &c.Width, &c.Height, &c.HasCaptions, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
