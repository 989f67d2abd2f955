package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MediaRow is a source media item (one upload or URL ingest).
type MediaRow struct {
	ID               uuid.UUID `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename *string   `json:"original_filename,omitempty"`
	MediaType        string    `json:"media_type"`  // "video" or "audio"
	SourceType       string    `json:"source_type"` // "upload" or "url"
	SourceURL        *string   `json:"source_url,omitempty"`
	Duration         *float64  `json:"duration,omitempty"` // seconds, nil until probed
	FilePath         string    `json:"file_path"`
	ThumbnailPath    *string   `json:"thumbnail_path,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// InsertMedia creates a new media row.
func (db *DB) InsertMedia(ctx context.Context, m *MediaRow) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO media (id, filename, original_filename, media_type, source_type, source_url, duration, file_path, thumbnail_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, m.ID, m.Filename, m.OriginalFilename, m.MediaType, m.SourceType, m.SourceURL, m.Duration, m.FilePath, m.ThumbnailPath)
	if err != nil {
		return fmt.Errorf("insert media: %w", err)
	}
	return nil
}

// GetMedia returns a media row by id, or nil if it does not exist.
func (db *DB) GetMedia(ctx context.Context, id uuid.UUID) (*MediaRow, error) {
	var m MediaRow
	err := db.Pool.QueryRow(ctx, `
		SELECT id, filename, original_filename, media_type, source_type, source_url, duration, file_path, thumbnail_path, created_at
		FROM media WHERE id = $1
	`, id).Scan(
		&m.ID, &m.Filename, &m.OriginalFilename, &m.MediaType, &m.SourceType,
		&m.SourceURL, &m.Duration, &m.FilePath, &m.ThumbnailPath, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media: %w", err)
	}
	return &m, nil
}

// ListMedia returns media rows ordered by creation time, newest first.
func (db *DB) ListMedia(ctx context.Context, limit, offset int) ([]MediaRow, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, filename, original_filename, media_type, source_type, source_url, duration, file_path, thumbnail_path, created_at
		FROM media ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MediaRow
	for rows.Next() {
		var m MediaRow
		if err := rows.Scan(
			&m.ID, &m.Filename, &m.OriginalFilename, &m.MediaType, &m.SourceType,
			&m.SourceURL, &m.Duration, &m.FilePath, &m.ThumbnailPath, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if result == nil {
		result = []MediaRow{}
	}
	return result, rows.Err()
}

// SetMediaDuration records the probed duration. The duration is written at
// most once; a second call with a different value is a no-op.
func (db *DB) SetMediaDuration(ctx context.Context, id uuid.UUID, seconds float64) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE media SET duration = $2 WHERE id = $1 AND duration IS NULL
	`, id, seconds)
	if err != nil {
		return fmt.Errorf("set media duration: %w", err)
	}
	return nil
}

// SetMediaFile records the downloaded file for a URL-ingested media row.
// The title from the source page becomes the original filename when present.
func (db *DB) SetMediaFile(ctx context.Context, id uuid.UUID, filename, title, mediaType, path string) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE media SET
			filename = $2,
			original_filename = COALESCE(NULLIF($3, ''), original_filename),
			media_type = $4,
			file_path = $5
		WHERE id = $1
	`, id, filename, title, mediaType, path)
	if err != nil {
		return fmt.Errorf("set media file: %w", err)
	}
	return nil
}

// SetMediaThumbnail records the path of the generated preview frame.
func (db *DB) SetMediaThumbnail(ctx context.Context, id uuid.UUID, path string) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE media SET thumbnail_path = $2 WHERE id = $1
	`, id, path)
	if err != nil {
		return fmt.Errorf("set media thumbnail: %w", err)
	}
	return nil
}

// DeleteMedia removes a media row. Transcript, status, and clip rows cascade.
func (db *DB) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("media %s not found", id)
	}
	return nil
}
