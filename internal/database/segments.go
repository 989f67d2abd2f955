package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SegmentRow is one timed text segment on the absolute timeline of its media
// item. Seq is the append position within the transcript.
type SegmentRow struct {
	Seq        int     `json:"id"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Speaker    *string `json:"speaker,omitempty"`
	Confidence float32 `json:"confidence"`
}

// TranscriptRow is the transcript lifecycle record for a media item.
type TranscriptRow struct {
	MediaID     uuid.UUID  `json:"media_id"`
	Language    string     `json:"language"`
	Complete    bool       `json:"complete"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ResetTranscript clears any previous transcript for a fresh processing run:
// removes all segments and (re)creates an incomplete transcript row.
func (db *DB) ResetTranscript(ctx context.Context, mediaID uuid.UUID) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM transcript_segments WHERE media_id = $1`, mediaID); err != nil {
		return fmt.Errorf("clear segments: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO transcripts (media_id, language, complete, completed_at)
		VALUES ($1, '', false, NULL)
		ON CONFLICT (media_id) DO UPDATE SET language = '', complete = false, completed_at = NULL
	`, mediaID)
	if err != nil {
		return fmt.Errorf("reset transcript: %w", err)
	}
	return tx.Commit(ctx)
}

// AppendSegments appends segments to an in-progress transcript, assigning
// sequence positions after the current tail. Appending to a completed
// transcript is an error; completed transcripts are immutable.
func (db *DB) AppendSegments(ctx context.Context, mediaID uuid.UUID, segs []SegmentRow) error {
	if len(segs) == 0 {
		return nil
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var complete bool
	err = tx.QueryRow(ctx, `SELECT complete FROM transcripts WHERE media_id = $1 FOR UPDATE`, mediaID).Scan(&complete)
	if err != nil {
		return fmt.Errorf("transcript row: %w", err)
	}
	if complete {
		return fmt.Errorf("transcript for %s is complete and immutable", mediaID)
	}

	var next int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(seq) + 1, 0) FROM transcript_segments WHERE media_id = $1
	`, mediaID).Scan(&next)
	if err != nil {
		return fmt.Errorf("next seq: %w", err)
	}

	for i, s := range segs {
		_, err := tx.Exec(ctx, `
			INSERT INTO transcript_segments (media_id, seq, start_s, end_s, text, speaker, confidence)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, mediaID, next+i, s.Start, s.End, s.Text, s.Speaker, s.Confidence)
		if err != nil {
			return fmt.Errorf("insert segment %d: %w", next+i, err)
		}
	}
	return tx.Commit(ctx)
}

// MarkTranscriptComplete freezes the transcript. Subsequent appends fail.
func (db *DB) MarkTranscriptComplete(ctx context.Context, mediaID uuid.UUID, language string) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE transcripts SET complete = true, completed_at = now(), language = $2
		WHERE media_id = $1
	`, mediaID, language)
	if err != nil {
		return fmt.Errorf("mark complete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no transcript row for %s", mediaID)
	}
	return nil
}

// GetTranscript returns the transcript lifecycle row, or nil if none exists.
func (db *DB) GetTranscript(ctx context.Context, mediaID uuid.UUID) (*TranscriptRow, error) {
	var t TranscriptRow
	err := db.Pool.QueryRow(ctx, `
		SELECT media_id, language, complete, completed_at FROM transcripts WHERE media_id = $1
	`, mediaID).Scan(&t.MediaID, &t.Language, &t.Complete, &t.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListSegments returns all segments for a media item ordered by start time.
func (db *DB) ListSegments(ctx context.Context, mediaID uuid.UUID) ([]SegmentRow, error) {
	return db.querySegments(ctx, `
		SELECT seq, start_s, end_s, text, speaker, confidence
		FROM transcript_segments WHERE media_id = $1
		ORDER BY start_s, seq
	`, mediaID)
}

// SegmentsInRange returns segments overlapping [start, end): any segment with
// end_s > start and start_s < end. Partial segments at the edges are included.
func (db *DB) SegmentsInRange(ctx context.Context, mediaID uuid.UUID, start, end float64) ([]SegmentRow, error) {
	return db.querySegments(ctx, `
		SELECT seq, start_s, end_s, text, speaker, confidence
		FROM transcript_segments
		WHERE media_id = $1 AND end_s > $2 AND start_s < $3
		ORDER BY start_s, seq
	`, mediaID, start, end)
}

func (db *DB) querySegments(ctx context.Context, sql string, args ...any) ([]SegmentRow, error) {
	rows, err := db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SegmentRow
	for rows.Next() {
		var s SegmentRow
		if err := rows.Scan(&s.Seq, &s.Start, &s.End, &s.Text, &s.Speaker, &s.Confidence); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if result == nil {
		result = []SegmentRow{}
	}
	return result, rows.Err()
}
