package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/clipworks/clip-engine/internal/config"
	"github.com/rs/zerolog"
)

// BlobStore abstracts file storage for source media and rendered clips.
// Key layout: media/{media_id}/{filename} and clips/{clip_id}.mp4.
type BlobStore interface {
	// Save stores a file under key.
	Save(ctx context.Context, key string, data []byte, contentType string) error

	// LocalPath returns the local filesystem path if the file exists on disk.
	// Returns "" if not available locally.
	LocalPath(key string) string

	// URL returns a presigned URL for the file.
	// Returns "" for local-only backends.
	URL(ctx context.Context, key string) (string, error)

	// Open returns a reader for the file.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if a file exists in any backend.
	Exists(ctx context.Context, key string) bool

	// Type returns "local", "s3", or "tiered".
	Type() string
}

// New creates a BlobStore based on config. With S3 configured, local disk
// stays the primary copy (the transcription engine and renderer need real
// file paths) and S3 mirrors it for durability and presigned links.
// Returns an error if S3 is configured but unreachable.
func New(cfg config.S3Config, dataDir string, log zerolog.Logger) (BlobStore, error) {
	local := NewLocalStore(dataDir)
	if !cfg.Enabled() {
		return local, nil
	}

	s3store, err := NewS3Store(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("S3 init failed: %w", err)
	}

	// Startup validation: verify credentials and bucket access
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3store.HeadBucket(ctx); err != nil {
		return nil, fmt.Errorf("S3 startup check failed (bucket=%q endpoint=%q): %w",
			cfg.Bucket, cfg.Endpoint, err)
	}
	log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("S3 connection verified")

	return NewTieredStore(s3store, local, log), nil
}
