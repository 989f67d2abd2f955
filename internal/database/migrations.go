package database

import (
	"context"
	"fmt"
)

// migration defines a single idempotent schema migration.
type migration struct {
	name  string
	sql   string
	check string // query that returns true if the migration is already applied
}

// migrations is the ordered list of schema migrations to apply.
// Each must be idempotent (use IF NOT EXISTS, IF EXISTS, etc.).
var migrations = []migration{
	{
		name:  "add media.thumbnail_path",
		sql:   `ALTER TABLE media ADD COLUMN IF NOT EXISTS thumbnail_path text`,
		check: `SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'media' AND column_name = 'thumbnail_path')`,
	},
	{
		name:  "add clips absolute timestamps",
		sql:   `ALTER TABLE clips ADD COLUMN IF NOT EXISTS start_s double precision NOT NULL DEFAULT 0, ADD COLUMN IF NOT EXISTS end_s double precision NOT NULL DEFAULT 0`,
		check: `SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'clips' AND column_name = 'start_s')`,
	},
	{
		name:  "add segment start index",
		sql:   `CREATE INDEX IF NOT EXISTS idx_segments_media_start ON transcript_segments (media_id, start_s)`,
		check: `SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_segments_media_start')`,
	},
}

// RunMigrations applies all pending migrations in order.
func (db *DB) RunMigrations(ctx context.Context) error {
	for _, m := range migrations {
		var applied bool
		if err := db.Pool.QueryRow(ctx, m.check).Scan(&applied); err != nil {
			return fmt.Errorf("migration check %q: %w", m.name, err)
		}
		if applied {
			continue
		}
		db.log.Info().Str("migration", m.name).Msg("applying migration")
		if _, err := db.Pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %q: %w", m.name, err)
		}
	}
	return nil
}
