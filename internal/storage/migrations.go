package storage

import (
	"context"
	"fmt"
)

// migrations are executed in order on startup. Every statement must be
// additive (CREATE ... IF NOT EXISTS, ALTER TABLE ... ADD COLUMN IF NOT
// EXISTS) so rows written by older builds survive an upgrade in place.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS seen_jobs (
		id BIGSERIAL PRIMARY KEY,
		unique_id TEXT UNIQUE NOT NULL,
		company TEXT NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		date_posted TEXT NOT NULL DEFAULT '',
		first_seen TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		notified BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_seen_jobs_notified ON seen_jobs (notified)`,
	`CREATE INDEX IF NOT EXISTS idx_seen_jobs_first_seen ON seen_jobs (first_seen DESC)`,
	`CREATE TABLE IF NOT EXISTS source_health (
		source TEXT PRIMARY KEY,
		consecutive_failures INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		last_failure_at TIMESTAMPTZ,
		last_success_at TIMESTAMPTZ
	)`,
	// alert bookkeeping arrived after the first source_health schema
	`ALTER TABLE source_health ADD COLUMN IF NOT EXISTS last_alert_failure_count INTEGER NOT NULL DEFAULT 0`,
	`ALTER TABLE source_health ADD COLUMN IF NOT EXISTS pending_recovery_after INTEGER NOT NULL DEFAULT 0`,
}

// RunMigrations applies the schema statements in order.
func (s *Storage) RunMigrations(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", i+1, err)
		}
	}
	return nil
}
