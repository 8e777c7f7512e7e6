// Package storage persists the deduplication record and per-source health
// state in PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/go-johnnyhe/jobs/internal/domain"
)

// Storage handles all database operations for the tracker.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// New creates a Storage instance over an open connection pool.
func New(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// seenJobRow maps the seen_jobs table.
type seenJobRow struct {
	UniqueID   string    `db:"unique_id"`
	Company    string    `db:"company"`
	Title      string    `db:"title"`
	URL        string    `db:"url"`
	Location   string    `db:"location"`
	Source     string    `db:"source"`
	DatePosted string    `db:"date_posted"`
	FirstSeen  time.Time `db:"first_seen"`
	Notified   bool      `db:"notified"`
}

func (r seenJobRow) toDomain() domain.SeenJob {
	return domain.SeenJob{
		JobPosting: domain.JobPosting{
			Company:    r.Company,
			Title:      r.Title,
			URL:        r.URL,
			Location:   r.Location,
			Source:     r.Source,
			DatePosted: r.DatePosted,
		},
		FirstSeen: r.FirstSeen,
		Notified:  r.Notified,
	}
}

// IsNew reports whether a posting's identity key has never been seen.
func (s *Storage) IsNew(ctx context.Context, posting domain.JobPosting) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM seen_jobs WHERE unique_id = $1)`,
		posting.UniqueID(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check seen job: %w", err)
	}
	return !exists, nil
}

// markSeenQuery inserts a posting keyed by its identity string. The conflict
// clause is what makes MarkSeen idempotent: a second insert with the same
// identity key leaves the stored row, including first_seen, untouched.
const markSeenQuery = `
		INSERT INTO seen_jobs (unique_id, company, title, url, location, source, date_posted, notified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (unique_id) DO NOTHING
	`

// MarkSeen records a posting. Inserting an identity key that already exists
// is a no-op, which makes the call idempotent.
func (s *Storage) MarkSeen(ctx context.Context, posting domain.JobPosting, notified bool) error {
	_, err := s.db.ExecContext(ctx, markSeenQuery,
		posting.UniqueID(),
		posting.Company,
		posting.Title,
		posting.URL,
		posting.Location,
		posting.Source,
		posting.DatePosted,
		notified,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job seen: %w", err)
	}
	return nil
}

// MarkNotified flips the notified flag for a posting. The flag only ever
// goes false to true.
func (s *Storage) MarkNotified(ctx context.Context, posting domain.JobPosting) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE seen_jobs SET notified = TRUE WHERE unique_id = $1`,
		posting.UniqueID(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark job notified: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrPostingNotFound
	}
	return nil
}

// GetUnnotified returns every posting not yet notified, newest first.
func (s *Storage) GetUnnotified(ctx context.Context) ([]domain.SeenJob, error) {
	var rows []seenJobRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT unique_id, company, title, url, location, source, date_posted, first_seen, notified
		FROM seen_jobs
		WHERE notified = FALSE
		ORDER BY first_seen DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get unnotified jobs: %w", err)
	}

	jobs := make([]domain.SeenJob, 0, len(rows))
	for _, r := range rows {
		jobs = append(jobs, r.toDomain())
	}
	return jobs, nil
}

// GetRecent returns the most recently seen postings, newest first.
func (s *Storage) GetRecent(ctx context.Context, limit int) ([]domain.SeenJob, error) {
	var rows []seenJobRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT unique_id, company, title, url, location, source, date_posted, first_seen, notified
		FROM seen_jobs
		ORDER BY first_seen DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent jobs: %w", err)
	}

	jobs := make([]domain.SeenJob, 0, len(rows))
	for _, r := range rows {
		jobs = append(jobs, r.toDomain())
	}
	return jobs, nil
}

// GetStats summarizes the dedup store.
func (s *Storage) GetStats(ctx context.Context) (domain.StorageStats, error) {
	stats := domain.StorageStats{ByCompany: make(map[string]int)}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE notified)
		FROM seen_jobs
	`).Scan(&stats.TotalJobs, &stats.NotifiedJobs)
	if err != nil {
		return domain.StorageStats{}, fmt.Errorf("failed to count jobs: %w", err)
	}
	stats.PendingNotification = stats.TotalJobs - stats.NotifiedJobs

	rows, err := s.db.QueryContext(ctx, `
		SELECT company, COUNT(*)
		FROM seen_jobs
		GROUP BY company
		ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return domain.StorageStats{}, fmt.Errorf("failed to count jobs by company: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var company string
		var count int
		if err := rows.Scan(&company, &count); err != nil {
			return domain.StorageStats{}, fmt.Errorf("failed to scan company count: %w", err)
		}
		stats.ByCompany[company] = count
	}
	if err := rows.Err(); err != nil {
		return domain.StorageStats{}, fmt.Errorf("failed to iterate company counts: %w", err)
	}

	return stats, nil
}

// PruneOlderThan removes postings first seen more than the given number of
// days ago and returns how many were deleted.
func (s *Storage) PruneOlderThan(ctx context.Context, days int) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM seen_jobs WHERE first_seen < NOW() - ($1 * INTERVAL '1 day')`,
		days,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune old jobs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	s.logger.Info("Pruned old jobs",
		slog.Int("days", days),
		slog.Int64("deleted", deleted),
	)
	return deleted, nil
}

// sourceHealthRow maps the source_health table.
type sourceHealthRow struct {
	Source                string       `db:"source"`
	ConsecutiveFailures   int          `db:"consecutive_failures"`
	LastError             string       `db:"last_error"`
	LastFailureAt         sql.NullTime `db:"last_failure_at"`
	LastSuccessAt         sql.NullTime `db:"last_success_at"`
	LastAlertFailureCount int          `db:"last_alert_failure_count"`
	PendingRecoveryAfter  int          `db:"pending_recovery_after"`
}

func (r sourceHealthRow) toDomain() domain.SourceHealth {
	st := domain.SourceHealth{
		Source:                r.Source,
		ConsecutiveFailures:   r.ConsecutiveFailures,
		LastError:             r.LastError,
		LastAlertFailureCount: r.LastAlertFailureCount,
		PendingRecoveryAfter:  r.PendingRecoveryAfter,
	}
	if r.LastFailureAt.Valid {
		t := r.LastFailureAt.Time
		st.LastFailureAt = &t
	}
	if r.LastSuccessAt.Valid {
		t := r.LastSuccessAt.Time
		st.LastSuccessAt = &t
	}
	return st
}

// GetSourceHealth returns the health row for a source, and whether one
// exists yet. Rows are created lazily by SaveSourceHealth.
func (s *Storage) GetSourceHealth(ctx context.Context, source string) (domain.SourceHealth, bool, error) {
	var row sourceHealthRow
	err := s.db.GetContext(ctx, &row, `
		SELECT source, consecutive_failures, last_error, last_failure_at,
		       last_success_at, last_alert_failure_count, pending_recovery_after
		FROM source_health
		WHERE source = $1
	`, source)
	if err == sql.ErrNoRows {
		return domain.SourceHealth{}, false, nil
	}
	if err != nil {
		return domain.SourceHealth{}, false, fmt.Errorf("failed to get source health: %w", err)
	}
	return row.toDomain(), true, nil
}

// SaveSourceHealth upserts the whole health row keyed by source name.
func (s *Storage) SaveSourceHealth(ctx context.Context, state domain.SourceHealth) error {
	var lastFailureAt, lastSuccessAt sql.NullTime
	if state.LastFailureAt != nil {
		lastFailureAt = sql.NullTime{Time: *state.LastFailureAt, Valid: true}
	}
	if state.LastSuccessAt != nil {
		lastSuccessAt = sql.NullTime{Time: *state.LastSuccessAt, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO source_health (source, consecutive_failures, last_error, last_failure_at,
		                           last_success_at, last_alert_failure_count, pending_recovery_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (source) DO UPDATE SET
			consecutive_failures = EXCLUDED.consecutive_failures,
			last_error = EXCLUDED.last_error,
			last_failure_at = EXCLUDED.last_failure_at,
			last_success_at = EXCLUDED.last_success_at,
			last_alert_failure_count = EXCLUDED.last_alert_failure_count,
			pending_recovery_after = EXCLUDED.pending_recovery_after
	`,
		state.Source,
		state.ConsecutiveFailures,
		state.LastError,
		lastFailureAt,
		lastSuccessAt,
		state.LastAlertFailureCount,
		state.PendingRecoveryAfter,
	)
	if err != nil {
		return fmt.Errorf("failed to save source health: %w", err)
	}
	return nil
}

// ListSourceHealth returns every tracked source's health row.
func (s *Storage) ListSourceHealth(ctx context.Context) ([]domain.SourceHealth, error) {
	var rows []sourceHealthRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT source, consecutive_failures, last_error, last_failure_at,
		       last_success_at, last_alert_failure_count, pending_recovery_after
		FROM source_health
		ORDER BY source
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list source health: %w", err)
	}

	states := make([]domain.SourceHealth, 0, len(rows))
	for _, r := range rows {
		states = append(states, r.toDomain())
	}
	return states, nil
}
