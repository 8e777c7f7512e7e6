package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-johnnyhe/jobs/internal/domain"
)

// Store is the persistence the tracker needs: one row per source name,
// upserted whole. Implemented by internal/storage.
type Store interface {
	// GetSourceHealth returns the stored state and whether a row exists.
	GetSourceHealth(ctx context.Context, source string) (domain.SourceHealth, bool, error)
	// SaveSourceHealth upserts the row keyed by state.Source.
	SaveSourceHealth(ctx context.Context, state domain.SourceHealth) error
}

// Tracker applies health transitions against persisted per-source state.
//
// Each operation is one read-modify-write; the store runs each statement in
// its own transaction but the sequence is not compare-and-swap protected.
// That is fine for the batch runner, which processes sources sequentially in
// a single process. Concurrent multi-source fetching would need the
// read-modify-write wrapped in a serializable transaction per source row.
type Tracker struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewTracker creates a Tracker over the given store.
func NewTracker(store Store, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// load returns the stored state for a source, or a fresh zero state when no
// row exists yet (rows are created lazily on the first report).
func (t *Tracker) load(ctx context.Context, source string) (domain.SourceHealth, error) {
	st, ok, err := t.store.GetSourceHealth(ctx, source)
	if err != nil {
		return domain.SourceHealth{}, fmt.Errorf("failed to load source health: %w", err)
	}
	if !ok {
		st = domain.SourceHealth{Source: source}
	}
	return st, nil
}

// RecordFailure registers one failed run. It returns the updated consecutive
// failure count and the threshold an alert is due at (0 = none). The caller
// must attempt notification only for a non-zero threshold and call
// ConfirmFailureAlert only after delivery succeeded; until then the same
// threshold keeps being offered on subsequent failures.
func (t *Tracker) RecordFailure(ctx context.Context, source, errMsg string, thresholds []int) (int, int, error) {
	norm, err := normalizeThresholds(thresholds)
	if err != nil {
		return 0, 0, err
	}

	st, err := t.load(ctx, source)
	if err != nil {
		return 0, 0, err
	}

	st, alert := applyFailure(st, errMsg, norm, t.now())
	if err := t.store.SaveSourceHealth(ctx, st); err != nil {
		return 0, 0, fmt.Errorf("failed to save source health: %w", err)
	}

	t.logger.Warn("Source failure recorded",
		slog.String("source", source),
		slog.Int("consecutive_failures", st.ConsecutiveFailures),
		slog.Int("alert_threshold", alert),
		slog.String("error", errMsg),
	)

	return st.ConsecutiveFailures, alert, nil
}

// ConfirmFailureAlert marks the alert for the given threshold as delivered.
// Idempotent; never lowers the confirmed mark.
func (t *Tracker) ConfirmFailureAlert(ctx context.Context, source string, threshold int) error {
	st, err := t.load(ctx, source)
	if err != nil {
		return err
	}

	st = confirmFailure(st, threshold)
	if err := t.store.SaveSourceHealth(ctx, st); err != nil {
		return fmt.Errorf("failed to save source health: %w", err)
	}
	return nil
}

// RecordSuccess registers one healthy run and returns the failure count a
// recovery alert should reference (0 = no recovery alert due). The same
// count keeps being returned on every healthy run until ConfirmRecoveryAlert
// is called.
func (t *Tracker) RecordSuccess(ctx context.Context, source string, thresholds []int) (int, error) {
	norm, err := normalizeThresholds(thresholds)
	if err != nil {
		return 0, err
	}

	st, err := t.load(ctx, source)
	if err != nil {
		return 0, err
	}

	st, recoveredAfter := applySuccess(st, norm, t.now())
	if err := t.store.SaveSourceHealth(ctx, st); err != nil {
		return 0, fmt.Errorf("failed to save source health: %w", err)
	}

	if recoveredAfter > 0 {
		t.logger.Info("Source recovered",
			slog.String("source", source),
			slog.Int("recovered_after", recoveredAfter),
		)
	}

	return recoveredAfter, nil
}

// ConfirmRecoveryAlert marks the pending recovery alert as delivered.
// Idempotent.
func (t *Tracker) ConfirmRecoveryAlert(ctx context.Context, source string) error {
	st, err := t.load(ctx, source)
	if err != nil {
		return err
	}

	st = confirmRecovery(st)
	if err := t.store.SaveSourceHealth(ctx, st); err != nil {
		return fmt.Errorf("failed to save source health: %w", err)
	}
	return nil
}
