package health

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-johnnyhe/jobs/internal/domain"
)

// fakeStore keeps health rows in a map, standing in for the Postgres store.
type fakeStore struct {
	rows map[string]domain.SourceHealth
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]domain.SourceHealth)}
}

func (s *fakeStore) GetSourceHealth(_ context.Context, source string) (domain.SourceHealth, bool, error) {
	st, ok := s.rows[source]
	return st, ok, nil
}

func (s *fakeStore) SaveSourceHealth(_ context.Context, state domain.SourceHealth) error {
	s.rows[state.Source] = state
	return nil
}

func newTestTracker() (*Tracker, *fakeStore) {
	store := newFakeStore()
	tr := NewTracker(store, slog.New(slog.DiscardHandler))
	tr.now = func() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) }
	return tr, store
}

func TestNormalizeThresholds(t *testing.T) {
	tests := []struct {
		name    string
		in      []int
		want    []int
		wantErr bool
	}{
		{"sorted ascending", []int{5, 3, 10}, []int{3, 5, 10}, false},
		{"duplicates removed", []int{3, 3, 5}, []int{3, 5}, false},
		{"non-positive dropped", []int{0, -1, 2}, []int{2}, false},
		{"empty is an error", nil, nil, true},
		{"all invalid is an error", []int{0, -3}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeThresholds(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrNoAlertThresholds)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecordFailure_EmptyThresholds(t *testing.T) {
	tr, _ := newTestTracker()

	_, _, err := tr.RecordFailure(context.Background(), "github", "boom", nil)
	require.ErrorIs(t, err, domain.ErrNoAlertThresholds)
}

// Thresholds [2,4] with delivery lagging behind: the alert for 2 fails to
// send on the second run, so the third run offers it again. Once confirmed,
// it is never offered again for this streak.
func TestRecordFailure_ThresholdSequence(t *testing.T) {
	tr, _ := newTestTracker()
	ctx := context.Background()
	thresholds := []int{2, 4}

	steps := []struct {
		wantFailures int
		wantAlert    int
		confirmAfter int // threshold to confirm after this step, 0 = none
	}{
		{1, 0, 0},
		{2, 2, 0}, // send fails, no confirmation
		{3, 2, 2}, // re-offered, delivered and confirmed this time
		{4, 4, 4},
		{5, 0, 0},
	}

	for i, step := range steps {
		failures, alert, err := tr.RecordFailure(ctx, "careers", "timeout", thresholds)
		require.NoError(t, err, "step %d", i+1)
		assert.Equal(t, step.wantFailures, failures, "step %d failures", i+1)
		assert.Equal(t, step.wantAlert, alert, "step %d alert", i+1)

		if step.confirmAfter > 0 {
			require.NoError(t, tr.ConfirmFailureAlert(ctx, "careers", step.confirmAfter))
		}
	}
}

func TestRecordFailure_PromptConfirmationSkipsIntermediate(t *testing.T) {
	tr, _ := newTestTracker()
	ctx := context.Background()
	thresholds := []int{2, 4}

	for i := 1; i <= 5; i++ {
		failures, alert, err := tr.RecordFailure(ctx, "careers", "timeout", thresholds)
		require.NoError(t, err)
		assert.Equal(t, i, failures)

		switch i {
		case 2:
			assert.Equal(t, 2, alert)
			require.NoError(t, tr.ConfirmFailureAlert(ctx, "careers", 2))
		case 4:
			assert.Equal(t, 4, alert)
			require.NoError(t, tr.ConfirmFailureAlert(ctx, "careers", 4))
		default:
			assert.Equal(t, 0, alert)
		}
	}
}

func TestConfirmFailureAlert_NeverLowers(t *testing.T) {
	tr, store := newTestTracker()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, err := tr.RecordFailure(ctx, "github", "x", []int{2, 4})
		require.NoError(t, err)
	}
	require.NoError(t, tr.ConfirmFailureAlert(ctx, "github", 4))
	require.NoError(t, tr.ConfirmFailureAlert(ctx, "github", 2))
	require.NoError(t, tr.ConfirmFailureAlert(ctx, "github", 4)) // idempotent

	assert.Equal(t, 4, store.rows["github"].LastAlertFailureCount)
}

// A confirmed streak of k >= t failures owes a recovery alert referencing k,
// and keeps owing it on every healthy run until confirmed.
func TestRecoveryRoundTrip(t *testing.T) {
	tr, _ := newTestTracker()
	ctx := context.Background()
	thresholds := []int{3}

	for i := 1; i <= 5; i++ {
		_, alert, err := tr.RecordFailure(ctx, "github", "rate limited", thresholds)
		require.NoError(t, err)
		if alert > 0 {
			require.NoError(t, tr.ConfirmFailureAlert(ctx, "github", alert))
		}
	}

	recovered, err := tr.RecordSuccess(ctx, "github", thresholds)
	require.NoError(t, err)
	assert.Equal(t, 5, recovered)

	// still owed until confirmed, and the count does not get recomputed
	recovered, err = tr.RecordSuccess(ctx, "github", thresholds)
	require.NoError(t, err)
	assert.Equal(t, 5, recovered)

	require.NoError(t, tr.ConfirmRecoveryAlert(ctx, "github"))

	recovered, err = tr.RecordSuccess(ctx, "github", thresholds)
	require.NoError(t, err)
	assert.Equal(t, 0, recovered)
}

// A streak that never reached the minimum threshold, or that alerted but was
// never confirmed, recovers silently.
func TestRecordSuccess_NoRecoveryOwed(t *testing.T) {
	ctx := context.Background()

	t.Run("streak below minimum threshold", func(t *testing.T) {
		tr, _ := newTestTracker()
		for i := 0; i < 2; i++ {
			_, _, err := tr.RecordFailure(ctx, "careers", "x", []int{3})
			require.NoError(t, err)
		}
		recovered, err := tr.RecordSuccess(ctx, "careers", []int{3})
		require.NoError(t, err)
		assert.Equal(t, 0, recovered)
	})

	t.Run("no failure alert was ever confirmed", func(t *testing.T) {
		tr, _ := newTestTracker()
		for i := 0; i < 4; i++ {
			_, _, err := tr.RecordFailure(ctx, "careers", "x", []int{3})
			require.NoError(t, err)
		}
		recovered, err := tr.RecordSuccess(ctx, "careers", []int{3})
		require.NoError(t, err)
		assert.Equal(t, 0, recovered)
	})

	t.Run("healthy source stays silent", func(t *testing.T) {
		tr, _ := newTestTracker()
		recovered, err := tr.RecordSuccess(ctx, "careers", []int{3})
		require.NoError(t, err)
		assert.Equal(t, 0, recovered)
	})
}

// Thresholds rearm after a recovery: a fresh streak alerts at the same
// thresholds again even though the previous streak confirmed them.
func TestThresholdsRearmAfterRecovery(t *testing.T) {
	tr, _ := newTestTracker()
	ctx := context.Background()
	thresholds := []int{2}

	for i := 0; i < 3; i++ {
		_, alert, err := tr.RecordFailure(ctx, "github", "x", thresholds)
		require.NoError(t, err)
		if alert > 0 {
			require.NoError(t, tr.ConfirmFailureAlert(ctx, "github", alert))
		}
	}
	_, err := tr.RecordSuccess(ctx, "github", thresholds)
	require.NoError(t, err)
	require.NoError(t, tr.ConfirmRecoveryAlert(ctx, "github"))

	_, alert, err := tr.RecordFailure(ctx, "github", "again", thresholds)
	require.NoError(t, err)
	assert.Equal(t, 0, alert)

	_, alert, err = tr.RecordFailure(ctx, "github", "again", thresholds)
	require.NoError(t, err)
	assert.Equal(t, 2, alert, "threshold must fire again on the new streak")
}

// A new failure cancels a pending recovery alert; the source is failing, not
// recovered.
func TestFailureClearsPendingRecovery(t *testing.T) {
	tr, store := newTestTracker()
	ctx := context.Background()
	thresholds := []int{2}

	for i := 0; i < 2; i++ {
		_, alert, err := tr.RecordFailure(ctx, "github", "x", thresholds)
		require.NoError(t, err)
		if alert > 0 {
			require.NoError(t, tr.ConfirmFailureAlert(ctx, "github", alert))
		}
	}
	recovered, err := tr.RecordSuccess(ctx, "github", thresholds)
	require.NoError(t, err)
	require.Equal(t, 2, recovered) // pending, never confirmed

	_, _, err = tr.RecordFailure(ctx, "github", "down again", thresholds)
	require.NoError(t, err)

	assert.Equal(t, 0, store.rows["github"].PendingRecoveryAfter)
	assert.Equal(t, 1, store.rows["github"].ConsecutiveFailures)
}

func TestStateTimestampsAndError(t *testing.T) {
	tr, store := newTestTracker()
	ctx := context.Background()

	_, _, err := tr.RecordFailure(ctx, "github", "connection refused", []int{3})
	require.NoError(t, err)

	st := store.rows["github"]
	assert.Equal(t, "connection refused", st.LastError)
	require.NotNil(t, st.LastFailureAt)
	assert.Nil(t, st.LastSuccessAt)

	_, err = tr.RecordSuccess(ctx, "github", []int{3})
	require.NoError(t, err)

	st = store.rows["github"]
	assert.Empty(t, st.LastError)
	assert.Nil(t, st.LastFailureAt)
	require.NotNil(t, st.LastSuccessAt)
}
