// Package health tracks per-source ingestion reliability and decides when
// failure and recovery alerts are due.
//
// The state machine per source is implicit in the stored fields:
//
//	failing              consecutive_failures > 0
//	healthy              consecutive_failures == 0, pending_recovery_after == 0
//	recovered, unconfirmed  consecutive_failures == 0, pending_recovery_after > 0
//
// Alert decisions are computed here as pure transitions; delivery is
// confirmed separately, so an alert that was computed but never confirmed is
// offered again on the next report (at-least-once, idempotent confirmation).
package health

import (
	"slices"
	"time"

	"github.com/go-johnnyhe/jobs/internal/domain"
)

// normalizeThresholds deduplicates and sorts the configured alert thresholds
// ascending. An empty or all-invalid set is a configuration error.
func normalizeThresholds(thresholds []int) ([]int, error) {
	var norm []int
	for _, t := range thresholds {
		if t > 0 && !slices.Contains(norm, t) {
			norm = append(norm, t)
		}
	}
	if len(norm) == 0 {
		return nil, domain.ErrNoAlertThresholds
	}
	slices.Sort(norm)
	return norm, nil
}

// applyFailure advances the state for one failed run and returns the new
// state plus the threshold to alert at (0 = no alert due).
//
// When the prior streak length is zero the alert baseline resets to zero no
// matter what is stored, so thresholds rearm after every recovery. The alert
// offered is the largest configured threshold that the streak has reached
// and that has not been confirmed-alerted this streak.
func applyFailure(st domain.SourceHealth, errMsg string, thresholds []int, now time.Time) (domain.SourceHealth, int) {
	baseline := st.LastAlertFailureCount
	if st.ConsecutiveFailures == 0 {
		baseline = 0
	}

	failures := st.ConsecutiveFailures + 1

	alert := 0
	for _, t := range thresholds {
		if t <= failures && t > baseline {
			alert = t
		}
	}

	st.ConsecutiveFailures = failures
	st.LastError = errMsg
	st.LastFailureAt = &now
	st.LastAlertFailureCount = baseline
	// a failure cancels any recovery alert still pending from a previous
	// streak; the source is plainly not recovered
	st.PendingRecoveryAfter = 0

	return st, alert
}

// confirmFailure records that the alert for threshold was delivered. It only
// ever raises the confirmed mark, so a late or repeated confirmation cannot
// re-arm an already-confirmed threshold.
func confirmFailure(st domain.SourceHealth, threshold int) domain.SourceHealth {
	if threshold > st.LastAlertFailureCount {
		st.LastAlertFailureCount = threshold
	}
	return st
}

// applySuccess resets the streak for one healthy run and returns the new
// state plus the failure count a recovery alert should reference
// (0 = no recovery alert due).
//
// An already-pending recovery count is kept as-is so repeated healthy runs
// keep offering the same alert until it is confirmed. Otherwise a recovery
// alert is owed only if the ended streak reached the minimum configured
// threshold and at least one failure alert was actually confirmed for it;
// sources that never got bad enough to alert recover silently.
func applySuccess(st domain.SourceHealth, thresholds []int, now time.Time) (domain.SourceHealth, int) {
	recoveredAfter := 0
	switch {
	case st.PendingRecoveryAfter > 0:
		recoveredAfter = st.PendingRecoveryAfter
	case st.ConsecutiveFailures >= thresholds[0] && st.LastAlertFailureCount > 0:
		recoveredAfter = st.ConsecutiveFailures
	}

	st.ConsecutiveFailures = 0
	st.LastError = ""
	st.LastFailureAt = nil
	st.LastSuccessAt = &now
	st.LastAlertFailureCount = 0
	st.PendingRecoveryAfter = recoveredAfter

	return st, recoveredAfter
}

// confirmRecovery clears the pending recovery alert. Idempotent.
func confirmRecovery(st domain.SourceHealth) domain.SourceHealth {
	st.PendingRecoveryAfter = 0
	return st
}
