package domain

import "time"

// SourceHealth tracks the reliability of one ingestion source. A row is
// created lazily on the first failure or success report and never deleted.
//
// The state is implicit in the fields:
//
//	ConsecutiveFailures == 0 && PendingRecoveryAfter == 0 → healthy
//	ConsecutiveFailures > 0                              → failing
//	ConsecutiveFailures == 0 && PendingRecoveryAfter > 0 → recovered,
//	    recovery alert not yet confirmed delivered
type SourceHealth struct {
	Source              string     `json:"source"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastError           string     `json:"last_error,omitempty"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`

	// LastAlertFailureCount is the highest threshold already confirmed
	// alerted for the current failure streak. Reset to 0 when a new streak
	// starts, so thresholds rearm after every recovery.
	LastAlertFailureCount int `json:"last_alert_failure_count"`

	// PendingRecoveryAfter is the failure count an unconfirmed recovery
	// alert refers to. 0 means no recovery alert is owed.
	PendingRecoveryAfter int `json:"pending_recovery_after"`
}
