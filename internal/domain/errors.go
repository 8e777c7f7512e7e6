package domain

import "errors"

var (
	// ErrNoAlertThresholds is returned when a health report is given an
	// empty alert-threshold set after normalization.
	ErrNoAlertThresholds = errors.New("alert thresholds must contain at least one positive value")

	// ErrPostingNotFound is returned when a posting cannot be found by its
	// unique ID.
	ErrPostingNotFound = errors.New("posting not found")
)
