package domain

import "errors"

var (
	// ErrBadTransition is returned for an illegal attempt state move.
	ErrBadTransition = errors.New("invalid attempt transition")

	// ErrOpenAttempt is returned when a posting already has a live attempt.
	ErrOpenAttempt = errors.New("posting already has an open attempt")

	// ErrQuotaExhausted is returned when the daily outreach cap is hit.
	ErrQuotaExhausted = errors.New("daily outreach quota exhausted")
)
