// Outreach attempt state machine.
//
// Valid state graph:
//
//	pending ──► sent ──► delivered ──► read ──► responded
//	    │         │           │          │
//	    └─────────┴───────────┴──────────┴──► failed
//
// responded and failed are terminal. Transitions never move backwards and
// never clear a timestamp once set.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AttemptState string

const (
	AttemptPending   AttemptState = "pending"
	AttemptSent      AttemptState = "sent"
	AttemptDelivered AttemptState = "delivered"
	AttemptRead      AttemptState = "read"
	AttemptResponded AttemptState = "responded"
	AttemptFailed    AttemptState = "failed"
)

// AttemptMethod tags how the outreach was delivered.
type AttemptMethod string

const (
	MethodEmail   AttemptMethod = "email"
	MethodWebForm AttemptMethod = "web_form"
	MethodManual  AttemptMethod = "manual"
)

// ResponseTone classifies a received response.
type ResponseTone string

const (
	TonePositive ResponseTone = "positive"
	ToneNeutral  ResponseTone = "neutral"
	ToneNegative ResponseTone = "negative"
)

var validAttemptTransitions = map[AttemptState][]AttemptState{
	AttemptPending:   {AttemptSent, AttemptFailed},
	AttemptSent:      {AttemptDelivered, AttemptRead, AttemptResponded, AttemptFailed},
	AttemptDelivered: {AttemptRead, AttemptResponded, AttemptFailed},
	AttemptRead:      {AttemptResponded, AttemptFailed},
	// responded and failed are terminal
}

// ParseAttemptState converts a raw string, rejecting unknown values.
func ParseAttemptState(s string) (AttemptState, error) {
	st := AttemptState(s)
	switch st {
	case AttemptPending, AttemptSent, AttemptDelivered, AttemptRead, AttemptResponded, AttemptFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown attempt state %q", s)
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to AttemptState) bool {
	for _, s := range validAttemptTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// OpenAttemptState reports whether the state still blocks a new attempt
// for the same posting.
func OpenAttemptState(s AttemptState) bool {
	return s != AttemptResponded && s != AttemptFailed
}

// OutreachAttempt is one tracked instance of contacting about a posting.
type OutreachAttempt struct {
	ID        string
	PostingID string
	Method    AttemptMethod
	State     AttemptState

	Recipient string
	Subject   string
	Body      string

	CreatedAt   time.Time
	SentAt      *time.Time
	DeliveredAt *time.Time
	ReadAt      *time.Time

	ResponseReceived bool
	ResponseAt       *time.Time
	ResponseContent  string
	ResponseTone     ResponseTone

	FollowUpCount  int
	LastFollowUpAt *time.Time
	NextFollowUpAt *time.Time

	ScoreAtAttempt float64
	LastError      string
}

// NewAttempt creates a pending attempt for a posting.
func NewAttempt(postingID string, method AttemptMethod, now time.Time) *OutreachAttempt {
	return &OutreachAttempt{
		ID:        uuid.NewString(),
		PostingID: postingID,
		Method:    method,
		State:     AttemptPending,
		CreatedAt: now,
	}
}

// Transition moves the attempt to a new state, stamping the timestamp for
// the state actually reached. Timestamps already set are left untouched.
func (a *OutreachAttempt) Transition(to AttemptState, now time.Time) error {
	if !CanTransition(a.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, a.State, to)
	}
	a.State = to
	switch to {
	case AttemptSent:
		if a.SentAt == nil {
			a.SentAt = &now
		}
	case AttemptDelivered:
		if a.DeliveredAt == nil {
			a.DeliveredAt = &now
		}
	case AttemptRead:
		if a.ReadAt == nil {
			a.ReadAt = &now
		}
	case AttemptResponded:
		if a.ResponseAt == nil {
			a.ResponseAt = &now
		}
		a.ResponseReceived = true
	}
	return nil
}

// RecordResponse marks the attempt responded with classified content.
func (a *OutreachAttempt) RecordResponse(content string, tone ResponseTone, now time.Time) error {
	if err := a.Transition(AttemptResponded, now); err != nil {
		return err
	}
	a.ResponseContent = content
	a.ResponseTone = tone
	return nil
}

// FollowUpDue reports whether a follow-up should be sent.
func (a *OutreachAttempt) FollowUpDue(now time.Time) bool {
	return a.NextFollowUpAt != nil && !now.Before(*a.NextFollowUpAt)
}

// MarkFollowUpSent bumps the counter and clears the due date until the
// attempt is explicitly rescheduled.
func (a *OutreachAttempt) MarkFollowUpSent(now time.Time) {
	a.FollowUpCount++
	a.LastFollowUpAt = &now
	a.NextFollowUpAt = nil
}

// ScheduleFollowUp sets the next due date.
func (a *OutreachAttempt) ScheduleFollowUp(at time.Time) {
	a.NextFollowUpAt = &at
}
