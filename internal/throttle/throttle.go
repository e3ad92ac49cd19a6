// Package throttle enforces the daily outreach quota. The counter lives in
// the store's daemon_state row so a restart inside the same local day picks
// up where it left off.
package throttle

import (
	"context"
	"time"

	"github.com/adamsnows/jobhunter-bot/internal/domain"
	"github.com/adamsnows/jobhunter-bot/internal/store"
)

const dayLayout = "2006-01-02"

type Throttle struct {
	store     *store.Store
	maxPerDay int
	loc       *time.Location
	now       func() time.Time
}

func New(st *store.Store, maxPerDay int, loc *time.Location) *Throttle {
	if loc == nil {
		loc = time.Local
	}
	return &Throttle{store: st, maxPerDay: maxPerDay, loc: loc, now: time.Now}
}

// Day returns the current local calendar day the quota is tracked under.
func (t *Throttle) Day() string {
	return t.now().In(t.loc).Format(dayLayout)
}

// CanSend reports whether outreach for the posting is currently allowed:
// quota headroom remains and the posting has no live attempt.
func (t *Throttle) CanSend(ctx context.Context, postingID string) (bool, error) {
	if t.maxPerDay <= 0 {
		return false, nil
	}
	st, err := t.store.DaemonState(ctx)
	if err != nil {
		return false, err
	}
	if st.Day == t.Day() && st.AttemptsSentToday >= t.maxPerDay {
		return false, nil
	}
	open, err := t.store.OpenAttemptExists(ctx, postingID)
	if err != nil {
		return false, err
	}
	return !open, nil
}

// RecordSend transitions the attempt to sent and bumps the daily counter in
// one store transaction. Returns domain.ErrQuotaExhausted when a concurrent
// send consumed the last slot.
func (t *Throttle) RecordSend(ctx context.Context, a *domain.OutreachAttempt) error {
	return t.store.MarkSent(ctx, a, t.Day(), t.maxPerDay, t.now())
}

// ResetDaily zeroes the counter for the new day. Safe to invoke twice on
// the same day.
func (t *Throttle) ResetDaily(ctx context.Context) error {
	return t.store.ResetDay(ctx, t.Day())
}

// SentToday exposes the current counter for status reporting.
func (t *Throttle) SentToday(ctx context.Context) (int, error) {
	st, err := t.store.DaemonState(ctx)
	if err != nil {
		return 0, err
	}
	if st.Day != t.Day() {
		return 0, nil
	}
	return st.AttemptsSentToday, nil
}
