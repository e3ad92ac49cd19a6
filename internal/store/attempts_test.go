package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adamsnows/jobhunter-bot/internal/domain"
)

func seedPosting(t *testing.T, s *Store, url string) string {
	t.Helper()
	id, _, err := s.UpsertPosting(context.Background(), candidate(url), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func seedState(t *testing.T, s *Store, day string) {
	t.Helper()
	if _, err := s.InitDaemonState(context.Background(), day, time.Now()); err != nil {
		t.Fatal(err)
	}
}

func TestCreateAttempt_OpenAttemptGate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	pid := seedPosting(t, s, "https://example.com/jobs/a1")
	now := time.Now()

	first := domain.NewAttempt(pid, domain.MethodEmail, now)
	if err := s.CreateAttempt(ctx, first); err != nil {
		t.Fatal(err)
	}

	// pending blocks a second attempt
	if err := s.CreateAttempt(ctx, domain.NewAttempt(pid, domain.MethodEmail, now)); !errors.Is(err, domain.ErrOpenAttempt) {
		t.Fatalf("second attempt while pending: got %v, want ErrOpenAttempt", err)
	}

	// sent still blocks
	if err := first.Transition(domain.AttemptSent, now); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveAttempt(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateAttempt(ctx, domain.NewAttempt(pid, domain.MethodEmail, now)); !errors.Is(err, domain.ErrOpenAttempt) {
		t.Fatalf("second attempt while sent: got %v, want ErrOpenAttempt", err)
	}

	// terminal failed frees the slot
	if err := first.Transition(domain.AttemptFailed, now); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveAttempt(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateAttempt(ctx, domain.NewAttempt(pid, domain.MethodEmail, now)); err != nil {
		t.Fatalf("attempt after terminal state: %v", err)
	}
}

func TestMarkSent_QuotaTransaction(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	day := "2025-03-01"
	seedState(t, s, day)
	now := time.Now()

	var attempts []*domain.OutreachAttempt
	for i := 0; i < 3; i++ {
		pid := seedPosting(t, s, "https://example.com/jobs/q"+string(rune('1'+i)))
		a := domain.NewAttempt(pid, domain.MethodEmail, now)
		if err := s.CreateAttempt(ctx, a); err != nil {
			t.Fatal(err)
		}
		attempts = append(attempts, a)
	}

	const maxPerDay = 2
	sent := 0
	for _, a := range attempts {
		err := s.MarkSent(ctx, a, day, maxPerDay, now)
		if err == nil {
			sent++
			continue
		}
		if !errors.Is(err, domain.ErrQuotaExhausted) {
			t.Fatalf("MarkSent: %v", err)
		}
	}
	if sent != maxPerDay {
		t.Fatalf("sent %d, want %d", sent, maxPerDay)
	}

	ds, err := s.DaemonState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ds.AttemptsSentToday != maxPerDay {
		t.Fatalf("counter = %d, want %d", ds.AttemptsSentToday, maxPerDay)
	}

	// the rejected attempt's row must still be pending: the transition and
	// the counter move together or not at all
	third, err := s.GetAttempt(ctx, attempts[2].ID)
	if err != nil {
		t.Fatal(err)
	}
	if third.State != domain.AttemptPending {
		t.Fatalf("over-quota attempt state = %s, want pending", third.State)
	}
	if third.SentAt != nil {
		t.Error("over-quota attempt carries a sent_at")
	}
}

func TestMarkSent_AfterReset(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedState(t, s, "2025-03-01")
	now := time.Now()

	pid := seedPosting(t, s, "https://example.com/jobs/r1")
	a := domain.NewAttempt(pid, domain.MethodEmail, now)
	if err := s.CreateAttempt(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkSent(ctx, a, "2025-03-01", 1, now); err != nil {
		t.Fatal(err)
	}

	// next day: reset zeroes the counter and sends flow again
	if err := s.ResetDay(ctx, "2025-03-02"); err != nil {
		t.Fatal(err)
	}
	ds, _ := s.DaemonState(ctx)
	if ds.AttemptsSentToday != 0 {
		t.Fatalf("counter after reset = %d", ds.AttemptsSentToday)
	}

	pid2 := seedPosting(t, s, "https://example.com/jobs/r2")
	b := domain.NewAttempt(pid2, domain.MethodEmail, now)
	if err := s.CreateAttempt(ctx, b); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkSent(ctx, b, "2025-03-02", 1, now); err != nil {
		t.Fatalf("send after reset: %v", err)
	}
}

func TestAttemptRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	pid := seedPosting(t, s, "https://example.com/jobs/rt")
	now := time.Now().Truncate(time.Second).UTC()

	a := domain.NewAttempt(pid, domain.MethodEmail, now)
	a.Recipient = "jobs@acme.example"
	a.Subject = "Application: Backend Developer"
	a.ScoreAtAttempt = 82.7
	if err := s.CreateAttempt(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := a.Transition(domain.AttemptSent, now.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	a.ScheduleFollowUp(now.Add(7 * 24 * time.Hour))
	if err := s.SaveAttempt(ctx, a); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetAttempt(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != domain.AttemptSent || got.SentAt == nil {
		t.Fatalf("round-trip lost state: %+v", got)
	}
	if got.Recipient != a.Recipient || got.ScoreAtAttempt != 82.7 {
		t.Errorf("round-trip lost fields: %+v", got)
	}
	if got.NextFollowUpAt == nil {
		t.Fatal("round-trip lost follow-up date")
	}

	due, err := s.DueFollowUps(ctx, now.Add(8*24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].ID != a.ID {
		t.Fatalf("due follow-ups = %v", due)
	}
	if due, _ := s.DueFollowUps(ctx, now); len(due) != 0 {
		t.Error("follow-up due before its date")
	}
}

func TestInitDaemonState_DayRollover(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.InitDaemonState(ctx, "2025-03-01", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordDiscovery(ctx, 4, time.Now()); err != nil {
		t.Fatal(err)
	}

	// same-day restart keeps counters
	st, err := s.InitDaemonState(ctx, "2025-03-01", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if st.PostingsFoundToday != 4 {
		t.Fatalf("same-day restart lost counters: %d", st.PostingsFoundToday)
	}

	// next-day restart resets them
	st, err = s.InitDaemonState(ctx, "2025-03-02", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if st.PostingsFoundToday != 0 {
		t.Fatalf("new day kept stale counters: %d", st.PostingsFoundToday)
	}
}
