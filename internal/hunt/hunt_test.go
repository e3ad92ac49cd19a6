package hunt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/adamsnows/jobhunter-bot/internal/domain"
	"github.com/adamsnows/jobhunter-bot/internal/source"
	"github.com/adamsnows/jobhunter-bot/internal/store"
	"github.com/adamsnows/jobhunter-bot/internal/throttle"
)

type fakeSource struct {
	name  string
	cands []domain.PostingCandidate
	err   error
}

func (f *fakeSource) Name() string { return f.name }
func (f *fakeSource) Close() error { return nil }

func (f *fakeSource) Search(ctx context.Context, keywords []string, location string) ([]domain.PostingCandidate, error) {
	return f.cands, f.err
}

type fakeApplier struct {
	err     error
	applied []string
}

func (f *fakeApplier) Apply(ctx context.Context, p domain.Posting, prof domain.Profile) (domain.AttemptMethod, error) {
	if f.err != nil {
		return domain.MethodEmail, f.err
	}
	f.applied = append(f.applied, p.ID)
	return domain.MethodEmail, nil
}

func (f *fakeApplier) SendFollowUp(ctx context.Context, p domain.Posting, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.applied = append(f.applied, "followup:"+p.ID)
	return nil
}

type fakeReporter struct {
	subjects []string
}

func (f *fakeReporter) Name() string { return "fake" }

func (f *fakeReporter) Send(ctx context.Context, subject, body string) error {
	f.subjects = append(f.subjects, subject)
	return nil
}

// scoreByTitle lets each test pin exact scores without exercising the
// real weighting.
type scoreByTitle map[string]float64

func (s scoreByTitle) Score(p domain.Posting, prof domain.Profile) float64 {
	if v, ok := s[p.Title]; ok {
		return v
	}
	return 10
}

func cand(n int) domain.PostingCandidate {
	return domain.PostingCandidate{
		Title:        fmt.Sprintf("Backend Engineer %d", n),
		Company:      "Acme",
		URL:          fmt.Sprintf("https://jobs.test/%d", n),
		ContactEmail: "hr@acme.test",
		Source:       domain.SourceFeed,
	}
}

type harness struct {
	store    *store.Store
	throttle *throttle.Throttle
	applier  *fakeApplier
	reporter *fakeReporter
	orch     *Orchestrator
}

func newHarness(t *testing.T, sources []source.Source, scorer scoreByTitle, maxPerDay int, params Params) *harness {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "hunt.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	th := throttle.New(st, maxPerDay, time.UTC)
	if _, err := st.InitDaemonState(context.Background(), th.Day(), time.Now()); err != nil {
		t.Fatalf("init daemon state: %v", err)
	}

	applier := &fakeApplier{}
	reporter := &fakeReporter{}
	if params.SearchTimeout == 0 {
		params.SearchTimeout = 5 * time.Second
	}
	if params.SendTimeout == 0 {
		params.SendTimeout = 5 * time.Second
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := New(st, scorer, th, sources, applier, reporter, nil,
		domain.DefaultProfile(), params, time.UTC, log)
	return &harness{store: st, throttle: th, applier: applier, reporter: reporter, orch: orch}
}

func TestRunCycleQuotaBoundsOutreach(t *testing.T) {
	scores := scoreByTitle{}
	var cands []domain.PostingCandidate
	for i := 1; i <= 5; i++ {
		c := cand(i)
		cands = append(cands, c)
		scores[c.Title] = float64(70 + i) // all above threshold, distinct rank
	}
	src := &fakeSource{name: "feed", cands: cands}
	h := newHarness(t, []source.Source{src}, scores, 2, Params{MinScore: 70, AutoApply: true})

	if err := h.orch.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if len(h.applier.applied) != 2 {
		t.Fatalf("applied %d times, want 2 (quota)", len(h.applier.applied))
	}
	sent, err := h.throttle.SentToday(context.Background())
	if err != nil {
		t.Fatalf("SentToday: %v", err)
	}
	if sent != 2 {
		t.Fatalf("sent counter = %d, want 2", sent)
	}

	// best-scored postings go first
	ps, err := h.store.QueryPostings(context.Background(), store.PostingFilter{Status: domain.PostingApplied})
	if err != nil {
		t.Fatalf("QueryPostings: %v", err)
	}
	if len(ps) != 2 {
		t.Fatalf("applied postings = %d, want 2", len(ps))
	}
	for _, p := range ps {
		if p.Score < 74 {
			t.Errorf("low-ranked posting %q (%.1f) was applied before better matches", p.Title, p.Score)
		}
	}
}

func TestRunCycleIsolatesFailingSource(t *testing.T) {
	bad := &fakeSource{name: "boards", err: errors.New("scrape blew up")}
	good := &fakeSource{name: "feed", cands: []domain.PostingCandidate{cand(1)}}
	scores := scoreByTitle{"Backend Engineer 1": 90}

	h := newHarness(t, []source.Source{bad, good}, scores, 5, Params{MinScore: 70, AutoApply: true})
	if err := h.orch.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(h.applier.applied) != 1 {
		t.Fatalf("applied %d times, want 1 from the healthy source", len(h.applier.applied))
	}
}

func TestRunCycleDedupAcrossCycles(t *testing.T) {
	src := &fakeSource{name: "feed", cands: []domain.PostingCandidate{cand(1)}}
	scores := scoreByTitle{"Backend Engineer 1": 90}
	h := newHarness(t, []source.Source{src}, scores, 5, Params{MinScore: 70, AutoApply: true})

	for i := 0; i < 2; i++ {
		if err := h.orch.RunCycle(context.Background()); err != nil {
			t.Fatalf("RunCycle #%d: %v", i+1, err)
		}
	}
	if len(h.applier.applied) != 1 {
		t.Fatalf("re-sighted posting triggered outreach again: %v", h.applier.applied)
	}

	ps, err := h.store.QueryPostings(context.Background(), store.PostingFilter{})
	if err != nil {
		t.Fatalf("QueryPostings: %v", err)
	}
	if len(ps) != 1 {
		t.Fatalf("store has %d postings, want 1", len(ps))
	}
}

func TestRunCycleFailedSendDoesNotConsumeQuota(t *testing.T) {
	src := &fakeSource{name: "feed", cands: []domain.PostingCandidate{cand(1)}}
	scores := scoreByTitle{"Backend Engineer 1": 90}
	h := newHarness(t, []source.Source{src}, scores, 5, Params{MinScore: 70, AutoApply: true})
	h.applier.err = errors.New("smtp down")

	if err := h.orch.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	sent, err := h.throttle.SentToday(context.Background())
	if err != nil {
		t.Fatalf("SentToday: %v", err)
	}
	if sent != 0 {
		t.Fatalf("failed send consumed quota: %d", sent)
	}

	ps, _ := h.store.QueryPostings(context.Background(), store.PostingFilter{})
	as, err := h.store.AttemptsForPosting(context.Background(), ps[0].ID)
	if err != nil {
		t.Fatalf("AttemptsForPosting: %v", err)
	}
	if len(as) != 1 || as[0].State != domain.AttemptFailed {
		t.Fatalf("expected one failed attempt, got %+v", as)
	}
}

func TestRunCycleBelowThresholdNoOutreach(t *testing.T) {
	src := &fakeSource{name: "feed", cands: []domain.PostingCandidate{cand(1)}}
	scores := scoreByTitle{"Backend Engineer 1": 42}
	h := newHarness(t, []source.Source{src}, scores, 5, Params{MinScore: 70, AutoApply: true})

	if err := h.orch.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(h.applier.applied) != 0 {
		t.Fatal("below-threshold posting was applied to")
	}
	if len(h.reporter.subjects) != 0 {
		t.Fatal("summary sent with no matches")
	}
}

func TestRunCycleAutoApplyOffStillNotifies(t *testing.T) {
	src := &fakeSource{name: "feed", cands: []domain.PostingCandidate{cand(1)}}
	scores := scoreByTitle{"Backend Engineer 1": 90}
	h := newHarness(t, []source.Source{src}, scores, 5, Params{MinScore: 70, AutoApply: false})

	if err := h.orch.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(h.applier.applied) != 0 {
		t.Fatal("auto_apply off but outreach happened")
	}
	if len(h.reporter.subjects) != 1 {
		t.Fatalf("expected one match summary, got %v", h.reporter.subjects)
	}
}

func TestRunFollowUps(t *testing.T) {
	src := &fakeSource{name: "feed", cands: []domain.PostingCandidate{cand(1)}}
	scores := scoreByTitle{"Backend Engineer 1": 90}
	h := newHarness(t, []source.Source{src}, scores, 5, Params{MinScore: 70, AutoApply: true, FollowUpDays: 7})

	if err := h.orch.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	// nothing due yet
	if err := h.orch.RunFollowUps(context.Background()); err != nil {
		t.Fatalf("RunFollowUps: %v", err)
	}
	if len(h.applier.applied) != 1 {
		t.Fatalf("follow-up fired early: %v", h.applier.applied)
	}

	// jump past the follow-up date
	h.orch.now = func() time.Time { return time.Now().AddDate(0, 0, 8) }
	if err := h.orch.RunFollowUps(context.Background()); err != nil {
		t.Fatalf("RunFollowUps: %v", err)
	}
	if len(h.applier.applied) != 2 {
		t.Fatalf("expected one follow-up, got %v", h.applier.applied)
	}

	ps, _ := h.store.QueryPostings(context.Background(), store.PostingFilter{})
	as, err := h.store.AttemptsForPosting(context.Background(), ps[0].ID)
	if err != nil {
		t.Fatalf("AttemptsForPosting: %v", err)
	}
	if as[0].FollowUpCount != 1 {
		t.Fatalf("follow-up count = %d, want 1", as[0].FollowUpCount)
	}
	if as[0].NextFollowUpAt == nil {
		t.Fatal("second follow-up not scheduled")
	}
}

func TestRunDailyReport(t *testing.T) {
	h := newHarness(t, nil, scoreByTitle{}, 5, Params{MinScore: 70})
	if err := h.orch.RunDailyReport(context.Background()); err != nil {
		t.Fatalf("RunDailyReport: %v", err)
	}
	if len(h.reporter.subjects) != 1 {
		t.Fatalf("report not sent: %v", h.reporter.subjects)
	}
}

func TestRunCycleRecoversFromPanic(t *testing.T) {
	src := &fakeSource{name: "feed", cands: []domain.PostingCandidate{cand(1)}}
	h := newHarness(t, []source.Source{src}, nil, 5, Params{MinScore: 70})
	// nil scorer map still works; force a panic through a nil scorer iface
	h.orch.scorer = nil

	err := h.orch.RunCycle(context.Background())
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
}
