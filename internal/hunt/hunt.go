// Package hunt runs the discovery cycle: fan out over sources, dedup
// into the store, score new sightings and open outreach attempts for
// the best matches while the daily quota holds.
package hunt

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adamsnows/jobhunter-bot/internal/domain"
	"github.com/adamsnows/jobhunter-bot/internal/events"
	"github.com/adamsnows/jobhunter-bot/internal/match"
	"github.com/adamsnows/jobhunter-bot/internal/notify"
	"github.com/adamsnows/jobhunter-bot/internal/source"
	"github.com/adamsnows/jobhunter-bot/internal/store"
	"github.com/adamsnows/jobhunter-bot/internal/throttle"
)

// Applier performs the actual outreach for one posting and reports the
// method used, so the attempt record says how contact was made.
type Applier interface {
	Apply(ctx context.Context, p domain.Posting, prof domain.Profile) (domain.AttemptMethod, error)
}

// Params are the orchestration knobs, lifted from config at startup.
type Params struct {
	Keywords      []string
	Location      string
	MinScore      float64
	AutoApply     bool
	SearchTimeout time.Duration
	SendTimeout   time.Duration
	FollowUpDays  int
	RetentionDays int
	BackupDir     string
}

type Orchestrator struct {
	store    *store.Store
	scorer   match.Scorer
	throttle *throttle.Throttle
	sources  []source.Source
	applier  Applier
	reporter notify.Notifier
	hub      *events.Hub
	profile  domain.Profile
	params   Params
	loc      *time.Location
	log      *slog.Logger

	now func() time.Time
}

func New(
	st *store.Store,
	scorer match.Scorer,
	th *throttle.Throttle,
	sources []source.Source,
	applier Applier,
	reporter notify.Notifier,
	hub *events.Hub,
	profile domain.Profile,
	params Params,
	loc *time.Location,
	log *slog.Logger,
) *Orchestrator {
	if loc == nil {
		loc = time.Local
	}
	return &Orchestrator{
		store:    st,
		scorer:   scorer,
		throttle: th,
		sources:  sources,
		applier:  applier,
		reporter: reporter,
		hub:      hub,
		profile:  profile,
		params:   params,
		loc:      loc,
		log:      log,
		now:      time.Now,
	}
}

// RunCycle is one full discovery pass. It never panics out; a broken
// cycle is logged and the daemon lives to try again.
func (o *Orchestrator) RunCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("discovery cycle panicked: %v", r)
		}
	}()

	start := o.now()
	cands := o.discover(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	fresh, err := o.ingest(ctx, cands)
	if err != nil {
		return err
	}
	if err := o.store.RecordDiscovery(ctx, len(fresh), o.now()); err != nil {
		o.log.Warn("record discovery failed", slog.String("err", err.Error()))
	}

	matches := o.rank(fresh)
	sent := 0
	if o.params.AutoApply && o.applier != nil {
		sent, err = o.outreach(ctx, matches)
		if err != nil {
			return err
		}
	}

	o.log.Info("discovery cycle done",
		slog.Int("candidates", len(cands)),
		slog.Int("new", len(fresh)),
		slog.Int("matches", len(matches)),
		slog.Int("sent", sent),
		slog.Duration("took", time.Since(start)))
	o.publish(events.TypeCycleDone, map[string]any{
		"candidates": len(cands),
		"new":        len(fresh),
		"matches":    len(matches),
		"sent":       sent,
	})

	if len(matches) > 0 {
		o.summarize(ctx, matches, sent)
	}
	return nil
}

// discover fans out over all sources. Each source gets its own timeout
// and its failure stays its own; partial results always flow.
func (o *Orchestrator) discover(ctx context.Context) []domain.PostingCandidate {
	results := make(chan []domain.PostingCandidate, len(o.sources))

	var g errgroup.Group
	for _, src := range o.sources {
		src := src
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, o.params.SearchTimeout)
			defer cancel()

			found, err := src.Search(sctx, o.params.Keywords, o.params.Location)
			if err != nil {
				o.log.Warn("source search failed",
					slog.String("source", src.Name()),
					slog.String("err", err.Error()))
			}
			if len(found) > 0 {
				o.log.Info("source results",
					slog.String("source", src.Name()),
					slog.Int("count", len(found)))
				results <- found
			}
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	var out []domain.PostingCandidate
	for batch := range results {
		out = append(out, batch...)
	}
	return out
}

// ingest dedups candidates through the store and scores new sightings.
// Re-sighted postings keep their original score and status.
func (o *Orchestrator) ingest(ctx context.Context, cands []domain.PostingCandidate) ([]domain.Posting, error) {
	var fresh []domain.Posting
	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			return fresh, err
		}
		id, isNew, err := o.store.UpsertPosting(ctx, c, o.now())
		if err != nil {
			o.log.Warn("upsert failed",
				slog.String("url", c.URL),
				slog.String("err", err.Error()))
			continue
		}
		if !isNew {
			continue
		}
		p, err := o.store.GetPosting(ctx, id)
		if err != nil {
			return fresh, err
		}
		p.Score = o.scorer.Score(p, o.profile)
		if err := o.store.SetScore(ctx, id, p.Score); err != nil {
			return fresh, err
		}
		fresh = append(fresh, p)
		o.publish(events.TypePostingFound, map[string]any{
			"id":      p.ID,
			"title":   p.Title,
			"company": p.Company,
			"score":   p.Score,
		})
	}
	return fresh, nil
}

// rank keeps new postings above the score floor, best first.
func (o *Orchestrator) rank(fresh []domain.Posting) []domain.Posting {
	var out []domain.Posting
	for _, p := range fresh {
		if p.Score >= o.params.MinScore {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// outreach walks ranked matches and sends while the quota holds. Quota
// is only consumed by a successful send; a failed one records a failed
// attempt and moves on.
func (o *Orchestrator) outreach(ctx context.Context, matches []domain.Posting) (int, error) {
	sent := 0
	for _, p := range matches {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		ok, err := o.throttle.CanSend(ctx, p.ID)
		if err != nil {
			return sent, err
		}
		if !ok {
			continue
		}

		a := domain.NewAttempt(p.ID, domain.MethodEmail, o.now())
		if err := o.store.CreateAttempt(ctx, a); err != nil {
			o.log.Warn("create attempt failed",
				slog.String("posting", p.ID),
				slog.String("err", err.Error()))
			continue
		}
		o.publish(events.TypeAttemptCreated, map[string]any{
			"attempt": a.ID,
			"posting": p.ID,
		})

		sctx, cancel := context.WithTimeout(ctx, o.params.SendTimeout)
		method, sendErr := o.applier.Apply(sctx, p, o.profile)
		cancel()
		if sendErr != nil {
			o.log.Warn("outreach send failed",
				slog.String("posting", p.ID),
				slog.String("err", sendErr.Error()))
			o.failAttempt(ctx, a)
			continue
		}

		a.Method = method
		if o.params.FollowUpDays > 0 {
			a.ScheduleFollowUp(o.now().AddDate(0, 0, o.params.FollowUpDays))
		}
		if err := o.throttle.RecordSend(ctx, a); err != nil {
			o.log.Warn("record send failed",
				slog.String("attempt", a.ID),
				slog.String("err", err.Error()))
			continue
		}
		if err := o.store.SetStatus(ctx, p.ID, domain.PostingApplied); err != nil {
			o.log.Warn("set posting status failed",
				slog.String("posting", p.ID),
				slog.String("err", err.Error()))
		}
		sent++
		o.publish(events.TypeAttemptState, map[string]any{
			"attempt": a.ID,
			"posting": p.ID,
			"state":   string(a.State),
		})
		o.log.Info("outreach sent",
			slog.String("posting", p.ID),
			slog.String("title", p.Title),
			slog.Float64("score", p.Score))
	}
	return sent, nil
}

func (o *Orchestrator) failAttempt(ctx context.Context, a *domain.OutreachAttempt) {
	if err := a.Transition(domain.AttemptFailed, o.now()); err != nil {
		o.log.Warn("fail transition rejected", slog.String("err", err.Error()))
		return
	}
	if err := o.store.SaveAttempt(ctx, a); err != nil {
		o.log.Warn("save failed attempt", slog.String("err", err.Error()))
	}
}

// summarize notifies the operator about this cycle's matches.
func (o *Orchestrator) summarize(ctx context.Context, matches []domain.Posting, sent int) {
	if o.reporter == nil {
		return
	}
	body := fmt.Sprintf("%d new matches above %.0f, %d applications sent.\n\n",
		len(matches), o.params.MinScore, sent)
	limit := len(matches)
	if limit > 10 {
		limit = 10
	}
	for _, p := range matches[:limit] {
		body += fmt.Sprintf("%.1f  %s at %s\n      %s\n", p.Score, p.Title, p.Company, p.URL)
	}
	priority := notify.PriorityInfo
	if matches[0].Score >= 90 {
		priority = notify.PriorityHigh
	}
	subject := notify.TagSubject(priority, "New job matches")
	if err := o.reporter.Send(ctx, subject, body); err != nil {
		o.log.Warn("match summary notification failed", slog.String("err", err.Error()))
	}
}

func (o *Orchestrator) publish(typ string, data any) {
	if o.hub != nil {
		o.hub.Publish(events.MakeEvent("", typ, data))
	}
}
