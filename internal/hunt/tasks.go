package hunt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/adamsnows/jobhunter-bot/internal/domain"
	"github.com/adamsnows/jobhunter-bot/internal/events"
)

// RunFollowUps sends a follow-up for every attempt whose next follow-up
// date has arrived. Follow-ups refresh an existing conversation, so
// they do not consume daily outreach quota.
func (o *Orchestrator) RunFollowUps(ctx context.Context) error {
	if o.applier == nil {
		return nil
	}
	due, err := o.store.DueFollowUps(ctx, o.now())
	if err != nil {
		return fmt.Errorf("load due follow-ups: %w", err)
	}
	for _, a := range due {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := o.store.GetPosting(ctx, a.PostingID)
		if err != nil {
			o.log.Warn("follow-up posting lookup failed",
				slog.String("attempt", a.ID),
				slog.String("err", err.Error()))
			continue
		}
		subject, body := composeFollowUp(p, a)
		sctx, cancel := context.WithTimeout(ctx, o.params.SendTimeout)
		err = o.sendFollowUp(sctx, p, subject, body)
		cancel()
		if err != nil {
			o.log.Warn("follow-up send failed",
				slog.String("attempt", a.ID),
				slog.String("err", err.Error()))
			continue
		}

		a.MarkFollowUpSent(o.now())
		if o.params.FollowUpDays > 0 && a.FollowUpCount < 2 {
			// at most two nudges per attempt, then we let it rest
			a.ScheduleFollowUp(o.now().AddDate(0, 0, o.params.FollowUpDays))
		}
		if err := o.store.SaveAttempt(ctx, a); err != nil {
			o.log.Warn("save follow-up failed",
				slog.String("attempt", a.ID),
				slog.String("err", err.Error()))
			continue
		}
		o.log.Info("follow-up sent",
			slog.String("attempt", a.ID),
			slog.String("posting", p.ID),
			slog.Int("count", a.FollowUpCount))
	}
	return nil
}

func (o *Orchestrator) sendFollowUp(ctx context.Context, p domain.Posting, subject, body string) error {
	fu, ok := o.applier.(followUpSender)
	if !ok {
		return fmt.Errorf("applier cannot send follow-ups")
	}
	return fu.SendFollowUp(ctx, p, subject, body)
}

type followUpSender interface {
	SendFollowUp(ctx context.Context, p domain.Posting, subject, body string) error
}

// SendFollowUp delivers follow-up text to the posting contact.
func (e *EmailApplier) SendFollowUp(ctx context.Context, p domain.Posting, subject, body string) error {
	if strings.TrimSpace(p.ContactEmail) == "" {
		return fmt.Errorf("posting %s has no contact email", p.ID)
	}
	return e.email.SendTo(ctx, p.ContactEmail, subject, body)
}

// RunDailyReport mails the operator today's numbers.
func (o *Orchestrator) RunDailyReport(ctx context.Context) error {
	if o.reporter == nil {
		return nil
	}
	now := o.now().In(o.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, o.loc)
	stats, err := o.store.Stats(ctx, dayStart)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Daily report for %s\n\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "Postings found today:   %d\n", stats.FoundToday)
	fmt.Fprintf(&b, "Applications sent:      %d\n", stats.SentToday)
	fmt.Fprintf(&b, "Average score today:    %.1f\n", stats.AverageScoreToday)
	fmt.Fprintf(&b, "Open attempts:          %d\n", stats.OpenAttempts)
	fmt.Fprintf(&b, "Postings tracked:       %d\n", stats.TotalPostings)

	o.publish(events.TypeDailyReport, stats)
	if err := o.reporter.Send(ctx, "jobhunter daily report", b.String()); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	return nil
}

// RunSweep deletes terminal postings older than the retention horizon.
func (o *Orchestrator) RunSweep(ctx context.Context) error {
	if o.params.RetentionDays <= 0 {
		return nil
	}
	horizon := o.now().AddDate(0, 0, -o.params.RetentionDays)
	n, err := o.store.SweepExpired(ctx, horizon)
	if err != nil {
		return fmt.Errorf("retention sweep: %w", err)
	}
	if n > 0 {
		o.log.Info("retention sweep", slog.Int64("deleted", n))
	}
	return nil
}

// RunBackup snapshots the database. Failures are the caller's to log;
// a bad backup never blocks anything else.
func (o *Orchestrator) RunBackup(ctx context.Context) error {
	if o.params.BackupDir == "" {
		return nil
	}
	path, err := o.store.Backup(ctx, o.params.BackupDir, o.now())
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	o.log.Info("backup written", slog.String("path", path))
	return nil
}

// ResetQuota is the scheduled daily counter reset.
func (o *Orchestrator) ResetQuota(ctx context.Context) error {
	return o.throttle.ResetDaily(ctx)
}
