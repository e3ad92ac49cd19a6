package hunt

import (
	"context"
	"fmt"
	"strings"

	"github.com/adamsnows/jobhunter-bot/internal/domain"
	"github.com/adamsnows/jobhunter-bot/internal/notify"
)

// EmailApplier sends the application to the posting's contact address.
// Postings without a contact cannot be auto-applied and fail the
// attempt, which keeps them visible for manual outreach.
type EmailApplier struct {
	email *notify.Email
}

func NewEmailApplier(email *notify.Email) *EmailApplier {
	return &EmailApplier{email: email}
}

func (e *EmailApplier) Apply(ctx context.Context, p domain.Posting, prof domain.Profile) (domain.AttemptMethod, error) {
	if strings.TrimSpace(p.ContactEmail) == "" {
		return domain.MethodEmail, fmt.Errorf("posting %s has no contact email", p.ID)
	}
	subject, body := composeApplication(p, prof)
	if err := e.email.SendTo(ctx, p.ContactEmail, subject, body); err != nil {
		return domain.MethodEmail, err
	}
	return domain.MethodEmail, nil
}

func composeApplication(p domain.Posting, prof domain.Profile) (subject, body string) {
	subject = fmt.Sprintf("Application: %s", p.Title)

	var b strings.Builder
	fmt.Fprintf(&b, "Hello,\n\n")
	fmt.Fprintf(&b, "I'm writing to apply for the %s position", p.Title)
	if p.Company != "" {
		fmt.Fprintf(&b, " at %s", p.Company)
	}
	b.WriteString(".\n\n")
	if prof.ExperienceYears > 0 {
		fmt.Fprintf(&b, "I have %d years of experience", prof.ExperienceYears)
		if len(prof.Skills) > 0 {
			fmt.Fprintf(&b, ", working mainly with %s", strings.Join(topN(prof.Skills, 5), ", "))
		}
		b.WriteString(".\n\n")
	} else if len(prof.Skills) > 0 {
		fmt.Fprintf(&b, "My main skills are %s.\n\n", strings.Join(topN(prof.Skills, 5), ", "))
	}
	if p.URL != "" {
		fmt.Fprintf(&b, "Posting: %s\n\n", p.URL)
	}
	b.WriteString("I'd be glad to share more details or schedule a conversation.\n\nBest regards")
	return subject, b.String()
}

func composeFollowUp(p domain.Posting, a *domain.OutreachAttempt) (subject, body string) {
	subject = fmt.Sprintf("Following up: %s", p.Title)

	var b strings.Builder
	b.WriteString("Hello,\n\n")
	fmt.Fprintf(&b, "I recently applied for the %s position", p.Title)
	if p.Company != "" {
		fmt.Fprintf(&b, " at %s", p.Company)
	}
	if a.SentAt != nil {
		fmt.Fprintf(&b, " on %s", a.SentAt.Format("January 2"))
	}
	b.WriteString(" and wanted to check in on the status of my application.\n\n")
	b.WriteString("I remain very interested in the role.\n\nBest regards")
	return subject, b.String()
}

func topN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
