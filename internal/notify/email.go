package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/adamsnows/jobhunter-bot/internal/config"
	"github.com/adamsnows/jobhunter-bot/internal/secrets"
)

// Email sends over plain SMTP with STARTTLS (port 587 style). The
// password comes from the keychain at send time.
type Email struct {
	host     string
	port     int
	from     string
	to       string
	account  string
	password func(account string) (string, error)

	// send is swappable for tests
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmail(cfg config.Config, password func(account string) (string, error)) *Email {
	return &Email{
		host:     cfg.Notify.Email.SMTPHost,
		port:     cfg.Notify.Email.SMTPPort,
		from:     cfg.Notify.Email.From,
		to:       cfg.Notify.Email.To,
		account:  secrets.SMTPAccount(cfg),
		password: password,
		send:     smtp.SendMail,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Send(ctx context.Context, subject, body string) error {
	return e.SendTo(ctx, e.to, subject, body)
}

// SendTo delivers to an arbitrary recipient; outreach uses this with
// the posting's contact address.
func (e *Email) SendTo(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("email: empty recipient")
	}
	pass, err := e.password(e.account)
	if err != nil {
		return fmt.Errorf("email credential: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.from, pass, e.host)
	msg := buildMessage(e.from, to, subject, body, time.Now())

	// net/smtp has no context support; run it in a goroutine and let
	// ctx abandon the wait. The dial timeout bounds the worst case.
	done := make(chan error, 1)
	go func() { done <- e.send(addr, auth, e.from, []string{to}, msg) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMessage(from, to, subject, body string, now time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// sanitizeHeader strips CRLF so a subject can never inject headers.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
