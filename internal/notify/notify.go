// Package notify delivers outreach messages and operator reports.
// Outreach goes to a posting's contact; reports go to the operator's
// own channels (email, telegram).
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/adamsnows/jobhunter-bot/internal/config"
)

// Notifier is one delivery channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, subject, body string) error
}

// Report priorities. Subjects get tagged so urgent ones stand out in a
// chat or inbox.
const (
	PriorityInfo   = 1
	PriorityHigh   = 5
	PriorityUrgent = 8
)

// TagSubject prefixes a subject per its priority.
func TagSubject(priority int, subject string) string {
	switch {
	case priority >= PriorityUrgent:
		return "🚨 " + subject
	case priority >= PriorityHigh:
		return "⚠️ " + subject
	default:
		return subject
	}
}

// Multi fans a message out to every channel. One failing channel does
// not stop the others; all errors come back joined.
type Multi struct {
	channels []Notifier
	log      *slog.Logger
}

func NewMulti(log *slog.Logger, channels ...Notifier) *Multi {
	return &Multi{channels: channels, log: log}
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) Send(ctx context.Context, subject, body string) error {
	var errs []error
	for _, n := range m.channels {
		if err := n.Send(ctx, subject, body); err != nil {
			m.log.Warn("notification send failed",
				slog.String("channel", n.Name()),
				slog.String("err", err.Error()))
			errs = append(errs, err)
			continue
		}
		m.log.Debug("notification sent", slog.String("channel", n.Name()))
	}
	return errors.Join(errs...)
}

// FromConfig builds the operator's report channels. Credentials are
// resolved lazily per send, so a missing token only fails that channel.
func FromConfig(cfg config.Config, password func(account string) (string, error), log *slog.Logger) (*Multi, error) {
	var channels []Notifier
	if cfg.Notify.Email.Enabled {
		channels = append(channels, NewEmail(cfg, password))
	}
	if cfg.Notify.Telegram.Enabled {
		tg, err := NewTelegram(cfg.Notify.Telegram.ChatID, password)
		if err != nil {
			return nil, err
		}
		channels = append(channels, tg)
	}
	if len(channels) == 0 {
		channels = append(channels, NewLog(log))
	}
	return NewMulti(log, channels...), nil
}
