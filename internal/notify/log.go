package notify

import (
	"context"
	"log/slog"
)

// Log is the fallback channel when no real notifier is configured.
// Reports land in the daemon log instead of disappearing.
type Log struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *Log { return &Log{log: log} }

func (l *Log) Name() string { return "log" }

func (l *Log) Send(ctx context.Context, subject, body string) error {
	l.log.Info("notification",
		slog.String("subject", subject),
		slog.String("body", body))
	return nil
}
