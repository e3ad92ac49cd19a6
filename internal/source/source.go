// Package source holds the discovery adapters. Each adapter turns an
// external feed of job ads into posting candidates; the orchestrator
// fans out over all enabled adapters on every discovery cycle.
package source

import (
	"context"
	"log/slog"
	"strings"

	"github.com/adamsnows/jobhunter-bot/internal/config"
	"github.com/adamsnows/jobhunter-bot/internal/domain"
	"github.com/adamsnows/jobhunter-bot/internal/secrets"
)

// Source is one discovery adapter. Search returns candidates already
// filtered to the given keywords; adapters must honor ctx cancellation
// and keep per-site failures to themselves (partial results are fine).
type Source interface {
	Name() string
	Search(ctx context.Context, keywords []string, location string) ([]domain.PostingCandidate, error)
	Close() error
}

// FromConfig builds every enabled adapter. The password lookup is only
// called for adapters that need a credential, so a missing keyring entry
// does not break the others.
func FromConfig(cfg config.Config, password func(account string) (string, error), log *slog.Logger) []Source {
	var out []Source

	if cfg.Sources.Boards.Enabled && len(cfg.Sources.Boards.Sites) > 0 {
		limiter := NewHostLimiter(cfg.Sources.Boards.Rate.ReqPerSec, cfg.Sources.Boards.Rate.Burst)
		out = append(out, NewBoards(cfg.Sources.Boards.Sites, limiter, log))
	}
	if cfg.Sources.Feed.Enabled && len(cfg.Sources.Feed.Feeds) > 0 {
		out = append(out, NewFeed(cfg.Sources.Feed.Feeds, log))
	}
	if cfg.Sources.Mailbox.Enabled {
		mcfg := cfg.Sources.Mailbox
		mcfg.KeyringAccount = secrets.IMAPAccount(cfg)
		out = append(out, NewMailbox(mcfg, password, log))
	}
	return out
}

// matchesKeywords reports whether any keyword has all of its words
// present in the haystack. An empty keyword list matches everything.
func matchesKeywords(haystack string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	hay := strings.ToLower(haystack)
	for _, kw := range keywords {
		words := strings.Fields(strings.ToLower(kw))
		if len(words) == 0 {
			continue
		}
		all := true
		for _, w := range words {
			if !strings.Contains(hay, w) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

func looksRemote(fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), "remote") {
			return true
		}
	}
	return false
}
