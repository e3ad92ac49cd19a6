package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// OverlayEnv applies environment overrides on top of the file config.
// Credentials and per-deployment knobs live in the environment (or a .env
// file) so the YAML file can be committed without secrets.
func OverlayEnv(cfg *Config) {
	// Missing .env is fine; real env vars still apply.
	_ = godotenv.Load()

	if v := os.Getenv("JOBHUNTER_LISTEN_ADDR"); v != "" {
		cfg.App.ListenAddr = v
	}
	if v := os.Getenv("JOB_KEYWORDS"); v != "" {
		cfg.Search.Keywords = splitList(v)
	}
	if v := os.Getenv("JOB_LOCATION"); v != "" {
		cfg.Search.Location = v
	}
	if v := os.Getenv("SEARCH_TIMES"); v != "" {
		cfg.Search.Times = splitList(v)
	}
	if v := os.Getenv("SEARCH_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Search.IntervalMinutes = n
		}
	}
	if v := os.Getenv("AUTO_APPLY"); v != "" {
		cfg.Outreach.AutoApply = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("MIN_MATCH_SCORE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Outreach.MinScore = f
		}
	}
	if v := os.Getenv("MAX_APPLICATIONS_PER_DAY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Outreach.MaxPerDay = n
		}
	}
	if v := os.Getenv("IMAP_USERNAME"); v != "" {
		cfg.Sources.Mailbox.Username = v
	}
	if v := os.Getenv("NOTIFY_EMAIL_TO"); v != "" {
		cfg.Notify.Email.To = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Notify.Telegram.ChatID = n
		}
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
