package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Validate checks the knobs the daemon cannot run without. Called at
// startup; a failing config aborts with a non-zero exit before anything
// partially starts.
func Validate(cfg Config) error {
	var errs []string

	if cfg.Search.IntervalMinutes <= 0 {
		errs = append(errs, "search.interval_minutes must be > 0")
	}
	for i, t := range cfg.Search.Times {
		if _, _, err := ParseHHMM(t); err != nil {
			errs = append(errs, fmt.Sprintf("search.times[%d]: %v", i, err))
		}
	}
	if cfg.Outreach.MaxPerDay < 0 {
		errs = append(errs, "outreach.max_per_day must be >= 0")
	}
	if cfg.Outreach.MinScore < 0 || cfg.Outreach.MinScore > 100 {
		errs = append(errs, "outreach.min_score must be in 0..100")
	}
	for _, kv := range []struct{ name, val string }{
		{"outreach.reset_time", cfg.Outreach.ResetTime},
		{"maintenance.backup_time", cfg.Maintenance.BackupTime},
		{"maintenance.report_time", cfg.Maintenance.ReportTime},
		{"maintenance.sweep_time", cfg.Maintenance.SweepTime},
	} {
		if _, _, err := ParseHHMM(kv.val); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", kv.name, err))
		}
	}
	if cfg.Maintenance.RetentionDays <= 0 {
		errs = append(errs, "maintenance.retention_days must be > 0")
	}
	if tz := strings.TrimSpace(cfg.App.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Sprintf("app.timezone: %v", err))
		}
	}
	if cfg.Sources.Mailbox.Enabled {
		if strings.TrimSpace(cfg.Sources.Mailbox.IMAPHost) == "" {
			errs = append(errs, "sources.mailbox.imap_host is required when mailbox is enabled")
		}
		if strings.TrimSpace(cfg.Sources.Mailbox.Username) == "" {
			errs = append(errs, "sources.mailbox.username is required when mailbox is enabled")
		}
	}
	if cfg.Notify.Email.Enabled {
		if strings.TrimSpace(cfg.Notify.Email.SMTPHost) == "" && strings.TrimSpace(cfg.Notify.Email.To) != "" {
			errs = append(errs, "notify.email.smtp_host is required when email notifications are enabled")
		}
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

// ParseHHMM parses a "HH:MM" wall-clock string.
func ParseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
