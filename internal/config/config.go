package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		ListenAddr string `yaml:"listen_addr"`
		LogLevel   string `yaml:"log_level"`
		Timezone   string `yaml:"timezone"` // IANA TZ; empty = local
	} `yaml:"app"`

	Search struct {
		Keywords        []string `yaml:"keywords"`
		Location        string   `yaml:"location"`
		IntervalMinutes int      `yaml:"interval_minutes"`
		Times           []string `yaml:"times"` // daily wall-clock runs, "HH:MM"
	} `yaml:"search"`

	Outreach struct {
		AutoApply      bool    `yaml:"auto_apply"`
		MinScore       float64 `yaml:"min_score"`
		MaxPerDay      int     `yaml:"max_per_day"`
		ResetTime      string  `yaml:"reset_time"`       // daily counters, "HH:MM"
		FollowUpDays   int     `yaml:"follow_up_days"`   // schedule next follow-up after N days
		SendTimeoutSec int     `yaml:"send_timeout_sec"` // per outreach send
	} `yaml:"outreach"`

	Sources struct {
		SearchTimeoutSec int `yaml:"search_timeout_sec"` // per-source deadline

		Boards struct {
			Enabled bool           `yaml:"enabled"`
			Sites   []BoardSite    `yaml:"sites"`
			Rate    RateLimitKnobs `yaml:"rate"`
		} `yaml:"boards"`

		Feed struct {
			Enabled bool       `yaml:"enabled"`
			Feeds   []FeedSite `yaml:"feeds"`
		} `yaml:"feed"`

		Mailbox MailboxConfig `yaml:"mailbox"`
	} `yaml:"sources"`

	Notify struct {
		Email struct {
			Enabled  bool   `yaml:"enabled"`
			SMTPHost string `yaml:"smtp_host"`
			SMTPPort int    `yaml:"smtp_port"`
			From     string `yaml:"from"`
			To       string `yaml:"to"`
		} `yaml:"email"`
		Telegram struct {
			Enabled bool  `yaml:"enabled"`
			ChatID  int64 `yaml:"chat_id"`
		} `yaml:"telegram"`
	} `yaml:"notify"`

	Maintenance struct {
		BackupTime    string `yaml:"backup_time"`    // "HH:MM"
		ReportTime    string `yaml:"report_time"`    // "HH:MM"
		SweepTime     string `yaml:"sweep_time"`     // "HH:MM"
		RetentionDays int    `yaml:"retention_days"` // terminal postings older than this get swept
	} `yaml:"maintenance"`
}

type MailboxConfig struct {
	Enabled        bool     `yaml:"enabled"`
	IMAPHost       string   `yaml:"imap_host"`
	IMAPPort       int      `yaml:"imap_port"`
	Username       string   `yaml:"username"`
	Mailbox        string   `yaml:"mailbox"`
	SubjectAny     []string `yaml:"subject_any"`
	KeyringAccount string   `yaml:"keyring_account"`
}

type BoardSite struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type FeedSite struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type RateLimitKnobs struct {
	ReqPerSec float64 `yaml:"req_per_sec"`
	Burst     int     `yaml:"burst"`
}

func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// Default returns the documented defaults; Load overlays the user file on top.
func Default() Config {
	var cfg Config
	cfg.App.ListenAddr = "127.0.0.1:38471"
	cfg.App.LogLevel = "info"

	cfg.Search.Keywords = []string{"backend developer", "software engineer"}
	cfg.Search.IntervalMinutes = 240
	cfg.Search.Times = []string{"09:00", "14:00", "18:00"}

	cfg.Outreach.MinScore = 70
	cfg.Outreach.MaxPerDay = 10
	cfg.Outreach.ResetTime = "00:01"
	cfg.Outreach.FollowUpDays = 7
	cfg.Outreach.SendTimeoutSec = 60

	cfg.Sources.SearchTimeoutSec = 120
	cfg.Sources.Boards.Rate = RateLimitKnobs{ReqPerSec: 1.0, Burst: 2}
	cfg.Sources.Mailbox.Mailbox = "INBOX"
	cfg.Sources.Mailbox.IMAPPort = 993

	cfg.Notify.Email.Enabled = true
	cfg.Notify.Email.SMTPPort = 587

	cfg.Maintenance.BackupTime = "03:00"
	cfg.Maintenance.ReportTime = "23:00"
	cfg.Maintenance.SweepTime = "02:00"
	cfg.Maintenance.RetentionDays = 90

	return cfg
}

func (c Config) SearchTimeout() time.Duration {
	return time.Duration(c.Sources.SearchTimeoutSec) * time.Second
}

func (c Config) SendTimeout() time.Duration {
	return time.Duration(c.Outreach.SendTimeoutSec) * time.Second
}

func (c Config) DiscoveryInterval() time.Duration {
	return time.Duration(c.Search.IntervalMinutes) * time.Minute
}
