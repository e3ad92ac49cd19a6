// jobhunterd is the job-hunting daemon: it discovers postings on a
// schedule, scores them against the operator's profile, sends outreach
// within a daily quota, and serves a local dashboard API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/adamsnows/jobhunter-bot/internal/config"
	"github.com/adamsnows/jobhunter-bot/internal/control"
	"github.com/adamsnows/jobhunter-bot/internal/events"
	"github.com/adamsnows/jobhunter-bot/internal/httpapi"
	"github.com/adamsnows/jobhunter-bot/internal/hunt"
	"github.com/adamsnows/jobhunter-bot/internal/match"
	"github.com/adamsnows/jobhunter-bot/internal/notify"
	"github.com/adamsnows/jobhunter-bot/internal/scheduler"
	"github.com/adamsnows/jobhunter-bot/internal/secrets"
	"github.com/adamsnows/jobhunter-bot/internal/source"
	"github.com/adamsnows/jobhunter-bot/internal/store"
	"github.com/adamsnows/jobhunter-bot/internal/throttle"
)

func main() {
	verb := "start"
	if len(os.Args) > 1 {
		verb = os.Args[1]
	}

	dataDir := os.Getenv("JOBHUNTER_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}

	switch verb {
	case "start":
		if err := run(dataDir); err != nil {
			fmt.Fprintln(os.Stderr, "jobhunterd:", err)
			os.Exit(1)
		}
	case "stop":
		if err := control.Stop(dataDir); err != nil {
			fmt.Fprintln(os.Stderr, "jobhunterd:", err)
			os.Exit(1)
		}
		fmt.Println("stop signal sent")
	case "status":
		running, pid, err := control.Status(dataDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "jobhunterd:", err)
			os.Exit(1)
		}
		if running {
			fmt.Printf("running (pid %d)\n", pid)
		} else {
			fmt.Println("not running")
		}
	default:
		fmt.Fprintf(os.Stderr, "usage: jobhunterd [start|stop|status]\n")
		os.Exit(2)
	}
}

func run(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	userCfgPath, err := config.EnsureUserConfig(dataDir)
	if err != nil {
		return fmt.Errorf("config bootstrap: %w", err)
	}
	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		config.OverlayEnv(&cfg)
		return cfg, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		return fmt.Errorf("config load (%s): %w", userCfgPath, err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}

	log := newLogger(cfg.App.LogLevel)

	loc := time.Local
	if cfg.App.Timezone != "" {
		if l, err := time.LoadLocation(cfg.App.Timezone); err == nil {
			loc = l
		} else {
			log.Warn("invalid timezone, using local",
				slog.String("tz", cfg.App.Timezone))
		}
	}

	pf, err := control.Acquire(dataDir)
	if err != nil {
		return err
	}
	defer pf.Release()

	profile, err := config.LoadProfile(dataDir)
	if err != nil {
		return fmt.Errorf("profile load: %w", err)
	}

	st, err := store.Open(filepath.Join(dataDir, "jobhunter.db"))
	if err != nil {
		return fmt.Errorf("store open: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	th := throttle.New(st, cfg.Outreach.MaxPerDay, loc)
	if _, err := st.InitDaemonState(ctx, th.Day(), time.Now()); err != nil {
		return fmt.Errorf("daemon state init: %w", err)
	}

	credential := func(account string) (string, error) {
		return secrets.GetWithEnv(account, "JOBHUNTER_PASSWORD")
	}
	sources := source.FromConfig(cfg, credential, log.With(slog.String("component", "source")))
	defer func() {
		for _, s := range sources {
			_ = s.Close()
		}
	}()

	reporter, err := notify.FromConfig(cfg, credential, log.With(slog.String("component", "notify")))
	if err != nil {
		return fmt.Errorf("notifier setup: %w", err)
	}

	var applier hunt.Applier
	if cfg.Notify.Email.Enabled {
		applier = hunt.NewEmailApplier(notify.NewEmail(cfg, credential))
	}

	hub := events.NewHub()
	orch := hunt.New(st, match.WeightedScorer{}, th, sources, applier, reporter, hub,
		profile, hunt.Params{
			Keywords:      cfg.Search.Keywords,
			Location:      cfg.Search.Location,
			MinScore:      cfg.Outreach.MinScore,
			AutoApply:     cfg.Outreach.AutoApply,
			SearchTimeout: cfg.SearchTimeout(),
			SendTimeout:   cfg.SendTimeout(),
			FollowUpDays:  cfg.Outreach.FollowUpDays,
			RetentionDays: cfg.Maintenance.RetentionDays,
			BackupDir:     filepath.Join(dataDir, "backups"),
		}, loc, log.With(slog.String("component", "hunt")))

	sched := scheduler.New(loc, log.With(slog.String("component", "scheduler")))
	if err := registerTasks(sched, cfg, orch); err != nil {
		return fmt.Errorf("schedule tasks: %w", err)
	}

	cfgVal := &atomic.Value{}
	cfgVal.Store(cfg)
	api := httpapi.New(httpapi.Deps{
		Store:        st,
		Hub:          hub,
		Log:          log.With(slog.String("component", "http")),
		Loc:          loc,
		CfgVal:       cfgVal,
		UserCfgPath:  userCfgPath,
		LoadCfg:      loadCfg,
		RunDiscovery: func() error { return sched.RunNow("discovery") },
	})

	ln, err := net.Listen("tcp", cfg.App.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.App.ListenAddr, err)
	}
	srv := &http.Server{Handler: api, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error("http server", slog.String("err", err.Error()))
		}
	}()

	sched.Start()
	log.Info("jobhunterd started",
		slog.String("addr", cfg.App.ListenAddr),
		slog.String("data_dir", dataDir),
		slog.Int("sources", len(sources)))

	// first discovery shortly after boot rather than waiting a full interval
	go func() {
		select {
		case <-time.After(10 * time.Second):
			_ = sched.RunNow("discovery")
		case <-ctx.Done():
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	sched.Stop(shutdownCtx)
	_ = srv.Shutdown(shutdownCtx)
	return nil
}

func registerTasks(sched *scheduler.Service, cfg config.Config, orch *hunt.Orchestrator) error {
	discovery := scheduler.Every(cfg.DiscoveryInterval())
	if len(cfg.Search.Times) > 0 {
		daily, err := scheduler.DailyAt(cfg.Search.Times...)
		if err != nil {
			return err
		}
		discovery = daily
	}
	if err := sched.Schedule("discovery", discovery, orch.RunCycle); err != nil {
		return err
	}

	reset, err := scheduler.DailyAt(cfg.Outreach.ResetTime)
	if err != nil {
		return err
	}
	if err := sched.Schedule("quota-reset", reset, orch.ResetQuota); err != nil {
		return err
	}

	followUps := scheduler.Every(1 * time.Hour)
	if err := sched.Schedule("follow-ups", followUps, orch.RunFollowUps); err != nil {
		return err
	}

	report, err := scheduler.DailyAt(cfg.Maintenance.ReportTime)
	if err != nil {
		return err
	}
	if err := sched.Schedule("daily-report", report, orch.RunDailyReport); err != nil {
		return err
	}

	sweep, err := scheduler.DailyAt(cfg.Maintenance.SweepTime)
	if err != nil {
		return err
	}
	if err := sched.Schedule("retention-sweep", sweep, orch.RunSweep); err != nil {
		return err
	}

	backup, err := scheduler.DailyAt(cfg.Maintenance.BackupTime)
	if err != nil {
		return err
	}
	return sched.Schedule("backup", backup, orch.RunBackup)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
