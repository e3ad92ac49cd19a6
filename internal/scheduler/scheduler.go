// Package scheduler runs named recurring tasks on interval, daily
// wall-clock, or cron triggers. A task that is still running when its
// next fire comes due is skipped, never queued.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/adamsnows/jobhunter-bot/internal/config"
)

// Task is one unit of scheduled work. The context is cancelled when
// the scheduler stops.
type Task func(ctx context.Context) error

// Trigger describes when a task fires. Build one with Every, DailyAt
// or Cron.
type Trigger struct {
	specs []string
}

// Every fires at a fixed interval, first fire one interval after Start.
func Every(d time.Duration) Trigger {
	return Trigger{specs: []string{fmt.Sprintf("@every %s", d.String())}}
}

// DailyAt fires once per listed HH:MM wall-clock time in the
// scheduler's location.
func DailyAt(times ...string) (Trigger, error) {
	var t Trigger
	for _, s := range times {
		h, m, err := config.ParseHHMM(s)
		if err != nil {
			return Trigger{}, err
		}
		t.specs = append(t.specs, fmt.Sprintf("%d %d * * *", m, h))
	}
	if len(t.specs) == 0 {
		return Trigger{}, errors.New("daily trigger needs at least one time")
	}
	return t, nil
}

// Cron fires per a standard five-field cron spec.
func Cron(spec string) Trigger {
	return Trigger{specs: []string{spec}}
}

type entry struct {
	name    string
	running bool
	task    Task
}

// Service owns the cron runner and the per-task run state.
type Service struct {
	log *slog.Logger
	loc *time.Location

	mu      sync.Mutex
	c       *cron.Cron
	entries map[string]*entry

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(loc *time.Location, log *slog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		log:     log,
		loc:     loc,
		entries: map[string]*entry{},
		c: cron.New(
			cron.WithLocation(loc),
			cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		),
	}
}

// Schedule registers a named task. Names must be unique; the name is
// the unit of single-flight coalescing across all of its trigger specs.
func (s *Service) Schedule(name string, trg Trigger, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.entries[name]; dup {
		return fmt.Errorf("task %q already scheduled", name)
	}
	if len(trg.specs) == 0 {
		return fmt.Errorf("task %q has an empty trigger", name)
	}
	e := &entry{name: name, task: task}
	for _, spec := range trg.specs {
		if _, err := s.c.AddFunc(spec, func() { s.dispatch(e) }); err != nil {
			return fmt.Errorf("task %q spec %q: %w", name, spec, err)
		}
	}
	s.entries[name] = e
	return nil
}

// Start begins firing triggers. Tasks run until Stop.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx != nil {
		return
	}
	s.runCtx, s.cancel = context.WithCancel(context.Background())
	s.c.Start()
	s.log.Info("scheduler started",
		slog.String("tz", s.loc.String()),
		slog.Int("tasks", len(s.entries)))
}

// Stop halts triggers, cancels running tasks and waits for them up to
// the context deadline.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.runCtx == nil {
		s.mu.Unlock()
		return
	}
	cronDone := s.c.Stop().Done()
	s.cancel()
	s.runCtx = nil
	s.mu.Unlock()

	<-cronDone

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stopped with tasks still draining")
	}
}

// RunNow fires a scheduled task out of band, subject to the same
// single-flight rule as a trigger fire.
func (s *Service) RunNow(name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no task %q", name)
	}
	s.dispatch(e)
	return nil
}

func (s *Service) dispatch(e *entry) {
	s.mu.Lock()
	if s.runCtx == nil {
		s.mu.Unlock()
		return
	}
	if e.running {
		s.mu.Unlock()
		s.log.Info("task still running, skipping fire", slog.String("task", e.name))
		return
	}
	e.running = true
	ctx := s.runCtx
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			e.running = false
			s.mu.Unlock()
		}()
		s.runOne(ctx, e)
	}()
}

func (s *Service) runOne(ctx context.Context, e *entry) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("task panicked",
				slog.String("task", e.name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	start := time.Now()
	if err := e.task(ctx); err != nil {
		s.log.Warn("task failed",
			slog.String("task", e.name),
			slog.Duration("took", time.Since(start)),
			slog.String("err", err.Error()))
		return
	}
	s.log.Info("task ok",
		slog.String("task", e.name),
		slog.Duration("took", time.Since(start)))
}

