// Package scheduler triggers the poll cycle on a cron expression or a fixed
// interval. Ticks that arrive while the previous run is still going are
// skipped.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "linotify/pkg/logx"
)

// Job is one triggered run. ctx is cancelled on Stop and bounded by RunTimeout.
type Job func(ctx context.Context)

type Config struct {
	Schedule   string
	Timezone   string
	RunTimeout time.Duration
}

type Scheduler struct {
	job Job
	log logx.Logger

	mu      sync.Mutex
	c       *cron.Cron
	entry   cron.EntryID
	spec    ParsedSpec
	cfg     Config
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

func New(job Job, log logx.Logger) *Scheduler {
	return &Scheduler{job: job, log: log.With(logx.String("comp", "scheduler"))}
}

// Validate checks a schedule/timezone pair without starting anything.
func Validate(cfg Config) error {
	if _, err := ParseSchedule(cfg.Schedule); err != nil {
		return err
	}
	_, err := location(cfg.Timezone)
	return err
}

func location(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// Start begins triggering the job. It is an error to Start twice.
func (s *Scheduler) Start(ctx context.Context, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	if err := s.installLocked(cfg); err != nil {
		s.cancel()
		return err
	}
	s.running = true
	return nil
}

// Reschedule swaps the schedule of a running scheduler. An invalid config
// leaves the current schedule in place.
func (s *Scheduler) Reschedule(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return fmt.Errorf("scheduler not running")
	}
	if cfg == s.cfg {
		return nil
	}
	old := s.c
	if err := s.installLocked(cfg); err != nil {
		return err
	}
	// The old cron finishes any in-flight job on its own.
	old.Stop()
	return nil
}

func (s *Scheduler) installLocked(cfg Config) error {
	spec, err := ParseSchedule(cfg.Schedule)
	if err != nil {
		return err
	}
	loc, err := location(cfg.Timezone)
	if err != nil {
		return err
	}

	var sched cron.Schedule
	if spec.Kind == SpecInterval {
		sched = cron.Every(spec.Every)
	} else {
		sched, err = cronParser.Parse(spec.Cron)
		if err != nil {
			return err
		}
	}

	cl := cronLogger{log: s.log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	entry := c.Schedule(sched, cron.FuncJob(s.tick))
	c.Start()

	s.c, s.entry, s.spec, s.cfg = c, entry, spec, cfg
	s.log.Info("schedule installed",
		logx.String("schedule", spec.String()),
		logx.String("timezone", loc.String()),
		logx.String("next", c.Entry(entry).Next.Format(time.RFC3339)),
	)
	return nil
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx, timeout := s.ctx, s.cfg.RunTimeout
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	s.job(ctx)
}

// RunNow triggers the job immediately on the caller's goroutine.
func (s *Scheduler) RunNow() {
	s.tick()
}

// Next returns the next planned trigger, or zero when not running.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.c.Entry(s.entry).Next
}

// Stop halts triggering, cancels the running job's context and waits for it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	c := s.c
	s.cancel()
	s.mu.Unlock()
	<-c.Stop().Done()
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	// cron logs every wake-up; skip building fields unless debug is on
	if !l.log.Enabled(logx.LevelDebug) {
		return
	}
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Warn("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
