package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hamed0406/urlchecker/internal/domain"
	"github.com/hamed0406/urlchecker/internal/repo"
)

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron_"+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron_"+msg, append(keysAndValues, "error", err)...)
}

type job struct {
	entry  cron.EntryID
	cancel context.CancelFunc
}

// Scheduler keeps one recurring job per check definition. A job runs as soon
// as it is scheduled and then every Frequency seconds; a run that is still
// going when the next one is due makes that next run skip.
type Scheduler struct {
	log    *zap.Logger
	cron   *cron.Cron
	clog   cron.Logger
	runner *Rechecker

	mu      sync.Mutex
	base    context.Context
	stop    context.CancelFunc
	jobs    map[int64]job
	stopped bool
	kicks   sync.WaitGroup // immediate runs started by Schedule
}

func New(log *zap.Logger, runner *Rechecker) *Scheduler {
	clog := cronLogger{s: log.Sugar()}
	base, stop := context.WithCancel(context.Background())
	return &Scheduler{
		log:    log,
		cron:   cron.New(cron.WithLogger(clog), cron.WithChain(cron.Recover(clog))),
		clog:   clog,
		runner: runner,
		base:   base,
		stop:   stop,
		jobs:   make(map[int64]job),
	}
}

// Start schedules every stored check and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context, checks repo.CheckStore) error {
	all, _, err := checks.ListChecks(ctx, repo.ListQuery{})
	if err != nil {
		return fmt.Errorf("load checks: %w", err)
	}
	for _, c := range all {
		s.Schedule(c)
	}
	s.cron.Start()
	s.log.Info("scheduler_started", zap.Int("jobs", len(all)))
	return nil
}

// Schedule starts the job for c, replacing any job it already had.
func (s *Scheduler) Schedule(c domain.CheckDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.removeLocked(c.ID)

	ctx, cancel := context.WithCancel(s.base)
	id := c.ID
	run := cron.NewChain(cron.SkipIfStillRunning(s.clog)).Then(cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		s.runner.Check(ctx, id)
	}))
	every := time.Duration(c.Frequency) * time.Second
	entry := s.cron.Schedule(cron.Every(every), run)
	s.jobs[id] = job{entry: entry, cancel: cancel}

	s.kicks.Add(1)
	go func() {
		defer s.kicks.Done()
		run.Run()
	}()
	s.log.Info("job_scheduled", zap.Int64("check_id", id), zap.Duration("every", every))
}

// Unschedule stops the job of a check and cancels a run in progress.
func (s *Scheduler) Unschedule(checkID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeLocked(checkID) {
		s.log.Info("job_removed", zap.Int64("check_id", checkID))
	}
}

func (s *Scheduler) removeLocked(checkID int64) bool {
	j, ok := s.jobs[checkID]
	if !ok {
		return false
	}
	s.cron.Remove(j.entry)
	j.cancel()
	delete(s.jobs, checkID)
	return true
}

// Jobs returns the ids of the checks that currently have a job.
func (s *Scheduler) Jobs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.jobs))
	for id := range s.jobs {
		out = append(out, id)
	}
	return out
}

// Stop cancels every job and waits, up to ctx, for runs in progress: both
// the cron ticks and the immediate runs started by Schedule.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.stop()
	ticks := s.cron.Stop().Done()
	kicked := make(chan struct{})
	go func() {
		s.kicks.Wait()
		close(kicked)
	}()
	for _, ch := range []<-chan struct{}{ticks, kicked} {
		select {
		case <-ch:
		case <-ctx.Done():
			s.log.Warn("scheduler_stop_timeout", zap.Error(ctx.Err()))
			return
		}
	}
	s.log.Info("scheduler_stopped")
}
