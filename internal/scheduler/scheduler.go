// Package scheduler triggers batch runs on a cron expression.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSpec runs the batch once a day at 07:00.
const DefaultSpec = "0 7 * * *"

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron schedule. A trigger that fires while the
// previous run is still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	id     cron.EntryID
	job    Job
	ctx    context.Context
	logger *slog.Logger
}

// New parses spec (standard five-field syntax or a descriptor such as
// "@daily") and registers job.
func New(spec string, loc *time.Location, job Job, logger *slog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		job:    job,
		ctx:    context.Background(),
		logger: logger,
	}
	id, err := s.cron.AddFunc(spec, s.trigger)
	if err != nil {
		return nil, fmt.Errorf("scheduler: parse %q: %w", spec, err)
	}
	s.id = id
	return s, nil
}

// Run starts the scheduler and blocks until ctx is cancelled. A job in
// progress is waited for before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info("scheduler: started", slog.Time("next", s.Next()))
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler: stopped")
	return nil
}

// Next returns the next activation, or the zero time before Run.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.id).Next
}

func (s *Scheduler) trigger() {
	if err := s.job(s.ctx); err != nil {
		s.logger.Error("scheduler: job failed", slog.String("error", err.Error()))
	}
}

// cronLogger routes cron's key/value log calls to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{slog.String("error", err.Error())}, keysAndValues...)
	l.logger.Error("cron: "+msg, args...)
}
