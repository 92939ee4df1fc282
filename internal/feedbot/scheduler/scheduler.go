// Package scheduler runs recurring ingestion jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job represents a scheduled task.
type Job struct {
	Name     string
	Schedule string // standard cron expression ("0 8 * * *") or descriptor ("@every 1h")
	Fn       func(ctx context.Context) error
}

// Scheduler runs jobs at their configured schedules. A job that is still
// running when its next tick arrives is skipped for that tick.
type Scheduler struct {
	jobs   []Job
	logger *slog.Logger
}

// NewScheduler creates a new scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{logger: slog.Default()}
}

// Add registers a job after validating its schedule.
func (s *Scheduler) Add(job Job) error {
	if job.Fn == nil {
		return fmt.Errorf("job %q has no function", job.Name)
	}
	if _, err := cron.ParseStandard(job.Schedule); err != nil {
		return fmt.Errorf("parse schedule of job %q: %w", job.Name, err)
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// RunOnce executes every registered job once, in registration order. All
// jobs run even if one fails; the failures are joined.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	for _, job := range s.jobs {
		if err := s.run(ctx, job); err != nil {
			errs = append(errs, fmt.Errorf("job %s: %w", job.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	s.logger.Info("running job", "name", job.Name)
	start := time.Now()
	if err := job.Fn(ctx); err != nil {
		s.logger.Error("job failed", "name", job.Name, "error", err, "duration", time.Since(start))
		return err
	}
	s.logger.Info("job completed", "name", job.Name, "duration", time.Since(start))
	return nil
}

// Start runs the jobs on their schedules until ctx is cancelled, then waits
// for running jobs to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	logger := cronLogger{s.logger}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))
	for _, job := range s.jobs {
		if _, err := c.AddFunc(job.Schedule, func() { _ = s.run(ctx, job) }); err != nil {
			return fmt.Errorf("schedule job %q: %w", job.Name, err)
		}
	}

	s.logger.Info("scheduler started", "jobs", len(s.jobs))
	c.Start()
	<-ctx.Done()

	<-c.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
