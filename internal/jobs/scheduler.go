// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"aigyoo-backend/internal/logger"

	"github.com/go-co-op/gocron/v2"
)

const (
	ReconcileJob = "reconcile-verification-flags"

	jobTimeout    = 5 * time.Minute
	slowThreshold = 5 * time.Second
)

// Task is a unit of scheduled work. It gets a context bounded by jobTimeout
// that is canceled when the scheduler stops.
type Task func(ctx context.Context) error

type Scheduler struct {
	scheduler gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc

	mu   sync.Mutex
	jobs map[string]gocron.Job
}

// NewScheduler creates and starts a UTC scheduler.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(gocronLogger{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	s.Start()

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{scheduler: s, ctx: ctx, cancel: cancel, jobs: map[string]gocron.Job{}}, nil
}

// AddJob schedules task under name using a five field cron expression.
// Runs of the same job never overlap.
func (s *Scheduler) AddJob(name, cronExpr string, task Task) error {
	if name == "" {
		return errors.New("empty job name")
	}
	if cronExpr == "" {
		return errors.New("empty cron expression")
	}
	if task == nil {
		return errors.New("nil job function")
	}

	run := func() {
		ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
		defer cancel()

		start := time.Now()
		if err := task(ctx); err != nil {
			logger.Error("scheduled job failed", "job_name", name, "error", err)
			return
		}
		if d := time.Since(start); d > slowThreshold {
			logger.Warn("slow scheduled job execution", "job_name", name, "duration_ms", d.Milliseconds())
		}
	}

	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(run),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.mu.Lock()
	s.jobs[name] = job
	s.mu.Unlock()

	attrs := []any{"job_name", name, "cron", cronExpr}
	if next, err := job.NextRun(); err == nil {
		attrs = append(attrs, "next_run", next.Format(time.RFC3339))
	}
	logger.Info("job scheduled", attrs...)
	return nil
}

// RunNow triggers a scheduled job outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s: %w", name, gocron.ErrJobNotFound)
	}
	return job.RunNow()
}

// Stop cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() error {
	s.cancel()
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}
	return nil
}

type gocronLogger struct{}

func (gocronLogger) Debug(msg string, args ...any) { logger.Debug(msg, args...) }
func (gocronLogger) Info(msg string, args ...any)  { logger.Info(msg, args...) }
func (gocronLogger) Warn(msg string, args ...any)  { logger.Warn(msg, args...) }
func (gocronLogger) Error(msg string, args ...any) { logger.Error(msg, args...) }
