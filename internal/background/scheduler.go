// Package background wraps gocron to provide the periodic task registration
// used for background location sampling, plus cron-scheduled maintenance jobs.
package background

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrTaskNotFound is returned when cancelling a task that is no longer
// registered.
var ErrTaskNotFound = errors.New("background task not found")

// TaskFunc is the body of a scheduled task.
type TaskFunc func(ctx context.Context) error

// Handle identifies a registered task.
type Handle struct {
	id   uuid.UUID
	name string
	s    *Scheduler
}

// Name returns the name the task was registered with.
func (h *Handle) Name() string { return h.name }

// Cancel removes the task from the scheduler. Cancelling a task that was
// already removed returns ErrTaskNotFound.
func (h *Handle) Cancel() error {
	if err := h.s.scheduler.RemoveJob(h.id); err != nil {
		if errors.Is(err, gocron.ErrJobNotFound) {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, h.name)
		}
		return fmt.Errorf("failed to remove task %s: %w", h.name, err)
	}
	h.s.logger.Info("Cancelled background task", "task_name", h.name)
	return nil
}

// Scheduler manages background tasks using the gocron library.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	clock     clockwork.Clock
	mu        sync.Mutex
	running   bool
}

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	clock clockwork.Clock
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// NewScheduler creates a new scheduler instance using gocron.
func NewScheduler(logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "background")

	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	s, err := gocron.NewScheduler(
		gocron.WithClock(o.clock),
		gocron.WithLogger(newGocronLogger(log)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    log,
		clock:     o.clock,
	}, nil
}

// RegisterPeriodic schedules fn to run every interval. Runs of the same task
// never overlap; a tick that arrives while the previous run is still going is
// rescheduled.
func (s *Scheduler) RegisterPeriodic(name string, interval time.Duration, fn TaskFunc) (*Handle, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid interval %s for task %s", interval, name)
	}
	if fn == nil {
		return nil, fmt.Errorf("nil task function for %s", name)
	}

	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.wrap(name, fn)),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register task %s: %w", name, err)
	}

	s.logger.Info("Registered periodic task", "task_name", name, "interval", interval)
	return &Handle{id: job.ID(), name: name, s: s}, nil
}

// ScheduleCron schedules fn using a cron expression with an optional seconds
// field.
func (s *Scheduler) ScheduleCron(name, spec string, fn TaskFunc) error {
	if spec == "" {
		return fmt.Errorf("empty schedule for task %s", name)
	}

	_, err := s.scheduler.NewJob(
		gocron.CronJob(spec, true),
		gocron.NewTask(s.wrap(name, fn)),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule task %s (%s): %w", name, spec, err)
	}

	s.logger.Info("Scheduled task", "task_name", name, "schedule", spec)
	return nil
}

func (s *Scheduler) wrap(name string, fn TaskFunc) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Scheduled task panicked", "task_name", name, "panic", r)
			}
		}()

		s.logger.Debug("Running scheduled task", "task_name", name)
		startTime := s.clock.Now()
		if err := fn(context.Background()); err != nil {
			s.logger.Error("Scheduled task failed", "task_name", name, "error", err)
		}
		s.logger.Debug("Finished scheduled task", "task_name", name, "duration", s.clock.Since(startTime))
	}
}

// Start begins executing registered jobs. Calling Start twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started", "jobs", len(s.scheduler.Jobs()))
}

// Stop shuts the scheduler down, waiting for running jobs to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Info("Scheduler is not running, nothing to stop.")
		return nil
	}

	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully.")
	}
	s.running = false
	return err
}
