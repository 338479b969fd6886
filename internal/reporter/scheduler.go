// Package reporter implements the location reporting scheduler: it samples
// the device position, decides which samples are worth forwarding to the
// backend and keeps a periodic background task registered while the host
// application is not in the foreground.
package reporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/edgard/geonotify/internal/background"
	"github.com/edgard/geonotify/internal/geo"
	"github.com/edgard/geonotify/internal/lifecycle"
)

// TaskName is the name of the periodic background sampling task.
const TaskName = "location-sampling"

// Scheduler is the location reporting scheduler. One instance is owned by the
// application and shared by reference.
type Scheduler struct {
	deps    Deps
	policy  Policy
	limiter *RateLimiter
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *Metrics

	// opMu serialises Start, Stop, Restart, HandleAppState and the
	// registration timer so the last settled state wins.
	opMu sync.Mutex

	mu                  sync.Mutex
	cfg                 Config
	state               RunState
	lastKnown           *geo.Location
	appState            lifecycle.State
	task                TaskHandle
	unsubscribe         func()
	pendingRegistration bool
	registrationTimer   clockwork.Timer
	baseCtx             context.Context

	tickSkipLog      rate.Sometimes
	thresholdSkipLog rate.Sometimes
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the parent logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithPolicy overrides the default timings.
func WithPolicy(p Policy) Option {
	return func(s *Scheduler) { s.policy = p }
}

// New creates a stopped Scheduler.
func New(deps Deps, cfg Config, opts ...Option) (*Scheduler, error) {
	switch {
	case deps.Permissions == nil:
		return nil, errors.New("permission checker is required")
	case deps.Locations == nil:
		return nil, errors.New("location provider is required")
	case deps.Auth == nil:
		return nil, errors.New("auth provider is required")
	case deps.PushTokens == nil:
		return nil, errors.New("push token provider is required")
	case deps.Remote == nil:
		return nil, errors.New("location reporter is required")
	case deps.Store == nil:
		return nil, errors.New("location store is required")
	case deps.Background == nil:
		return nil, errors.New("background scheduler is required")
	case deps.AppState == nil:
		return nil, errors.New("app state source is required")
	}

	s := &Scheduler{
		deps:             deps,
		policy:           DefaultPolicy(),
		clock:            clockwork.NewRealClock(),
		logger:           slog.Default(),
		cfg:              cfg,
		state:            Stopped,
		appState:         deps.AppState.Current(),
		baseCtx:          context.Background(),
		tickSkipLog:      rate.Sometimes{First: 1, Interval: 5 * time.Minute},
		thresholdSkipLog: rate.Sometimes{First: 3, Interval: time.Minute},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "reporter")
	s.limiter = NewRateLimiter(s.policy)
	return s, nil
}

// Configure merges the non-nil fields of patch into the configuration.
func (s *Scheduler) Configure(patch ConfigPatch) Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = s.cfg.merge(patch)
	s.logger.Info("Configuration updated",
		"update_interval", s.cfg.UpdateInterval,
		"distance_threshold_meters", s.cfg.DistanceThresholdMeters,
		"radius_meters", s.cfg.RadiusMeters,
		"enabled", s.cfg.Enabled)
	return s.cfg
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	State               RunState        `json:"state"`
	Running             bool            `json:"running"`
	AppState            lifecycle.State `json:"app_state"`
	LastKnownLocation   *geo.Location   `json:"last_known_location,omitempty"`
	Config              Config          `json:"config"`
	LastRequestAt       *time.Time      `json:"last_request_at,omitempty"`
	RequestsInWindow    int             `json:"requests_in_window"`
	TaskRegistered      bool            `json:"task_registered"`
	PendingRegistration bool            `json:"pending_registration"`
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	last, count := s.limiter.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:               s.state,
		Running:             s.state.IsRunning(),
		AppState:            s.appState,
		Config:              s.cfg,
		RequestsInWindow:    count,
		TaskRegistered:      s.task != nil,
		PendingRegistration: s.pendingRegistration,
	}
	if s.lastKnown != nil {
		loc := *s.lastKnown
		st.LastKnownLocation = &loc
	}
	if !last.IsZero() {
		st.LastRequestAt = &last
	}
	return st
}

// Start begins location reporting. It is a no-op when already running or
// when reporting is disabled. Missing permissions abort the start with
// ErrPermissionDenied and leave the scheduler stopped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.start(ctx)
}

func (s *Scheduler) start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Stopped {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "Start ignored, already running", "state", s.state)
		return nil
	}
	if !s.cfg.Enabled {
		s.mu.Unlock()
		s.logger.InfoContext(ctx, "Start ignored, location reporting disabled")
		return nil
	}
	if err := s.setStateLocked(Starting); err != nil {
		s.mu.Unlock()
		return err
	}
	s.baseCtx = context.WithoutCancel(ctx)
	s.mu.Unlock()

	perms, err := s.deps.Permissions.CheckAll(ctx)
	if err != nil || !perms.Granted() {
		s.mu.Lock()
		_ = s.setStateLocked(Stopped)
		s.mu.Unlock()
		if err != nil {
			s.logger.WarnContext(ctx, "Permission check failed, not starting", "error", err)
			return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		}
		s.logger.WarnContext(ctx, "Permissions not granted, not starting",
			"location", perms.Location, "notifications", perms.Notifications)
		return ErrPermissionDenied
	}

	sample, err := s.deps.Locations.FreshSample(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to fetch initial location", "error", err)
	}
	if sample != nil {
		loc := *sample
		s.mu.Lock()
		s.lastKnown = &loc
		s.mu.Unlock()
		outcome := s.process(ctx, loc, true)
		s.logger.InfoContext(ctx, "Initial location processed", "location", loc, "outcome", outcome)
	}

	s.ensureBackgroundTask(ctx, true)

	unsubscribe := s.deps.AppState.Subscribe(func(next lifecycle.State) {
		s.HandleAppState(s.callbackContext(), next)
	})
	current := s.deps.AppState.Current()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribe = unsubscribe
	s.appState = current
	target := Running
	if current == lifecycle.Background {
		target = Backgrounded
	}
	if err := s.setStateLocked(target); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Location reporting started", "state", s.state, "app_state", current)
	return nil
}

// Stop ends location reporting. It is a no-op when not running. The last
// known location is kept for the next Start.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.stop(ctx)
}

func (s *Scheduler) stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		return nil
	}
	task := s.task
	s.task = nil
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.pendingRegistration = false
	if s.registrationTimer != nil {
		s.registrationTimer.Stop()
		s.registrationTimer = nil
	}
	s.mu.Unlock()

	s.cancelTask(ctx, task)
	if unsubscribe != nil {
		unsubscribe()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setStateLocked(Stopped); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Location reporting stopped")
	return nil
}

// Restart stops the scheduler if it is running, waits RestartDelay and
// starts it again.
func (s *Scheduler) Restart(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.logger.InfoContext(ctx, "Restarting location reporting")
	if err := s.stop(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(s.policy.RestartDelay):
	}

	return s.start(ctx)
}

// HandleNotificationOpened reacts to the user opening a proximity
// notification by stopping location reporting.
func (s *Scheduler) HandleNotificationOpened(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Proximity notification opened, stopping location reporting")
	return s.Stop(ctx)
}

// ForceUpdate fetches a fresh sample and forwards it regardless of the
// distance moved. The rate limiter still applies.
func (s *Scheduler) ForceUpdate(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	engaged := s.state != Stopped
	s.mu.Unlock()
	if !engaged {
		return OutcomeNotRunning, ErrNotRunning
	}

	sample, err := s.deps.Locations.FreshSample(ctx)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to fetch location: %w", err)
	}
	if sample == nil {
		return OutcomeFailed, ErrNoSample
	}
	return s.process(ctx, *sample, true), nil
}

// setStateLocked applies a run-state transition. s.mu must be held.
func (s *Scheduler) setStateLocked(to RunState) error {
	if err := checkTransition(s.state, to); err != nil {
		s.logger.Error("Rejected run state transition", "error", err)
		return err
	}
	s.logger.Debug("Run state changed", "from", s.state, "to", to)
	s.state = to
	s.metrics.setRunning(to.IsRunning())
	return nil
}

func (s *Scheduler) callbackContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}

func (s *Scheduler) cancelTask(ctx context.Context, task TaskHandle) {
	if task == nil {
		return
	}
	if err := task.Cancel(); err != nil {
		if errors.Is(err, background.ErrTaskNotFound) {
			s.logger.DebugContext(ctx, "Background task already gone", "error", err)
			return
		}
		s.logger.WarnContext(ctx, "Failed to cancel background task", "error", err)
	}
}
