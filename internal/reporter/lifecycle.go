package reporter

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/geonotify/internal/lifecycle"
)

// HandleAppState reacts to a foreground/background transition of the host
// application.
func (s *Scheduler) HandleAppState(ctx context.Context, next lifecycle.State) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	prev := s.appState
	if prev == next {
		s.mu.Unlock()
		return
	}
	s.appState = next
	state := s.state
	s.mu.Unlock()

	log := s.logger.With("from", prev, "to", next, "state", state)
	log.DebugContext(ctx, "Handling app state change")

	switch {
	case !state.IsRunning():
		if prev.Foreground() && next == lifecycle.Background {
			log.InfoContext(ctx, "App left the foreground while stopped, starting")
			if err := s.start(ctx); err != nil {
				log.WarnContext(ctx, "Start on app state change failed", "error", err)
			}
		}

	case prev.Foreground() && next == lifecycle.Background:
		s.mu.Lock()
		if s.state == Running {
			_ = s.setStateLocked(Backgrounded)
		}
		registered := s.task != nil
		s.mu.Unlock()
		if registered {
			return
		}
		s.ensureBackgroundTask(ctx, true)

	case prev == lifecycle.Background && next.Foreground():
		s.mu.Lock()
		task := s.task
		s.task = nil
		if s.state == Backgrounded {
			_ = s.setStateLocked(Running)
		}
		s.mu.Unlock()

		s.cancelTask(ctx, task)
		log.InfoContext(ctx, "App back in foreground, background task stopped")
		// The armed attempt registers only once the app reports active.
		s.armRegistration(true)
	}
}

// WatchAppStateWhileStopped forwards app state changes to HandleAppState
// while the scheduler is stopped, so leaving the foreground can start it.
// While running, the scheduler's own subscription handles transitions.
func (s *Scheduler) WatchAppStateWhileStopped(ctx context.Context) (unsubscribe func()) {
	ctx = context.WithoutCancel(ctx)
	return s.deps.AppState.Subscribe(func(next lifecycle.State) {
		s.mu.Lock()
		stopped := s.state == Stopped
		s.mu.Unlock()
		if stopped {
			s.HandleAppState(ctx, next)
		}
	})
}

// ensureBackgroundTask registers the periodic sampling task unless one is
// already registered. Registration only happens while the app is active;
// otherwise it is deferred until the next active window. Callers hold opMu.
func (s *Scheduler) ensureBackgroundTask(ctx context.Context, retry bool) {
	s.mu.Lock()
	if s.task != nil {
		s.mu.Unlock()
		return
	}
	interval := s.cfg.UpdateInterval
	s.mu.Unlock()

	if s.deps.AppState.Current() != lifecycle.Active {
		s.mu.Lock()
		s.pendingRegistration = true
		s.mu.Unlock()
		s.metrics.observeRegistration("deferred")
		s.logger.InfoContext(ctx, "App not active, background task registration deferred")
		return
	}

	handle, err := s.deps.Background.RegisterPeriodic(TaskName, interval, s.backgroundTick)
	if err != nil {
		s.metrics.observeRegistration("failed")
		s.mu.Lock()
		s.pendingRegistration = true
		s.mu.Unlock()
		if retry {
			s.logger.WarnContext(ctx, "Background task registration failed, retrying",
				"error", err, "delay", s.policy.RegistrationRetryDelay)
			s.armRegistration(false)
		} else {
			s.logger.WarnContext(ctx, "Background task registration failed, giving up until next app state change", "error", err)
		}
		return
	}

	s.metrics.observeRegistration("registered")
	s.mu.Lock()
	s.task = handle
	s.pendingRegistration = false
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "Background task registered", "interval", interval)
}

// armRegistration schedules a registration attempt after
// RegistrationRetryDelay. The attempt only happens if the scheduler is still
// running and the app is active at that time.
func (s *Scheduler) armRegistration(retry bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registrationTimer != nil {
		s.registrationTimer.Stop()
	}
	var timer clockwork.Timer
	timer = s.clock.AfterFunc(s.policy.RegistrationRetryDelay, func() {
		s.opMu.Lock()
		defer s.opMu.Unlock()

		s.mu.Lock()
		if s.registrationTimer != timer {
			s.mu.Unlock()
			return
		}
		s.registrationTimer = nil
		running := s.state.IsRunning()
		ctx := s.baseCtx
		s.mu.Unlock()

		if !running {
			return
		}
		if s.deps.AppState.Current() != lifecycle.Active {
			s.mu.Lock()
			s.pendingRegistration = true
			s.mu.Unlock()
			s.logger.InfoContext(ctx, "App no longer active, background task registration abandoned")
			return
		}
		s.ensureBackgroundTask(ctx, retry)
	})
	s.registrationTimer = timer
}

// backgroundTick is the body of the periodic background task. Ticks are
// ignored unless the app is in the background.
func (s *Scheduler) backgroundTick(ctx context.Context) error {
	if current := s.deps.AppState.Current(); current != lifecycle.Background {
		s.tickSkipLog.Do(func() {
			s.logger.DebugContext(ctx, "Ignoring background tick, app is in the foreground", "app_state", current)
		})
		return nil
	}

	sample, err := s.deps.Locations.FreshSample(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch background location: %w", err)
	}
	if sample == nil {
		return nil
	}
	s.OnLocationSample(ctx, *sample)
	return nil
}
