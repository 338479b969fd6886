package reporter

import (
	"context"

	"github.com/edgard/geonotify/internal/geo"
	"github.com/edgard/geonotify/internal/lifecycle"
)

// OnLocationSample runs a sample from the foreground watch or a background
// tick through the forwarding pipeline.
func (s *Scheduler) OnLocationSample(ctx context.Context, sample geo.Location) Outcome {
	return s.process(ctx, sample, false)
}

func (s *Scheduler) process(ctx context.Context, sample geo.Location, force bool) Outcome {
	outcome := s.forward(ctx, sample, force)
	s.metrics.observeOutcome(outcome)
	return outcome
}

func (s *Scheduler) forward(ctx context.Context, sample geo.Location, force bool) Outcome {
	log := s.logger.With("location", sample)

	if err := sample.Validate(); err != nil {
		log.WarnContext(ctx, "Discarding invalid location sample", "error", err)
		return OutcomeInvalidSample
	}

	appActive := s.deps.AppState.Current() == lifecycle.Active

	s.mu.Lock()
	engaged := s.state != Stopped
	cfg := s.cfg
	var last *geo.Location
	if s.lastKnown != nil {
		loc := *s.lastKnown
		last = &loc
	}
	s.mu.Unlock()

	if !engaged {
		return OutcomeNotRunning
	}

	if !force && last != nil {
		if moved := geo.Distance(*last, sample); moved < cfg.DistanceThresholdMeters {
			s.thresholdSkipLog.Do(func() {
				log.DebugContext(ctx, "Skipping sample below distance threshold",
					"moved_meters", moved, "threshold_meters", cfg.DistanceThresholdMeters)
			})
			return OutcomeBelowThreshold
		}
	}

	if err := s.deps.Store.SaveLastLocation(ctx, sample); err != nil {
		log.WarnContext(ctx, "Failed to persist location locally", "error", err)
	}

	switch decision := s.limiter.Allow(s.clock.Now()); decision {
	case RejectedCooldown:
		log.DebugContext(ctx, "Report skipped, cooldown active")
		return OutcomeCooldown
	case RejectedCircuitOpen:
		log.InfoContext(ctx, "Report skipped, too many requests in window")
		return OutcomeCircuitOpen
	}

	session, err := s.deps.Auth.SessionState(ctx)
	if err != nil {
		log.WarnContext(ctx, "Failed to read session state, keeping sample local", "error", err)
		return OutcomeLocalOnly
	}
	if !session.Active {
		log.DebugContext(ctx, "No active session, keeping sample local")
		return OutcomeLocalOnly
	}
	credential, err := s.deps.Auth.Credential(ctx)
	if err != nil || credential == "" {
		log.WarnContext(ctx, "No credential available, keeping sample local", "error", err)
		return OutcomeLocalOnly
	}

	token, err := s.deps.PushTokens.Token(ctx)
	if err != nil || token == "" {
		log.WarnContext(ctx, "Push token unavailable, skipping report", "error", err)
		return OutcomeTokenUnavailable
	}

	report := Report{
		Latitude:     sample.Latitude,
		Longitude:    sample.Longitude,
		PushToken:    token,
		RadiusMeters: cfg.RadiusMeters,
		IsAppActive:  appActive,
	}

	s.mu.Lock()
	engaged = s.state != Stopped
	s.mu.Unlock()
	if !engaged {
		log.InfoContext(ctx, "Scheduler stopped while sample was in flight, report dropped")
		return OutcomeNotRunning
	}

	ack, err := s.send(ctx, report)
	if err != nil {
		log.ErrorContext(ctx, "Location report failed", "error", err)
		return OutcomeFailed
	}

	s.mu.Lock()
	s.lastKnown = &sample
	s.mu.Unlock()

	log.InfoContext(ctx, "Location reported", "status", ack.Status, "app_active", appActive)
	return OutcomeForwarded
}

type sendResult struct {
	ack Ack
	err error
}

// send races the remote call against RequestTimeout. A call that loses the
// race is abandoned and its late result dropped; its context is also
// cancelled so the transport can release the connection.
func (s *Scheduler) send(ctx context.Context, report Report) (Ack, error) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := s.clock.Now()
	results := make(chan sendResult, 1)
	go func() {
		ack, err := s.deps.Remote.ReportLocation(callCtx, report)
		results <- sendResult{ack: ack, err: err}
	}()

	timer := s.clock.NewTimer(s.policy.RequestTimeout)
	defer timer.Stop()

	select {
	case r := <-results:
		s.metrics.observeReport(s.clock.Since(start))
		return r.ack, r.err
	case <-timer.Chan():
		return Ack{}, ErrReportTimeout
	case <-ctx.Done():
		return Ack{}, ctx.Err()
	}
}
