package app

import (
	"time"

	"github.com/edgard/geonotify/internal/background"
	"github.com/edgard/geonotify/internal/reporter"
)

// periodicScheduler adapts *background.Scheduler to reporter.BackgroundScheduler.
type periodicScheduler struct {
	s *background.Scheduler
}

func (p periodicScheduler) RegisterPeriodic(name string, interval time.Duration, fn background.TaskFunc) (reporter.TaskHandle, error) {
	h, err := p.s.RegisterPeriodic(name, interval, fn)
	if err != nil {
		return nil, err
	}
	return h, nil
}
