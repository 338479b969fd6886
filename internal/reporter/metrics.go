package reporter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes scheduler counters to Prometheus. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	outcomes      *prometheus.CounterVec
	registrations *prometheus.CounterVec
	reportLatency prometheus.Histogram
	running       prometheus.Gauge
}

// NewMetrics registers the scheduler metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geonotify",
			Name:      "samples_total",
			Help:      "Location samples processed, by pipeline outcome.",
		}, []string{"outcome"}),
		registrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geonotify",
			Name:      "task_registrations_total",
			Help:      "Background task registration attempts, by result.",
		}, []string{"result"}),
		reportLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "geonotify",
			Name:      "report_duration_seconds",
			Help:      "Duration of remote location reports.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		running: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "geonotify",
			Name:      "running",
			Help:      "1 while location reporting is running.",
		}),
	}
}

func (m *Metrics) observeOutcome(o Outcome) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(o.String()).Inc()
}

func (m *Metrics) observeRegistration(result string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(result).Inc()
}

func (m *Metrics) observeReport(d time.Duration) {
	if m == nil {
		return
	}
	m.reportLatency.Observe(d.Seconds())
}

func (m *Metrics) setRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.running.Set(1)
	} else {
		m.running.Set(0)
	}
}
