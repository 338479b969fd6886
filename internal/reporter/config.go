package reporter

import (
	"encoding/json"
	"time"
)

// Config is the mutable scheduler configuration.
type Config struct {
	UpdateInterval          time.Duration `json:"update_interval"`
	DistanceThresholdMeters float64       `json:"distance_threshold_meters"`
	RadiusMeters            float64       `json:"radius_meters"`
	Enabled                 bool          `json:"enabled"`
}

// MarshalJSON renders UpdateInterval as a duration string ("30s"), the form
// accepted by the control API when patching the configuration.
func (c Config) MarshalJSON() ([]byte, error) {
	type plain Config
	return json.Marshal(struct {
		plain
		UpdateInterval string `json:"update_interval"`
	}{plain: plain(c), UpdateInterval: c.UpdateInterval.String()})
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		UpdateInterval:          30 * time.Second,
		DistanceThresholdMeters: 50,
		RadiusMeters:            100,
		Enabled:                 true,
	}
}

// ConfigPatch carries a partial configuration. Nil fields are left unchanged
// by Configure.
type ConfigPatch struct {
	UpdateInterval          *time.Duration `json:"update_interval,omitempty"`
	DistanceThresholdMeters *float64       `json:"distance_threshold_meters,omitempty"`
	RadiusMeters            *float64       `json:"radius_meters,omitempty"`
	Enabled                 *bool          `json:"enabled,omitempty"`
}

func (c Config) merge(p ConfigPatch) Config {
	if p.UpdateInterval != nil {
		c.UpdateInterval = *p.UpdateInterval
	}
	if p.DistanceThresholdMeters != nil {
		c.DistanceThresholdMeters = *p.DistanceThresholdMeters
	}
	if p.RadiusMeters != nil {
		c.RadiusMeters = *p.RadiusMeters
	}
	if p.Enabled != nil {
		c.Enabled = *p.Enabled
	}
	return c
}

// Policy holds the fixed timing rules for outbound reports and background
// task registration.
type Policy struct {
	// Cooldown is the minimum spacing between two accepted reports.
	Cooldown time.Duration
	// Window is the circuit breaker window. The request counter resets once
	// more than Window has elapsed since the last accepted report.
	Window      time.Duration
	MaxRequests int
	// RequestTimeout bounds a single remote call.
	RequestTimeout         time.Duration
	RegistrationRetryDelay time.Duration
	RestartDelay           time.Duration
}

// DefaultPolicy returns the production timings.
func DefaultPolicy() Policy {
	return Policy{
		Cooldown:               30 * time.Second,
		Window:                 60 * time.Second,
		MaxRequests:            2,
		RequestTimeout:         20 * time.Second,
		RegistrationRetryDelay: 2 * time.Second,
		RestartDelay:           time.Second,
	}
}
