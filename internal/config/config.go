// Package config loads and validates the geonotify configuration from a YAML
// file, GEONOTIFY_* environment variables and built-in defaults.
package config

import (
	"time"

	"github.com/edgard/geonotify/internal/reporter"
)

// Config is the root configuration.
type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Reporter    ReporterConfig    `mapstructure:"reporter"`
	API         APIConfig         `mapstructure:"api"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Location    LocationConfig    `mapstructure:"location"`
	Permissions PermissionsConfig `mapstructure:"permissions"`
	PushToken   PushTokenConfig   `mapstructure:"push_token"`
	Server      ServerConfig      `mapstructure:"server"`
	App         AppConfig         `mapstructure:"app"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// ReporterConfig holds the scheduler configuration and its timing policy.
type ReporterConfig struct {
	Enabled                 bool          `mapstructure:"enabled"`
	UpdateInterval          time.Duration `mapstructure:"update_interval"           validate:"min=1s"`
	DistanceThresholdMeters float64       `mapstructure:"distance_threshold_meters" validate:"gte=0"`
	RadiusMeters            float64       `mapstructure:"radius_meters"             validate:"gt=0"`

	Cooldown               time.Duration `mapstructure:"cooldown"                 validate:"gte=0"`
	Window                 time.Duration `mapstructure:"window"                   validate:"gtfield=Cooldown"`
	MaxRequests            int           `mapstructure:"max_requests"             validate:"min=1"`
	RequestTimeout         time.Duration `mapstructure:"request_timeout"          validate:"min=1s"`
	RegistrationRetryDelay time.Duration `mapstructure:"registration_retry_delay" validate:"gte=0"`
	RestartDelay           time.Duration `mapstructure:"restart_delay"            validate:"gte=0"`
}

// SchedulerConfig returns the initial scheduler configuration.
func (r ReporterConfig) SchedulerConfig() reporter.Config {
	return reporter.Config{
		UpdateInterval:          r.UpdateInterval,
		DistanceThresholdMeters: r.DistanceThresholdMeters,
		RadiusMeters:            r.RadiusMeters,
		Enabled:                 r.Enabled,
	}
}

// Policy returns the timing policy.
func (r ReporterConfig) Policy() reporter.Policy {
	return reporter.Policy{
		Cooldown:               r.Cooldown,
		Window:                 r.Window,
		MaxRequests:            r.MaxRequests,
		RequestTimeout:         r.RequestTimeout,
		RegistrationRetryDelay: r.RegistrationRetryDelay,
		RestartDelay:           r.RestartDelay,
	}
}

type APIConfig struct {
	Sink              string        `mapstructure:"sink"                validate:"oneof=http kafka"`
	BaseURL           string        `mapstructure:"base_url"            validate:"omitempty,url"`
	PartnerKey        string        `mapstructure:"partner_key"`
	Timeout           time.Duration `mapstructure:"timeout"             validate:"min=1s"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gte=0"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// LocationConfig selects where position fixes come from.
type LocationConfig struct {
	Source    string  `mapstructure:"source"    validate:"oneof=static file"`
	File      string  `mapstructure:"file"      validate:"required_if=Source file"`
	Latitude  float64 `mapstructure:"latitude"  validate:"gte=-90,lte=90"`
	Longitude float64 `mapstructure:"longitude" validate:"gte=-180,lte=180"`
}

type PermissionsConfig struct {
	Location      bool `mapstructure:"location"`
	Notifications bool `mapstructure:"notifications"`
}

type PushTokenConfig struct {
	Token    string        `mapstructure:"token"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required,hostname_port"`
}

// AppConfig describes the host application the agent runs alongside.
type AppConfig struct {
	InitialState string `mapstructure:"initial_state" validate:"oneof=active background inactive"`
	AutoStart    bool   `mapstructure:"auto_start"`
}

// SchedulerConfig lists the maintenance tasks.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}
