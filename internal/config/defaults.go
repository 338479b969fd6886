package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"
	DefaultDBPath   = "geonotify.db"

	DefaultUpdateInterval          = 30 * time.Second
	DefaultDistanceThresholdMeters = 50.0
	DefaultRadiusMeters            = 100.0
	DefaultCooldown                = 30 * time.Second
	DefaultWindow                  = 60 * time.Second
	DefaultMaxRequests             = 2
	DefaultRequestTimeout          = 20 * time.Second
	DefaultRegistrationRetryDelay  = 2 * time.Second
	DefaultRestartDelay            = time.Second

	DefaultAPISink    = "http"
	DefaultAPITimeout = 30 * time.Second
	DefaultKafkaTopic = "geonotify.locations"

	DefaultLocationSource = "static"
	DefaultPushTokenTTL   = 5 * time.Minute
	DefaultServerAddr     = "127.0.0.1:8089"
	DefaultInitialState   = "active"

	DefaultMaintenanceSchedule = "0 0 3 * * *"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", false)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("reporter.enabled", true)
	v.SetDefault("reporter.update_interval", DefaultUpdateInterval)
	v.SetDefault("reporter.distance_threshold_meters", DefaultDistanceThresholdMeters)
	v.SetDefault("reporter.radius_meters", DefaultRadiusMeters)
	v.SetDefault("reporter.cooldown", DefaultCooldown)
	v.SetDefault("reporter.window", DefaultWindow)
	v.SetDefault("reporter.max_requests", DefaultMaxRequests)
	v.SetDefault("reporter.request_timeout", DefaultRequestTimeout)
	v.SetDefault("reporter.registration_retry_delay", DefaultRegistrationRetryDelay)
	v.SetDefault("reporter.restart_delay", DefaultRestartDelay)

	v.SetDefault("api.sink", DefaultAPISink)
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.partner_key", "")
	v.SetDefault("api.timeout", DefaultAPITimeout)
	v.SetDefault("api.requests_per_second", 0)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", DefaultKafkaTopic)

	v.SetDefault("location.source", DefaultLocationSource)
	v.SetDefault("location.file", "")
	v.SetDefault("location.latitude", 0)
	v.SetDefault("location.longitude", 0)

	v.SetDefault("permissions.location", false)
	v.SetDefault("permissions.notifications", false)

	v.SetDefault("push_token.token", "")
	v.SetDefault("push_token.cache_ttl", DefaultPushTokenTTL)

	v.SetDefault("server.addr", DefaultServerAddr)

	v.SetDefault("app.initial_state", DefaultInitialState)
	v.SetDefault("app.auto_start", true)

	v.SetDefault("scheduler.tasks", map[string]any{
		"sql_maintenance": map[string]any{
			"enabled":  true,
			"schedule": DefaultMaintenanceSchedule,
		},
	})
}
