package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/geonotify/internal/api"
	"github.com/edgard/geonotify/internal/config"
	"github.com/edgard/geonotify/internal/database"
	"github.com/edgard/geonotify/internal/geo"
	"github.com/edgard/geonotify/internal/reporter"
)

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Log:      config.LogConfig{Level: "debug"},
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "app.db")},
		Reporter: config.ReporterConfig{
			Enabled:                 true,
			UpdateInterval:          time.Hour,
			DistanceThresholdMeters: 50,
			RadiusMeters:            100,
			Cooldown:                30 * time.Second,
			Window:                  time.Minute,
			MaxRequests:             2,
			RequestTimeout:          5 * time.Second,
			RegistrationRetryDelay:  2 * time.Second,
			RestartDelay:            time.Second,
		},
		API:         config.APIConfig{Sink: "http", BaseURL: baseURL, PartnerKey: "partner", Timeout: 5 * time.Second},
		Location:    config.LocationConfig{Source: "static", Latitude: 48.8566, Longitude: 2.3522},
		Permissions: config.PermissionsConfig{Location: true, Notifications: true},
		PushToken:   config.PushTokenConfig{CacheTTL: time.Minute},
		Server:      config.ServerConfig{Addr: "127.0.0.1:0"},
		App:         config.AppConfig{InitialState: "active", AutoStart: true},
		Scheduler: config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
			"sql_maintenance": {Enabled: true, Schedule: "0 0 3 * * *"},
		}},
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runApp(t *testing.T, a *App) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	return func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Fatal("app did not stop")
		}
	}
}

func TestAppStartsAndKeepsSampleLocalWithoutSession(t *testing.T) {
	var hits atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer backend.Close()

	a, err := New(testConfig(t, backend.URL), discard())
	require.NoError(t, err)
	defer a.Close()

	stop := runApp(t, a)
	require.Eventually(t, func() bool { return a.Reporter().Status().Running }, 5*time.Second, 10*time.Millisecond)
	stop()

	assert.Zero(t, hits.Load())
	assert.Equal(t, reporter.Stopped, a.Reporter().Status().State)

	last, err := a.store.LoadLastLocation(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, geo.Location{Latitude: 48.8566, Longitude: 2.3522}, *last)
}

func TestAppForwardsInitialSampleWhenSignedIn(t *testing.T) {
	var hits atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == api.ReportPath && r.Header.Get("x-api-token") == "jwt" {
			hits.Add(1)
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer backend.Close()

	a, err := New(testConfig(t, backend.URL), discard())
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	require.NoError(t, a.store.SaveSession(ctx, &database.Session{UserID: "alice", Credential: "jwt"}))
	require.NoError(t, a.store.SavePushToken(ctx, "fcm"))

	stop := runApp(t, a)
	defer stop()

	require.Eventually(t, func() bool { return hits.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return a.Reporter().Status().TaskRegistered }, 5*time.Second, 10*time.Millisecond)
}

func TestNewRejectsUnknownInitialState(t *testing.T) {
	cfg := testConfig(t, "http://localhost")
	cfg.App.InitialState = "asleep"

	_, err := New(cfg, discard())
	assert.Error(t, err)
}
