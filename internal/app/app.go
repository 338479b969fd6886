// Package app wires the geonotify components together and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/geonotify/internal/api"
	"github.com/edgard/geonotify/internal/background"
	"github.com/edgard/geonotify/internal/config"
	"github.com/edgard/geonotify/internal/database"
	"github.com/edgard/geonotify/internal/geo"
	"github.com/edgard/geonotify/internal/lifecycle"
	"github.com/edgard/geonotify/internal/providers"
	"github.com/edgard/geonotify/internal/reporter"
	"github.com/edgard/geonotify/internal/server"
	"github.com/edgard/geonotify/internal/tasks"
)

// App owns every long-lived component of the process.
type App struct {
	logger     *slog.Logger
	cfg        *config.Config
	db         *sqlx.DB
	store      database.Store
	monitor    *lifecycle.Monitor
	background *background.Scheduler
	reporter   *reporter.Scheduler
	server     *server.Server
	registry   *prometheus.Registry
	sink       reporter.LocationReporter
	tasks      map[string]tasks.ScheduledTaskFunc
}

// New builds the application from cfg. The caller must call Close.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	initial, err := lifecycle.ParseState(cfg.App.InitialState)
	if err != nil {
		return nil, err
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	store := database.NewStore(db, logger)

	a := &App{
		logger:   logger.With("component", "app"),
		cfg:      cfg,
		db:       db,
		store:    store,
		monitor:  lifecycle.NewMonitor(initial, logger),
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := a.build(logger); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(logger *slog.Logger) error {
	cfg := a.cfg

	bg, err := background.NewScheduler(logger)
	if err != nil {
		return err
	}
	a.background = bg

	auth := providers.NewAuthProvider(a.store)

	a.sink, err = newSink(cfg, auth, logger)
	if err != nil {
		return err
	}

	var source providers.Source = providers.StaticSource{
		Location: geo.Location{Latitude: cfg.Location.Latitude, Longitude: cfg.Location.Longitude},
	}
	if cfg.Location.Source == "file" {
		source = providers.FileSource{Path: cfg.Location.File}
	}

	a.reporter, err = reporter.New(reporter.Deps{
		Permissions: &providers.StaticPermissions{
			Location:      cfg.Permissions.Location,
			Notifications: cfg.Permissions.Notifications,
		},
		Locations:  providers.NewLocationProvider(source, a.store, logger),
		Auth:       auth,
		PushTokens: providers.NewPushTokenProvider(a.store, cfg.PushToken.Token, cfg.PushToken.CacheTTL, logger),
		Remote:     a.sink,
		Store:      a.store,
		Background: periodicScheduler{bg},
		AppState:   a.monitor,
	}, cfg.Reporter.SchedulerConfig(),
		reporter.WithPolicy(cfg.Reporter.Policy()),
		reporter.WithLogger(logger),
		reporter.WithMetrics(reporter.NewMetrics(a.registry)),
	)
	if err != nil {
		return fmt.Errorf("failed to create reporter: %w", err)
	}

	deps := tasks.TaskDeps{Logger: logger, Store: a.store, Reporter: a.reporter}
	a.tasks = tasks.RegisterAllTasks(deps)
	tasks.ScheduleConfigured(bg, cfg.Scheduler, a.tasks, deps)

	a.server = server.New(server.Deps{
		Reporter: a.reporter,
		AppState: a.monitor,
		Store:    a.store,
		Gatherer: a.registry,
		Logger:   logger,
	})
	return nil
}

func newSink(cfg *config.Config, creds api.CredentialSource, logger *slog.Logger) (reporter.LocationReporter, error) {
	switch cfg.API.Sink {
	case "kafka":
		return api.NewKafkaReporter(api.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic}, logger)
	default:
		return api.NewClient(api.ClientConfig{
			BaseURL:           cfg.API.BaseURL,
			PartnerKey:        cfg.API.PartnerKey,
			Timeout:           cfg.API.Timeout,
			RequestsPerSecond: cfg.API.RequestsPerSecond,
		}, creds, logger)
	}
}

// Reporter returns the reporting scheduler.
func (a *App) Reporter() *reporter.Scheduler { return a.reporter }

// Monitor returns the app state monitor.
func (a *App) Monitor() *lifecycle.Monitor { return a.monitor }

// Run starts every component and blocks until ctx is cancelled or a
// component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting geonotify...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.server.Run(gCtx, a.cfg.Server.Addr)
	})

	g.Go(func() error {
		a.background.Start()
		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping background scheduler...")
		if err := a.background.Stop(); err != nil {
			a.logger.Error("Error stopping background scheduler", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		unwatch := a.reporter.WatchAppStateWhileStopped(gCtx)
		defer unwatch()

		if a.cfg.App.AutoStart {
			if err := a.reporter.Start(gCtx); err != nil {
				a.logger.Warn("Location reporting not started", "error", err)
			}
		}

		<-gCtx.Done()
		if err := a.reporter.Stop(context.WithoutCancel(gCtx)); err != nil {
			a.logger.Error("Error stopping location reporting", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("geonotify stopped due to error", "error", err)
		return err
	}

	a.logger.Info("geonotify stopped gracefully.")
	return nil
}

// Close releases the database and the report sink.
func (a *App) Close() {
	if closer, ok := a.sink.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.logger.Warn("Error closing report sink", "error", err)
		}
	}
	database.CloseDB(a.db)
}
