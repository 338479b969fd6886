// Package server exposes the local control API of geonotify over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edgard/geonotify/internal/geo"
	"github.com/edgard/geonotify/internal/lifecycle"
	"github.com/edgard/geonotify/internal/logger"
	"github.com/edgard/geonotify/internal/reporter"
)

const shutdownTimeout = 5 * time.Second

// Reporter is the scheduler surface driven by the control API.
type Reporter interface {
	Status() reporter.Status
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	ForceUpdate(ctx context.Context) (reporter.Outcome, error)
	OnLocationSample(ctx context.Context, sample geo.Location) reporter.Outcome
	Configure(patch reporter.ConfigPatch) reporter.Config
	HandleNotificationOpened(ctx context.Context) error
}

// AppStateSink receives app state transitions reported by the host.
type AppStateSink interface {
	Set(state lifecycle.State) bool
}

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps groups the collaborators of the Server.
type Deps struct {
	Reporter Reporter
	AppState AppStateSink
	Store    Pinger
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Server is the control API.
type Server struct {
	deps   Deps
	engine *gin.Engine
	logger *slog.Logger
}

// New builds the gin engine and routes.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	log := deps.Logger.With("component", "server")

	engine := gin.New()
	engine.Use(gin.Recovery(), logger.Middleware(log))

	s := &Server{deps: deps, engine: engine, logger: log}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))

	s.engine.GET("/status", s.handleStatus)
	s.engine.POST("/start", s.handleStart)
	s.engine.POST("/stop", s.handleStop)
	s.engine.POST("/restart", s.handleRestart)
	s.engine.POST("/force-update", s.handleForceUpdate)
	s.engine.POST("/samples", s.handleSample)
	s.engine.POST("/app-state", s.handleAppState)
	s.engine.PATCH("/config", s.handleConfig)
	s.engine.POST("/notifications/opened", s.handleNotificationOpened)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Control API listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("control API failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("control API shutdown: %w", err)
	}
	s.logger.Info("Control API stopped")
	return nil
}
