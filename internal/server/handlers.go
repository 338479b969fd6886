package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edgard/geonotify/internal/geo"
	"github.com/edgard/geonotify/internal/lifecycle"
	"github.com/edgard/geonotify/internal/reporter"
)

type errorResponse struct {
	Error string `json:"error"`
}

type outcomeResponse struct {
	Outcome reporter.Outcome `json:"outcome"`
}

type sampleRequest struct {
	Latitude  *float64 `json:"latitude"  binding:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
}

type appStateRequest struct {
	State string `json:"state" binding:"required,oneof=active background inactive"`
}

type configRequest struct {
	UpdateInterval          *string  `json:"update_interval"`
	DistanceThresholdMeters *float64 `json:"distance_threshold_meters" binding:"omitempty,gte=0"`
	RadiusMeters            *float64 `json:"radius_meters"             binding:"omitempty,gt=0"`
	Enabled                 *bool    `json:"enabled"`
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, reporter.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, reporter.ErrNotRunning):
		status = http.StatusConflict
	case errors.Is(err, reporter.ErrNoSample):
		status = http.StatusServiceUnavailable
	}
	_ = c.Error(err)
	c.JSON(status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.deps.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Reporter.Status())
}

func (s *Server) handleStart(c *gin.Context) {
	if err := s.deps.Reporter.Start(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.deps.Reporter.Status())
}

func (s *Server) handleStop(c *gin.Context) {
	if err := s.deps.Reporter.Stop(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.deps.Reporter.Status())
}

func (s *Server) handleRestart(c *gin.Context) {
	if err := s.deps.Reporter.Restart(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.deps.Reporter.Status())
}

func (s *Server) handleForceUpdate(c *gin.Context) {
	outcome, err := s.deps.Reporter.ForceUpdate(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, outcomeResponse{Outcome: outcome})
}

func (s *Server) handleSample(c *gin.Context) {
	var req sampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	outcome := s.deps.Reporter.OnLocationSample(c.Request.Context(), geo.Location{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	})
	c.JSON(http.StatusOK, outcomeResponse{Outcome: outcome})
}

func (s *Server) handleAppState(c *gin.Context) {
	var req appStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	state, err := lifecycle.ParseState(req.State)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	changed := s.deps.AppState.Set(state)
	c.JSON(http.StatusOK, gin.H{"state": state, "changed": changed})
}

func (s *Server) handleConfig(c *gin.Context) {
	var req configRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	patch := reporter.ConfigPatch{
		DistanceThresholdMeters: req.DistanceThresholdMeters,
		RadiusMeters:            req.RadiusMeters,
		Enabled:                 req.Enabled,
	}
	if req.UpdateInterval != nil {
		d, err := time.ParseDuration(*req.UpdateInterval)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "update_interval must be a positive duration"})
			return
		}
		patch.UpdateInterval = &d
	}

	c.JSON(http.StatusOK, s.deps.Reporter.Configure(patch))
}

func (s *Server) handleNotificationOpened(c *gin.Context) {
	if err := s.deps.Reporter.HandleNotificationOpened(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.deps.Reporter.Status())
}
