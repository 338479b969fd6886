// Package tasks implements the scheduled maintenance tasks of geonotify and
// their registration with the background scheduler.
package tasks

import (
	"log/slog"

	"github.com/edgard/geonotify/internal/database"
	"github.com/edgard/geonotify/internal/reporter"
)

// StatusSource exposes the reporting scheduler status.
type StatusSource interface {
	Status() reporter.Status
}

// TaskDeps contains the dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Store    database.Store
	Reporter StatusSource
}
