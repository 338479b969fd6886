package background

import (
	"log/slog"

	"github.com/go-co-op/gocron/v2"
)

// gocronLogger forwards gocron's internal logging to slog. gocron is chatty at
// info level, so everything below warn is demoted to debug.
type gocronLogger struct {
	logger *slog.Logger
}

var _ gocron.Logger = (*gocronLogger)(nil)

func newGocronLogger(logger *slog.Logger) *gocronLogger {
	return &gocronLogger{logger: logger.With("source", "gocron")}
}

func (l *gocronLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

func (l *gocronLogger) Info(msg string, args ...any) { l.logger.Debug(msg, args...) }

func (l *gocronLogger) Warn(msg string, args ...any) { l.logger.Warn(msg, args...) }

func (l *gocronLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
