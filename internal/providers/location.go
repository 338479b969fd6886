package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/edgard/geonotify/internal/geo"
	"github.com/edgard/geonotify/internal/reporter"
)

// Source produces raw position fixes.
type Source interface {
	Read(ctx context.Context) (*geo.Location, error)
}

// StaticSource always returns the same position.
type StaticSource struct {
	Location geo.Location
}

func (s StaticSource) Read(context.Context) (*geo.Location, error) {
	loc := s.Location
	return &loc, nil
}

// FileSource reads the latest fix from a JSON file of the form
// {"latitude": 48.85, "longitude": 2.35}, as written by a GPS daemon.
type FileSource struct {
	Path string
}

func (s FileSource) Read(ctx context.Context) (*geo.Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read location file: %w", err)
	}
	var loc geo.Location
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, fmt.Errorf("failed to decode location file %s: %w", s.Path, err)
	}
	return &loc, nil
}

// LocationProvider returns fresh samples from a Source and falls back to the
// last persisted location when the source has nothing usable.
type LocationProvider struct {
	source Source
	store  reporter.LocationStore
	logger *slog.Logger
}

var _ reporter.LocationProvider = (*LocationProvider)(nil)

// NewLocationProvider creates a LocationProvider. store may be nil to disable
// the fallback.
func NewLocationProvider(source Source, store reporter.LocationStore, logger *slog.Logger) *LocationProvider {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LocationProvider{
		source: source,
		store:  store,
		logger: logger.With("component", "location"),
	}
}

// FreshSample implements reporter.LocationProvider.
func (p *LocationProvider) FreshSample(ctx context.Context) (*geo.Location, error) {
	loc, err := p.source.Read(ctx)
	if err == nil && loc != nil {
		if err = loc.Validate(); err == nil {
			return loc, nil
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	p.logger.WarnContext(ctx, "Location source unavailable, using last known location", "error", err)
	if p.store == nil {
		return nil, err
	}
	cached, cacheErr := p.store.LoadLastLocation(ctx)
	if cacheErr != nil {
		return nil, errors.Join(err, cacheErr)
	}
	return cached, nil
}
