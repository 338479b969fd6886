package reporter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/edgard/geonotify/internal/background"
	"github.com/edgard/geonotify/internal/geo"
	"github.com/edgard/geonotify/internal/lifecycle"
)

// Permissions is the result of a permission check.
type Permissions struct {
	Location      bool `json:"location"`
	Notifications bool `json:"notifications"`
}

// Granted reports whether every permission needed for reporting is present.
func (p Permissions) Granted() bool {
	return p.Location && p.Notifications
}

// PermissionChecker reports the current authorization state.
type PermissionChecker interface {
	CheckAll(ctx context.Context) (Permissions, error)
}

// LocationProvider supplies on-demand samples. A nil location with a nil
// error means no sample is available.
type LocationProvider interface {
	FreshSample(ctx context.Context) (*geo.Location, error)
}

// TaskHandle identifies a registered background task.
type TaskHandle interface {
	Cancel() error
}

// BackgroundScheduler registers periodic background tasks.
type BackgroundScheduler interface {
	RegisterPeriodic(name string, interval time.Duration, fn background.TaskFunc) (TaskHandle, error)
}

// SessionState describes the user session.
type SessionState struct {
	Active bool
	UserID string
}

// AuthProvider exposes the current user session.
type AuthProvider interface {
	SessionState(ctx context.Context) (SessionState, error)
	Credential(ctx context.Context) (string, error)
}

// PushTokenProvider supplies the device push token. An empty token means
// none is available.
type PushTokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Report is one outbound location report.
type Report struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	PushToken    string  `json:"fcmToken"`
	RadiusMeters float64 `json:"radius"`
	IsAppActive  bool    `json:"isAppActive"`
}

// Ack is the remote acknowledgement of a report. The body is opaque.
type Ack struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// LocationReporter sends reports to the backend.
type LocationReporter interface {
	ReportLocation(ctx context.Context, r Report) (Ack, error)
}

// LocationStore persists the last known sample.
type LocationStore interface {
	SaveLastLocation(ctx context.Context, loc geo.Location) error
	LoadLastLocation(ctx context.Context) (*geo.Location, error)
}

// AppStateSource delivers foreground/background transitions.
type AppStateSource interface {
	Current() lifecycle.State
	Subscribe(fn func(lifecycle.State)) (unsubscribe func())
}

// Deps groups the collaborators of a Scheduler.
type Deps struct {
	Permissions PermissionChecker
	Locations   LocationProvider
	Auth        AuthProvider
	PushTokens  PushTokenProvider
	Remote      LocationReporter
	Store       LocationStore
	Background  BackgroundScheduler
	AppState    AppStateSource
}
