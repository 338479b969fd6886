package reporter

import "errors"

var (
	// ErrPermissionDenied is returned by Start when location or notification
	// permission is missing, or when the permission check itself fails.
	ErrPermissionDenied = errors.New("location or notification permission denied")
	// ErrNotRunning is returned by operations that need a started scheduler.
	ErrNotRunning = errors.New("location reporting is not running")
	// ErrIllegalTransition reports a run-state change missing from the
	// transition table.
	ErrIllegalTransition = errors.New("illegal run state transition")
	// ErrNoSample is returned when the location provider has nothing to offer.
	ErrNoSample = errors.New("no location sample available")
	// ErrReportTimeout is returned when the remote call outlives the request
	// timeout.
	ErrReportTimeout = errors.New("location report timed out")
)
