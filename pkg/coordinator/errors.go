package coordinator

import "errors"

// Sentinel errors for the coordinator.
var (
	// ErrDuplicateStore is returned by New when two stores share a name.
	ErrDuplicateStore = errors.New("coordinator: duplicate store name")

	// ErrInvalidSchedule is returned when a refresh schedule cannot be parsed.
	ErrInvalidSchedule = errors.New("coordinator: invalid refresh schedule")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("coordinator: already started")

	// ErrRefreshFailed wraps store load failures during RefreshStale.
	ErrRefreshFailed = errors.New("coordinator: refresh failed")
)
