package timeclock

import "errors"

// Sentinel errors for time-clock operations.
var (
	ErrNoProject      = errors.New("please select a project first")
	ErrActionInFlight = errors.New("an action for this worker is already in progress")
	ErrUnknownWorker  = errors.New("worker not found")
	ErrUnknownProject = errors.New("project not found")
)
