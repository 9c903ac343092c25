package offline

import "errors"

var (
	// ErrUnknownKind is returned when recording an action that is neither clock-in nor clock-out.
	ErrUnknownKind = errors.New("unknown action kind")

	// ErrActionNotFound is returned when dropping a local id that is not queued.
	ErrActionNotFound = errors.New("pending action not found")
)
