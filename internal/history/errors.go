package history

import "errors"

// Domain errors for property history.
var (
	// ErrNotFound indicates no stored snapshot exists for the device.
	ErrNotFound = errors.New("history: not found")

	// ErrInvalidArgument indicates a missing device id or a bad retention.
	ErrInvalidArgument = errors.New("history: invalid argument")
)
