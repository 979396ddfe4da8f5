package syncengine

import "errors"

// Domain errors for the synchronization engine.
var (
	// ErrNotStarted indicates an operation on an engine that has not been
	// started or has been stopped.
	ErrNotStarted = errors.New("syncengine: engine not started")

	// ErrAlreadyStarted indicates Start was called twice.
	ErrAlreadyStarted = errors.New("syncengine: engine already started")

	// ErrEmptyWrite indicates a compound write with no properties.
	ErrEmptyWrite = errors.New("syncengine: empty write")

	// ErrMissingDependency indicates New was called without a required
	// collaborator.
	ErrMissingDependency = errors.New("syncengine: missing dependency")
)
