package modemap

import "errors"

// Domain errors for mode mapping configuration.
var (
	// ErrInvalidCommand indicates a mode command override failed validation.
	ErrInvalidCommand = errors.New("modemap: invalid mode command")

	// ErrInvalidPolicy indicates an unknown unmatched-mode policy.
	ErrInvalidPolicy = errors.New("modemap: invalid unmatched mode policy")
)
