package fanspeed

import (
	"errors"
	"fmt"
)

// Domain errors for speed quantization.
var (
	// ErrInvalidTable indicates a malformed speed table.
	ErrInvalidTable = errors.New("fanspeed: invalid speed table")

	// ErrInvalidReverse indicates an unknown percent → name strategy.
	ErrInvalidReverse = errors.New("fanspeed: invalid reverse strategy")
)

func errInvalidReverse(r Reverse) error {
	return fmt.Errorf("%w: %q", ErrInvalidReverse, r)
}
