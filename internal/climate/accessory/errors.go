package accessory

import (
	"errors"
	"fmt"
)

// Domain errors for accessory configuration and property access.
var (
	// ErrInvalidOption indicates the device options failed validation.
	ErrInvalidOption = errors.New("accessory: invalid option")

	// ErrUnknownProperty indicates a property name that does not exist.
	ErrUnknownProperty = errors.New("accessory: unknown property")

	// ErrDisabledProperty indicates a property this configuration does not expose.
	ErrDisabledProperty = errors.New("accessory: property disabled by configuration")

	// ErrReadOnly indicates a write to an observed-only property.
	ErrReadOnly = errors.New("accessory: property is read-only")

	// ErrInvalidValue indicates a write value of the wrong type or range.
	ErrInvalidValue = errors.New("accessory: invalid value")
)

func unknownProperty(p Property) error {
	return fmt.Errorf("%w: %q", ErrUnknownProperty, p)
}

func invalidValue(p Property, v any, reason string) error {
	return fmt.Errorf("%w: %s=%v: %s", ErrInvalidValue, p, v, reason)
}
