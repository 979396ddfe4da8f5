// Package modemap maps a device's free-form mode string and power flag onto
// the client's closed set of operating states.
//
// # Target state
//
// The device knows three directional roles (cool, heat, auto) by configured
// command strings. Any other mode, such as fan-only "wind" or "dry", is not
// representable and is shown as Auto (or Other, by policy).
//
// # Current state
//
// The device does not say which actuator runs while it is in its own auto or
// fan mode. The mapper infers a direction by comparing the live temperature
// against the target with a hysteresis band, and reports Idle inside the band
// so the display does not flap around the setpoint.
//
// # Command validation
//
// Command overrides must match a per-role pattern (cool starts with "c" and
// so on). ResolveCommands either fails fast or falls back to the default,
// depending on the strict flag.
package modemap
