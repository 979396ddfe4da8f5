// Package fanspeed quantizes between a device's named fan levels and the
// client's continuous 0-100 percent scale.
//
// # Named mode
//
// Forward: a fixed Table maps each level name to a representative percent.
// Reverse: either the coarse tri-level bucketing (≤33 low, ≤66 mid, else
// strong) or a nearest-neighbour search over the table with ties going to
// the first-declared level.
//
// # Numeric step mode
//
// Some devices take an integer step instead of a name. StepTable precomputes
// percent → step as floor(steps*(p-1)/100)+1 and the inverse lookup once at
// construction.
//
// Percent 0 never maps to a speed: it means "turn the device off", and the
// caller writes the power DP instead.
package fanspeed
