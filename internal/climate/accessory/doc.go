// Package accessory binds one air conditioner's DP layout to the client
// property model.
//
// An Accessory is built from per-device Options (DP key overrides, mode
// commands, divisors, feature toggles, names). It is immutable once built and
// answers three questions for the sync engine:
//
//   - Derive: what is property P given this DP snapshot?
//   - Encode: which DP updates implement "set P to V"?
//   - Dependencies: which DP keys can change P?
//
// # Representations
//
// The main unit is exposed either as a heater-cooler (power is its own
// property, the target state is auto/heat/cool/other) or as a thermostat
// (power folds into target state off/heat/cool/auto and the indoor fan moves
// to a separate fan service). The two cannot be mixed on one device.
//
// # No-op writes
//
// Some writes are accepted and intentionally do nothing: selecting a target
// that configuration disables, or changing the fresh-air speed while that fan
// runs in auto. Encode reports these with an empty delta and a nil error.
//
// # Exposure
//
// Exposed lists the services and characteristics a host should present for
// the current configuration. Hosts reconcile their own objects against it
// with DiffExposed.
package accessory
