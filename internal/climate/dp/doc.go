// Package dp holds the decoded data point (DP) map shared by every climate
// translation package.
//
// A Tuya-style device exposes its whole state as a flat map of small string
// keys ("1", "2", "123") to loosely typed values. The gateway decodes the wire
// format into Go values before anything in this tree sees them, so a value is
// one of:
//
//   - bool
//   - a number (float64 from JSON, or any Go integer/float type)
//   - a string (enumerations and hex-encoded bit registers)
//
// # Snapshots and deltas
//
// A Snapshot is one observation of the device. A Delta carries only the keys
// changed by one device-originated update. Neither is mutated after it is
// handed to a consumer; Merge and Clone always return new maps.
//
// # Coercion
//
// Live devices send partial and oddly typed payloads. The coercion helpers
// (Number, Bool, String, Int) never fail loudly: they report whether a usable
// value was found and callers fall back to a safe default (0, false, "").
package dp
