// Package scale converts between device-stored integers and human-facing
// values, and maps the device's display-unit tag.
package scale

import (
	"math"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/dp"
)

// DefaultDivisor leaves device values unscaled.
const DefaultDivisor = 1

// Divisor is the integer factor a device uses to store a decimal value.
//
// Example: 22.0 °C stored as 220 uses Divisor 10.
type Divisor float64

// ResolveDivisor picks the effective divisor for the target temperature.
//
// Resolution order: the accessory-specific target divisor, then the general
// temperature divisor, then DefaultDivisor. Values below 1 count as unset.
//
// Parameters:
//   - target: target_temperature_divisor option (0 if unset)
//   - general: temperature_divisor option (0 if unset)
//
// Returns:
//   - Divisor: The first configured divisor, or DefaultDivisor
func ResolveDivisor(target, general float64) Divisor {
	if valid(target) {
		return Divisor(target)
	}
	if valid(general) {
		return Divisor(general)
	}
	return DefaultDivisor
}

func valid(d float64) bool {
	return d >= 1 && !math.IsInf(d, 0)
}

// ToHuman converts a raw device value to its human-facing form (raw / d).
//
// Non-numeric raw input yields 0 rather than NaN.
//
// Parameters:
//   - raw: DP value as decoded from the device (number or numeric string)
//
// Returns:
//   - float64: raw divided by the divisor, or 0
func (d Divisor) ToHuman(raw dp.Value) float64 {
	f, ok := dp.Number(raw)
	if !ok {
		return 0
	}
	return f / d.value()
}

// FromHuman converts a human-facing value to the raw integer the device
// stores: round(value * d), halves rounded up.
func (d Divisor) FromHuman(value float64) int {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return int(math.Floor(value*d.value() + 0.5))
}

func (d Divisor) value() float64 {
	if !valid(float64(d)) {
		return DefaultDivisor
	}
	return float64(d)
}

// ToHuman is the package-level form of Divisor.ToHuman.
func ToHuman(raw dp.Value, divisor float64) float64 {
	return Divisor(divisor).ToHuman(raw)
}

// FromHuman is the package-level form of Divisor.FromHuman.
func FromHuman(value float64, divisor float64) int {
	return Divisor(divisor).FromHuman(value)
}
