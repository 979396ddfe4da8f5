package scale

import "github.com/nerrad567/gray-logic-tuya/internal/climate/dp"

// DisplayUnits is the client-facing temperature display unit.
type DisplayUnits string

// Display units understood by the client model.
const (
	Celsius    DisplayUnits = "celsius"
	Fahrenheit DisplayUnits = "fahrenheit"
)

// Device-side unit tags.
const (
	deviceCelsius    = "C"
	deviceFahrenheit = "F"
)

// UnitsFromDevice maps the device unit tag to DisplayUnits.
// Only "F" means Fahrenheit; anything else, including a missing DP, is Celsius.
func UnitsFromDevice(v dp.Value) DisplayUnits {
	if s, ok := v.(string); ok && s == deviceFahrenheit {
		return Fahrenheit
	}
	return Celsius
}

// DeviceTag returns the device unit tag for u.
func (u DisplayUnits) DeviceTag() string {
	if u == Fahrenheit {
		return deviceFahrenheit
	}
	return deviceCelsius
}

// ParseDisplayUnits accepts the client enum, the device tag or a HomeKit
// style ordinal (0 Celsius, 1 Fahrenheit).
func ParseDisplayUnits(v any) (DisplayUnits, bool) {
	switch u := v.(type) {
	case DisplayUnits:
		return u, u == Celsius || u == Fahrenheit
	case string:
		switch u {
		case string(Celsius), deviceCelsius, "c":
			return Celsius, true
		case string(Fahrenheit), deviceFahrenheit, "f":
			return Fahrenheit, true
		}
		return "", false
	}
	if n, ok := dp.Int(v); ok {
		switch n {
		case 0:
			return Celsius, true
		case 1:
			return Fahrenheit, true
		}
	}
	return "", false
}
