package modemap

// TargetState is the client-facing requested operating state.
type TargetState string

// Target states. Other is only produced by the heater-cooler form for modes
// the configuration disables or does not recognise.
const (
	TargetOff   TargetState = "off"
	TargetHeat  TargetState = "heat"
	TargetCool  TargetState = "cool"
	TargetAuto  TargetState = "auto"
	TargetOther TargetState = "other"
)

// Valid reports whether t is a known target state.
func (t TargetState) Valid() bool {
	switch t {
	case TargetOff, TargetHeat, TargetCool, TargetAuto, TargetOther:
		return true
	}
	return false
}

// CurrentState is the observed (or inferred) operating direction.
type CurrentState string

// Current states.
const (
	CurrentOff     CurrentState = "off"
	CurrentHeating CurrentState = "heating"
	CurrentCooling CurrentState = "cooling"
	CurrentIdle    CurrentState = "idle"
)

// Thermostat ordinals (TargetHeatingCoolingState).
var thermostatOrdinals = map[int]TargetState{
	0: TargetOff,
	1: TargetHeat,
	2: TargetCool,
	3: TargetAuto,
}

// Heater-cooler ordinals (TargetHeaterCoolerState). Power is a separate
// characteristic in this form, so there is no off state.
var heaterCoolerOrdinals = map[int]TargetState{
	0: TargetAuto,
	1: TargetHeat,
	2: TargetCool,
}

// ParseTargetState accepts a state name or a thermostat ordinal (0 off,
// 1 heat, 2 cool, 3 auto).
func ParseTargetState(v any) (TargetState, bool) {
	return parseTarget(v, thermostatOrdinals)
}

// ParseHeaterCoolerTargetState accepts a state name other than off, or a
// heater-cooler ordinal (0 auto, 1 heat, 2 cool).
func ParseHeaterCoolerTargetState(v any) (TargetState, bool) {
	t, ok := parseTarget(v, heaterCoolerOrdinals)
	if t == TargetOff {
		return t, false
	}
	return t, ok
}

func parseTarget(v any, ordinals map[int]TargetState) (TargetState, bool) {
	switch s := v.(type) {
	case TargetState:
		return s, s.Valid()
	case string:
		t := TargetState(s)
		return t, t.Valid()
	case int:
		t, ok := ordinals[s]
		return t, ok
	case float64:
		if s != float64(int(s)) {
			return "", false
		}
		t, ok := ordinals[int(s)]
		return t, ok
	}
	return "", false
}
