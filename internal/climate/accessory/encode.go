package accessory

import (
	"fmt"
	"math"
	"strings"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/bitfield"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/dp"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/fanspeed"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/modemap"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/scale"
)

// Encode translates a property write into DP updates.
//
// An empty, non-nil delta with a nil error is a deliberate no-op (for
// example Auto requested while auto mode is disabled, or a fresh-air speed
// change while the fan runs in auto). Callers treat it as success without
// contacting the device.
//
// Accepted client encodings:
//   - active, fan and switch properties: bool, the HomeKit Active ordinals
//     1 (ACTIVE) and 0 (INACTIVE), or "true"/"false", "on"/"off",
//     "active"/"inactive", "1"/"0"
//   - target_state: a state name or the ordinals of the exposed
//     characteristic (see encodeTargetState)
//   - fresh_air_target_state: "auto"/"manual" or TargetFanState 1/0
//   - rotation_speed, fresh_air_speed: number 0-100
//   - target_temperature: number in display units
//   - display_units: "celsius"/"fahrenheit" or TemperatureDisplayUnits 0/1
//
// Parameters:
//   - p: Property being written
//   - v: Client value (bool, number, or enum name)
//   - current: Latest DP values for the keys listed by ReadKeys(p)
//
// Returns:
//   - dp.Delta: DP keys and values to send together
//   - error: ErrUnknownProperty, ErrDisabledProperty, ErrReadOnly or ErrInvalidValue
func (a *Accessory) Encode(p Property, v any, current dp.Snapshot) (dp.Delta, error) {
	def, ok := definitions[p]
	if !ok {
		return nil, unknownProperty(p)
	}
	if !a.enabledSet[p] {
		return nil, fmt.Errorf("%w: %s", ErrDisabledProperty, p)
	}
	if !def.writable {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, p)
	}

	k := a.keys
	switch p {
	case PropActive:
		on, ok := parseBool(v)
		if !ok {
			return nil, invalidValue(p, v, "want boolean")
		}
		return dp.Delta{k[RoleActive]: on}, nil

	case PropTargetState:
		return a.encodeTargetState(v)

	case PropTargetTemperature:
		return a.encodeTargetTemperature(v)

	case PropDisplayUnits:
		u, ok := scale.ParseDisplayUnits(v)
		if !ok {
			return nil, invalidValue(p, v, "want celsius or fahrenheit")
		}
		return dp.Delta{k[RoleTempUnits]: u.DeviceTag()}, nil

	case PropRotationSpeed:
		pct, ok := parsePercent(v)
		if !ok {
			return nil, invalidValue(p, v, "want percent 0-100")
		}
		speed, on := a.quantizer.FromPercent(pct)
		if !on {
			return dp.Delta{k[RoleActive]: false}, nil
		}
		return dp.Delta{k[RoleActive]: true, k[RoleRotationSpeed]: speed}, nil

	case PropFreshAirActive:
		on, ok := parseBool(v)
		if !ok {
			return nil, invalidValue(p, v, "want boolean")
		}
		if on {
			return dp.Delta{k[RoleFreshAir]: freshAirAuto}, nil
		}
		return dp.Delta{k[RoleFreshAir]: freshAirOff}, nil

	case PropFreshAirTargetState:
		return a.encodeFreshAirTarget(v, current)

	case PropFreshAirSpeed:
		pct, ok := parsePercent(v)
		if !ok {
			return nil, invalidValue(p, v, "want percent 0-100")
		}
		if a.freshAir(current) == freshAirAuto {
			return dp.Delta{}, nil
		}
		level := fanspeed.LevelLow
		if pct > 1 {
			level = fanspeed.TriLevel(pct)
		}
		return dp.Delta{k[RoleFreshAir]: level}, nil

	case PropFreshAirAuto, PropFreshAirLevel1, PropFreshAirLevel2, PropFreshAirLevel3:
		on, ok := parseBool(v)
		if !ok {
			return nil, invalidValue(p, v, "want boolean")
		}
		if !on {
			return dp.Delta{k[RoleFreshAir]: freshAirOff}, nil
		}
		return dp.Delta{k[RoleFreshAir]: freshAirSwitchValues[p]}, nil

	case PropVentMode:
		on, ok := parseBool(v)
		if !ok {
			return nil, invalidValue(p, v, "want boolean")
		}
		if on {
			return dp.Delta{k[RoleMode]: a.mapper.Commands().Wind}, nil
		}
		return dp.Delta{k[RoleMode]: a.ventFallback}, nil

	case PropHealth:
		on, ok := parseBool(v)
		if !ok {
			return nil, invalidValue(p, v, "want boolean")
		}
		next := bitfield.WriteBit(current.Get(k[RoleBoolCode]), a.healthBit, on, a.healthByte)
		return dp.Delta{k[RoleBoolCode]: next}, nil
	}

	return nil, unknownProperty(p)
}

// encodeTargetState reads numeric targets with the ordinals of the exposed
// characteristic: thermostat 0 off, 1 heat, 2 cool, 3 auto; heater-cooler
// 0 auto, 1 heat, 2 cool. The heater-cooler form has no off target.
func (a *Accessory) encodeTargetState(v any) (dp.Delta, error) {
	k := a.keys
	if a.representation != RepresentationThermostat {
		target, ok := modemap.ParseHeaterCoolerTargetState(v)
		if !ok {
			return nil, invalidValue(PropTargetState, v, "want heat, cool or auto")
		}
		cmd, enabled := a.mapper.Command(target)
		if !enabled {
			// Disabled or unrepresentable targets are accepted and ignored.
			return dp.Delta{}, nil
		}
		return dp.Delta{k[RoleMode]: cmd}, nil
	}

	target, ok := modemap.ParseTargetState(v)
	if !ok {
		return nil, invalidValue(PropTargetState, v, "want off, heat, cool or auto")
	}
	if target == modemap.TargetOff {
		return dp.Delta{k[RoleActive]: false}, nil
	}
	cmd, enabled := a.mapper.Command(target)
	if !enabled {
		return dp.Delta{}, nil
	}
	return dp.Delta{k[RoleActive]: true, k[RoleMode]: cmd}, nil
}

func (a *Accessory) encodeTargetTemperature(v any) (dp.Delta, error) {
	f, ok := dp.Number(v)
	if !ok {
		return nil, invalidValue(PropTargetTemperature, v, "want number")
	}
	if a.tempStep > 0 {
		f = math.Round(f/a.tempStep) * a.tempStep
	}
	if f < a.minTemp || f > a.maxTemp {
		return nil, invalidValue(PropTargetTemperature, v, fmt.Sprintf("outside %v-%v", a.minTemp, a.maxTemp))
	}
	return dp.Delta{a.keys[RoleThreshold]: a.divisor.FromHuman(f)}, nil
}

func (a *Accessory) encodeFreshAirTarget(v any, current dp.Snapshot) (dp.Delta, error) {
	var target FanTargetState
	switch t := v.(type) {
	case FanTargetState:
		target = t
	case string:
		target = FanTargetState(strings.ToLower(t))
	default:
		// HomeKit ordinal: 0 manual, 1 auto.
		n, ok := dp.Int(v)
		if !ok || (n != 0 && n != 1) {
			return nil, invalidValue(PropFreshAirTargetState, v, "want auto or manual")
		}
		target = FanTargetManual
		if n == 1 {
			target = FanTargetAuto
		}
	}

	key := a.keys[RoleFreshAir]
	switch target {
	case FanTargetAuto:
		return dp.Delta{key: freshAirAuto}, nil
	case FanTargetManual:
		cur := a.freshAir(current)
		if cur == "" || cur == freshAirAuto || cur == freshAirOff {
			return dp.Delta{key: fanspeed.LevelLow}, nil
		}
		return dp.Delta{}, nil
	}
	return nil, invalidValue(PropFreshAirTargetState, v, "want auto or manual")
}

// EncodeCompound translates several property writes into one DP update.
//
// Properties are encoded in canonical order against the same current values.
// Two properties that need different values for one DP key are rejected so
// a single user action never sends a self-contradicting request.
//
// Returns:
//   - dp.Delta: Merged updates (empty when every write is a no-op)
//   - error: The first encoding error, or ErrInvalidValue on a conflict
func (a *Accessory) EncodeCompound(values Values, current dp.Snapshot) (dp.Delta, error) {
	merged := dp.Delta{}
	owner := map[string]Property{}

	for _, p := range orderedKeys(values) {
		delta, err := a.Encode(p, values[p], current)
		if err != nil {
			return nil, err
		}
		for key, val := range delta {
			if prev, seen := merged[key]; seen && !dp.Equal(prev, val) {
				return nil, fmt.Errorf("%w: %s and %s disagree on dp %s (%v vs %v)",
					ErrInvalidValue, owner[key], p, key, prev, val)
			}
			merged[key] = val
			owner[key] = p
		}
	}
	return merged, nil
}

// CompoundReadKeys returns the union of ReadKeys for every property in values.
func (a *Accessory) CompoundReadKeys(values Values) []string {
	seen := map[string]bool{}
	var keys []string
	for _, p := range orderedKeys(values) {
		for _, key := range a.ReadKeys(p) {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// orderedKeys returns the properties in values in canonical order; unknown
// names follow in their map order so Encode can reject them.
func orderedKeys(values Values) []Property {
	out := make([]Property, 0, len(values))
	for _, p := range propertyOrder {
		if _, ok := values[p]; ok {
			out = append(out, p)
		}
	}
	for p := range values {
		if _, known := definitions[p]; !known {
			out = append(out, p)
		}
	}
	return out
}

// parseBool accepts booleans, the Active ordinals 1/0 and the on/off
// strings listed on Encode.
func parseBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "on", "1", "active":
			return true, true
		case "false", "off", "0", "inactive":
			return false, true
		}
		return false, false
	}
	if f, ok := dp.Number(v); ok {
		switch f {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	}
	return false, false
}

// parsePercent accepts a number in 0-100 and rounds it to an integer.
func parsePercent(v any) (int, bool) {
	if _, isBool := v.(bool); isBool {
		return 0, false
	}
	f, ok := dp.Number(v)
	if !ok || f < 0 || f > 100 {
		return 0, false
	}
	return int(math.Round(f)), true
}
