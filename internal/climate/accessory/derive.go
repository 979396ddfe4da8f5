package accessory

import (
	"github.com/nerrad567/gray-logic-tuya/internal/climate/bitfield"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/dp"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/scale"
)

// Values is a set of derived property values.
type Values map[Property]any

// Derive computes one property from a snapshot.
//
// Derivation never fails: missing or malformed DP values resolve to the safe
// default (false, 0, off, celsius). A nil snapshot behaves like an empty one.
//
// Parameters:
//   - p: Property to compute
//   - snap: Current DP snapshot
//
// Returns:
//   - any: The property value
//   - error: ErrUnknownProperty if p is not a known property
func (a *Accessory) Derive(p Property, snap dp.Snapshot) (any, error) {
	k := a.keys
	switch p {
	case PropActive:
		return a.active(snap), nil

	case PropTargetState:
		mode := dp.String(snap.Get(k[RoleMode]))
		if a.representation == RepresentationThermostat {
			return a.mapper.DeriveTarget(a.active(snap), mode), nil
		}
		return a.mapper.DeriveTargetMode(mode), nil

	case PropCurrentState:
		return a.mapper.DeriveCurrent(
			a.active(snap),
			dp.String(snap.Get(k[RoleMode])),
			snap.Get(k[RoleCurrentTemperature]),
			snap.Get(k[RoleThreshold]),
		), nil

	case PropTargetTemperature:
		return a.divisor.ToHuman(snap.Get(k[RoleThreshold])), nil

	case PropCurrentTemperature:
		return dp.NumberOr(snap.Get(k[RoleCurrentTemperature]), 0), nil

	case PropDisplayUnits:
		return scale.UnitsFromDevice(snap.Get(k[RoleTempUnits])), nil

	case PropRotationSpeed:
		if !a.active(snap) {
			return 0, nil
		}
		return a.quantizer.ToPercent(snap.Get(k[RoleRotationSpeed])), nil

	case PropHumidity:
		return dp.NumberOr(snap.Get(k[RoleHumidity]), 0), nil

	case PropFreshAirActive:
		v := a.freshAir(snap)
		return v != "" && v != freshAirOff, nil

	case PropFreshAirTargetState:
		if a.freshAir(snap) == freshAirAuto {
			return FanTargetAuto, nil
		}
		return FanTargetManual, nil

	case PropFreshAirSpeed:
		v := a.freshAir(snap)
		if v == "" || v == freshAirOff || v == freshAirAuto {
			return 0, nil
		}
		pct, _ := a.quantizer.Table().Percent(v)
		return pct, nil

	case PropFreshAirAuto, PropFreshAirLevel1, PropFreshAirLevel2, PropFreshAirLevel3:
		return a.freshAir(snap) == freshAirSwitchValues[p], nil

	case PropVentMode:
		return a.mapper.IsVent(dp.String(snap.Get(k[RoleMode]))), nil

	case PropHealth:
		return bitfield.ReadBit(snap.Get(k[RoleBoolCode]), a.healthBit, a.healthByte), nil
	}

	return nil, unknownProperty(p)
}

// DeriveAll computes every enabled property.
func (a *Accessory) DeriveAll(snap dp.Snapshot) Values {
	out := make(Values, len(a.enabled))
	for _, p := range a.enabled {
		// Enabled properties are always known, so Derive cannot fail here.
		v, _ := a.Derive(p, snap)
		out[p] = v
	}
	return out
}

func (a *Accessory) active(snap dp.Snapshot) bool {
	return dp.Bool(snap.Get(a.keys[RoleActive]))
}

func (a *Accessory) freshAir(snap dp.Snapshot) string {
	v, _ := snap.Get(a.keys[RoleFreshAir]).(string)
	return v
}
