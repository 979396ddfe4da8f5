package accessory

import (
	"github.com/nerrad567/gray-logic-tuya/internal/climate/modemap"
)

// HomeKit service types (short UUID form).
const (
	ServiceHeaterCooler   = "BC"
	ServiceThermostat     = "4A"
	ServiceFanV2          = "B7"
	ServiceSwitch         = "49"
	ServiceHumiditySensor = "82"
)

// HomeKit characteristic types (short UUID form).
const (
	CharActive                      = "B0"
	CharOn                          = "25"
	CharCurrentHeaterCoolerState    = "B1"
	CharTargetHeaterCoolerState     = "B2"
	CharCurrentHeatingCoolingState  = "F"
	CharTargetHeatingCoolingState   = "33"
	CharCurrentTemperature          = "11"
	CharTargetTemperature           = "35"
	CharCoolingThresholdTemperature = "D"
	CharTemperatureDisplayUnits     = "36"
	CharRotationSpeed               = "29"
	CharTargetFanState              = "BF"
	CharCurrentRelativeHumidity     = "10"
)

// Service subtypes for auxiliary services.
const (
	SubtypeIndoorFan    = "ACFan"
	SubtypeFreshAir     = "FreshAir"
	SubtypeVentMode     = "VentMode"
	SubtypeHealth       = "HealthSwitch"
	SubtypeFreshAirAuto = "FreshAirAuto"
	SubtypeFreshAirL1   = "FreshAirL1"
	SubtypeFreshAirL2   = "FreshAirL2"
	SubtypeFreshAirL3   = "FreshAirL3"
)

// Props constrains a characteristic's legal values.
type Props struct {
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Step        *float64 `json:"step,omitempty"`
	ValidValues []string `json:"valid_values,omitempty"`
}

// Exposure declares one characteristic the host should present.
type Exposure struct {
	Service        string   `json:"service"`
	Subtype        string   `json:"subtype,omitempty"`
	Name           string   `json:"name"`
	Primary        bool     `json:"primary,omitempty"`
	Characteristic string   `json:"characteristic"`
	Property       Property `json:"property"`
	Props          *Props   `json:"props,omitempty"`
}

// ExposureKey identifies a characteristic within a host accessory.
type ExposureKey struct {
	Service        string `json:"service"`
	Subtype        string `json:"subtype,omitempty"`
	Characteristic string `json:"characteristic"`
}

// Key returns the identity of e.
func (e Exposure) Key() ExposureKey {
	return ExposureKey{Service: e.Service, Subtype: e.Subtype, Characteristic: e.Characteristic}
}

// Exposed returns the ordered declaration of everything this configuration
// wants the host to present. The host diffs it against what it currently
// shows (see DiffExposed); the translation layer never touches host
// service objects.
func (a *Accessory) Exposed() []Exposure {
	var out []Exposure
	add := func(e Exposure) {
		if a.enabledSet[e.Property] {
			out = append(out, e)
		}
	}

	minT, maxT, step := a.minTemp, a.maxTemp, a.tempStep
	tempProps := &Props{Min: &minT, Max: &maxT, Step: &step}
	pctMin, pctMax, pctStep := 0.0, 100.0, 1.0
	pctProps := &Props{Min: &pctMin, Max: &pctMax, Step: &pctStep}

	if a.representation == RepresentationThermostat {
		main := Exposure{Service: ServiceThermostat, Name: a.names.main, Primary: true}
		add(with(main, CharCurrentTemperature, PropCurrentTemperature, nil))
		add(with(main, CharTargetTemperature, PropTargetTemperature, tempProps))
		add(with(main, CharTargetHeatingCoolingState, PropTargetState, &Props{ValidValues: []string{
			string(modemap.TargetOff), string(modemap.TargetHeat), string(modemap.TargetCool), string(modemap.TargetAuto),
		}}))
		add(with(main, CharCurrentHeatingCoolingState, PropCurrentState, nil))
		add(with(main, CharTemperatureDisplayUnits, PropDisplayUnits, nil))

		if a.enabledSet[PropRotationSpeed] {
			fan := Exposure{Service: ServiceFanV2, Subtype: SubtypeIndoorFan, Name: a.names.indoorFan}
			add(with(fan, CharActive, PropActive, nil))
			add(with(fan, CharRotationSpeed, PropRotationSpeed, pctProps))
		}
	} else {
		main := Exposure{Service: ServiceHeaterCooler, Name: a.names.main, Primary: true}
		add(with(main, CharActive, PropActive, nil))
		add(with(main, CharCurrentHeaterCoolerState, PropCurrentState, nil))
		add(with(main, CharTargetHeaterCoolerState, PropTargetState, &Props{ValidValues: a.heaterCoolerTargets()}))
		add(with(main, CharCurrentTemperature, PropCurrentTemperature, nil))
		add(with(main, CharCoolingThresholdTemperature, PropTargetTemperature, tempProps))
		add(with(main, CharTemperatureDisplayUnits, PropDisplayUnits, nil))
		add(with(main, CharRotationSpeed, PropRotationSpeed, pctProps))

		humidity := Exposure{Service: ServiceHumiditySensor, Name: a.names.main + defaultHumiditySuffix}
		add(with(humidity, CharCurrentRelativeHumidity, PropHumidity, nil))
	}

	fresh := Exposure{Service: ServiceFanV2, Subtype: SubtypeFreshAir, Name: a.names.freshAir}
	freshMin, freshMax, freshStep := 0.0, 100.0, 33.0
	add(with(fresh, CharActive, PropFreshAirActive, nil))
	add(with(fresh, CharTargetFanState, PropFreshAirTargetState, &Props{ValidValues: []string{
		string(FanTargetManual), string(FanTargetAuto),
	}}))
	add(with(fresh, CharRotationSpeed, PropFreshAirSpeed, &Props{Min: &freshMin, Max: &freshMax, Step: &freshStep}))

	switches := []struct {
		subtype string
		name    string
		prop    Property
	}{
		{SubtypeFreshAirAuto, a.names.freshAirAuto, PropFreshAirAuto},
		{SubtypeFreshAirL1, a.names.freshAirL1, PropFreshAirLevel1},
		{SubtypeFreshAirL2, a.names.freshAirL2, PropFreshAirLevel2},
		{SubtypeFreshAirL3, a.names.freshAirL3, PropFreshAirLevel3},
		{SubtypeVentMode, a.names.ventSwitch, PropVentMode},
		{SubtypeHealth, a.names.health, PropHealth},
	}
	for _, s := range switches {
		add(Exposure{Service: ServiceSwitch, Subtype: s.subtype, Name: s.name, Characteristic: CharOn, Property: s.prop})
	}

	return out
}

func with(base Exposure, characteristic string, p Property, props *Props) Exposure {
	base.Characteristic = characteristic
	base.Property = p
	base.Props = props
	return base
}

// heaterCoolerTargets lists the selectable targets, followed by "other"
// which is display-only.
func (a *Accessory) heaterCoolerTargets() []string {
	var out []string
	for _, t := range []modemap.TargetState{modemap.TargetAuto, modemap.TargetHeat, modemap.TargetCool} {
		if a.mapper.Enabled(t) {
			out = append(out, string(t))
		}
	}
	return append(out, string(modemap.TargetOther))
}

// DiffExposed compares what the host currently presents with what is wanted.
//
// Returns:
//   - add: Wanted exposures missing from current, in wanted order
//   - remove: Current keys no longer wanted, in current order
func DiffExposed(current []ExposureKey, wanted []Exposure) (add []Exposure, remove []ExposureKey) {
	have := make(map[ExposureKey]bool, len(current))
	for _, k := range current {
		have[k] = true
	}
	want := make(map[ExposureKey]bool, len(wanted))
	for _, e := range wanted {
		want[e.Key()] = true
		if !have[e.Key()] {
			add = append(add, e)
		}
	}
	for _, k := range current {
		if !want[k] {
			remove = append(remove, k)
		}
	}
	return add, remove
}
