package accessory

import (
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/fanspeed"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/modemap"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/scale"
)

// Accessory is a resolved device configuration.
//
// It is built once from Options and is read-only afterwards, so a single
// Accessory may be shared by concurrent readers.
type Accessory struct {
	name           string
	keys           Keys
	representation Representation
	mapper         *modemap.Mapper
	quantizer      *fanspeed.Quantizer
	divisor        scale.Divisor
	minTemp        float64
	maxTemp        float64
	tempStep       float64
	ventFallback   string
	healthByte     int
	healthBit      int
	names          names
	features       features
	enabled        []Property
	enabledSet     map[Property]bool
	fellBack       []string
}

type features struct {
	noCool             bool
	noHeat             bool
	noAuto             bool
	noRotationSpeed    bool
	noHumiditySensor   bool
	hideIndoorFan      bool
	noFreshAir         bool
	freshAirAsSwitches bool
}

type names struct {
	main         string
	indoorFan    string
	freshAir     string
	ventSwitch   string
	health       string
	freshAirAuto string
	freshAirL1   string
	freshAirL2   string
	freshAirL3   string
}

// New resolves Options into an Accessory.
//
// All option problems are collected and returned together. Mode command
// overrides that fail validation abort construction only when
// StrictCommands is set; otherwise the default is used and the role is
// listed by FellBack.
//
// Parameters:
//   - opts: Raw device options
//
// Returns:
//   - *Accessory: Resolved configuration
//   - error: ErrInvalidOption (or modemap.ErrInvalidCommand) describing every problem
func New(opts Options) (*Accessory, error) {
	var errs []string

	keys, keyErrs := resolveKeys(opts)
	errs = append(errs, keyErrs...)

	cmds, fellBack, err := modemap.ResolveCommands(modemap.Commands{
		Cool: opts.CmdCool,
		Heat: opts.CmdHeat,
		Auto: opts.CmdAuto,
		Wind: opts.CmdWind,
	}, opts.StrictCommands)
	if err != nil {
		return nil, err
	}

	representation := opts.Representation
	switch {
	case representation == "" && opts.UseThermostatUI:
		representation = RepresentationThermostat
	case representation == "":
		representation = RepresentationHeaterCooler
	case representation != RepresentationHeaterCooler && representation != RepresentationThermostat:
		errs = append(errs, fmt.Sprintf("representation %q is invalid (use heater_cooler or thermostat)", representation))
	}

	divisor := scale.ResolveDivisor(opts.TargetTemperatureDivisor, opts.TemperatureDivisor)

	mapper, err := modemap.New(modemap.Options{
		Commands:        cmds,
		Divisor:         divisor,
		Hysteresis:      opts.Hysteresis,
		UnmatchedTarget: modemap.TargetState(strings.TrimSpace(opts.UnmatchedModeTarget)),
		NoCool:          opts.NoCool,
		NoHeat:          opts.NoHeat,
		NoAuto:          opts.NoAuto,
	})
	if err != nil {
		errs = append(errs, err.Error())
	}

	quantizer, err := fanspeed.New(fanspeed.Options{
		Table:         opts.SpeedTable,
		Reverse:       opts.SpeedQuantizer,
		Numeric:       opts.ForceNumericFan,
		Steps:         opts.FanSpeedSteps,
		StepsAsString: opts.FanSpeedSteps > 0,
	})
	if err != nil {
		errs = append(errs, err.Error())
	}

	minTemp := orDefault(opts.MinTemperature, DefaultMinTemperature)
	maxTemp := orDefault(opts.MaxTemperature, DefaultMaxTemperature)
	step := orDefault(opts.MinTemperatureSteps, DefaultMinTemperatureSteps)
	if minTemp >= maxTemp {
		errs = append(errs, fmt.Sprintf("min_temperature %v must be below max_temperature %v", minTemp, maxTemp))
	}
	if step < 0 {
		errs = append(errs, fmt.Sprintf("min_temperature_steps %v must not be negative", step))
	}
	if opts.Hysteresis < 0 {
		errs = append(errs, fmt.Sprintf("hysteresis %v must not be negative", opts.Hysteresis))
	}

	healthByte := intOrDefault(opts.HealthByte, DefaultHealthByte)
	healthBit := intOrDefault(opts.HealthBitIndex, DefaultHealthBitIndex)
	if healthByte < 0 {
		errs = append(errs, fmt.Sprintf("health_byte %d must not be negative", healthByte))
	}
	if healthBit < 0 || healthBit > 7 {
		errs = append(errs, fmt.Sprintf("health_bit_index %d must be between 0 and 7", healthBit))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOption, strings.Join(errs, "; "))
	}

	ventFallback := strings.TrimSpace(opts.VentFallbackMode)
	if ventFallback == "" {
		ventFallback = cmds.Auto
	}

	a := &Accessory{
		name:           opts.Name,
		keys:           keys,
		representation: representation,
		mapper:         mapper,
		quantizer:      quantizer,
		divisor:        divisor,
		minTemp:        minTemp,
		maxTemp:        maxTemp,
		tempStep:       step,
		ventFallback:   ventFallback,
		healthByte:     healthByte,
		healthBit:      healthBit,
		names:          resolveNames(opts),
		features: features{
			noCool:             opts.NoCool,
			noHeat:             opts.NoHeat,
			noAuto:             opts.NoAuto,
			noRotationSpeed:    opts.NoRotationSpeed,
			noHumiditySensor:   opts.NoHumiditySensor,
			hideIndoorFan:      opts.HideIndoorFan,
			noFreshAir:         opts.NoFreshAir,
			freshAirAsSwitches: opts.FreshAirAsSwitches,
		},
		fellBack: fellBack,
	}
	a.enabled = a.resolveEnabled()
	a.enabledSet = make(map[Property]bool, len(a.enabled))
	for _, p := range a.enabled {
		a.enabledSet[p] = true
	}
	return a, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func intOrDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func resolveNames(o Options) names {
	pick := func(v, def string) string {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
		return def
	}
	return names{
		main:         o.Name,
		indoorFan:    pick(o.IndoorFanName, o.Name+defaultIndoorFanSuffix),
		freshAir:     pick(o.FreshAirName, DefaultFreshAirName),
		ventSwitch:   pick(o.VentSwitchName, DefaultVentSwitchName),
		health:       pick(o.HealthName, DefaultHealthName),
		freshAirAuto: pick(o.FreshAirAutoName, DefaultFreshAirAutoName),
		freshAirL1:   pick(o.FreshAirL1Name, DefaultFreshAirL1Name),
		freshAirL2:   pick(o.FreshAirL2Name, DefaultFreshAirL2Name),
		freshAirL3:   pick(o.FreshAirL3Name, DefaultFreshAirL3Name),
	}
}

// resolveEnabled applies the feature toggles to the property catalogue.
func (a *Accessory) resolveEnabled() []Property {
	f := a.features
	thermostat := a.representation == RepresentationThermostat

	off := map[Property]bool{}
	if f.noRotationSpeed || (thermostat && f.hideIndoorFan) {
		off[PropRotationSpeed] = true
	}
	if f.noHumiditySensor || thermostat {
		off[PropHumidity] = true
	}
	if f.noFreshAir || f.freshAirAsSwitches {
		off[PropFreshAirActive] = true
		off[PropFreshAirTargetState] = true
		off[PropFreshAirSpeed] = true
	}
	if f.noFreshAir || !f.freshAirAsSwitches {
		off[PropFreshAirAuto] = true
		off[PropFreshAirLevel1] = true
		off[PropFreshAirLevel2] = true
		off[PropFreshAirLevel3] = true
	}

	out := make([]Property, 0, len(propertyOrder))
	for _, p := range propertyOrder {
		if !off[p] {
			out = append(out, p)
		}
	}
	return out
}

// Name returns the configured display name.
func (a *Accessory) Name() string {
	return a.name
}

// Keys returns the resolved DP key per role.
func (a *Accessory) Keys() Keys {
	return a.keys
}

// Representation returns the client service shape.
func (a *Accessory) Representation() Representation {
	return a.representation
}

// Mapper returns the mode mapper.
func (a *Accessory) Mapper() *modemap.Mapper {
	return a.mapper
}

// Quantizer returns the fan speed quantizer.
func (a *Accessory) Quantizer() *fanspeed.Quantizer {
	return a.quantizer
}

// Divisor returns the threshold divisor.
func (a *Accessory) Divisor() scale.Divisor {
	return a.divisor
}

// TemperatureRange returns the target temperature bounds and step.
func (a *Accessory) TemperatureRange() (minValue, maxValue, step float64) {
	return a.minTemp, a.maxTemp, a.tempStep
}

// FellBack lists mode command roles whose override was invalid and replaced
// by the default.
func (a *Accessory) FellBack() []string {
	return a.fellBack
}

// Properties returns the enabled properties in canonical order.
func (a *Accessory) Properties() []Property {
	out := make([]Property, len(a.enabled))
	copy(out, a.enabled)
	return out
}

// Enabled reports whether p is exposed by this configuration.
func (a *Accessory) Enabled(p Property) bool {
	return a.enabledSet[p]
}

// Dependencies returns the DP keys whose change can alter p.
func (a *Accessory) Dependencies(p Property) []string {
	def, ok := definitions[p]
	if !ok {
		return nil
	}
	return a.keys.For(def.deps...)
}

// ReadKeys returns the DP keys Encode needs current values for, nil when
// the write is blind.
func (a *Accessory) ReadKeys(p Property) []string {
	def, ok := definitions[p]
	if !ok || len(def.reads) == 0 {
		return nil
	}
	return a.keys.For(def.reads...)
}

// Writable reports whether p accepts writes.
func (a *Accessory) Writable(p Property) bool {
	return definitions[p].writable
}
