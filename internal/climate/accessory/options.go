package accessory

import "github.com/nerrad567/gray-logic-tuya/internal/climate/fanspeed"

// Representation selects the client service shape for the main unit.
type Representation string

// Client representations.
const (
	// RepresentationHeaterCooler exposes power, target mode and a single
	// threshold on a heater-cooler service.
	RepresentationHeaterCooler Representation = "heater_cooler"

	// RepresentationThermostat folds power into the target state (off/heat/
	// cool/auto) and moves the indoor fan to its own service.
	RepresentationThermostat Representation = "thermostat"
)

// Options is the per-device configuration as it appears in the devices file.
//
// Every field is optional; the zero value resolves to the documented default.
// Unknown YAML keys are ignored.
type Options struct {
	// DP keys per role. Empty selects the default key.
	DPActive             string `yaml:"dp_active"`
	DPThreshold          string `yaml:"dp_threshold"`
	DPCurrentTemperature string `yaml:"dp_current_temperature"`
	DPMode               string `yaml:"dp_mode"`
	DPRotationSpeed      string `yaml:"dp_rotation_speed"`
	DPTempUnits          string `yaml:"dp_temp_units"`
	DPFreshAir           string `yaml:"dp_fresh_air"`
	DPHumidity           string `yaml:"dp_humidity"`
	DPBoolCode           string `yaml:"dp_bool_code"`

	// Mode command strings. Overrides must match ^c, ^h, ^a and ^w followed
	// by letters respectively.
	CmdCool string `yaml:"cmd_cool"`
	CmdHeat string `yaml:"cmd_heat"`
	CmdAuto string `yaml:"cmd_auto"`
	CmdWind string `yaml:"cmd_wind"`

	// StrictCommands fails construction on an invalid command override
	// instead of falling back to the default.
	StrictCommands bool `yaml:"strict_commands"`

	// VentFallbackMode is written when the vent-mode switch turns off.
	// Default: the auto command.
	VentFallbackMode string `yaml:"vent_fallback_mode"`

	// Divisors for the threshold DP. Target wins over general; default 1.
	TargetTemperatureDivisor float64 `yaml:"target_temperature_divisor"`
	TemperatureDivisor       float64 `yaml:"temperature_divisor"`

	// Target temperature bounds. Defaults: 10, 35, 0.5.
	MinTemperature      float64 `yaml:"min_temperature"`
	MaxTemperature      float64 `yaml:"max_temperature"`
	MinTemperatureSteps float64 `yaml:"min_temperature_steps"`

	// Hysteresis is the dead band for inferring heating/cooling. Default 0.3.
	Hysteresis float64 `yaml:"hysteresis"`

	// Representation picks heater_cooler (default) or thermostat.
	Representation Representation `yaml:"representation"`

	// UseThermostatUI is the legacy switch for the thermostat representation.
	UseThermostatUI bool `yaml:"use_thermostat_ui"`

	// UnmatchedModeTarget is the target shown for a non-directional mode:
	// "auto" (default) or "other".
	UnmatchedModeTarget string `yaml:"unmatched_mode_target"`

	// Feature toggles.
	NoCool             bool `yaml:"no_cool"`
	NoHeat             bool `yaml:"no_heat"`
	NoAuto             bool `yaml:"no_auto"`
	NoRotationSpeed    bool `yaml:"no_rotation_speed"`
	NoHumiditySensor   bool `yaml:"no_humidity_sensor"`
	HideIndoorFan      bool `yaml:"hide_indoor_fan"`
	NoFreshAir         bool `yaml:"no_fresh_air"`
	FreshAirAsSwitches bool `yaml:"fresh_air_as_switches"`

	// Fan speed handling.
	FanSpeedSteps   int              `yaml:"fan_speed_steps"`
	ForceNumericFan bool             `yaml:"force_numeric_fan"`
	SpeedQuantizer  fanspeed.Reverse `yaml:"speed_quantizer"`
	SpeedTable      fanspeed.Table   `yaml:"speed_table"`

	// Packed health flag location. Pointers distinguish "unset" from 0.
	HealthByte     *int   `yaml:"health_byte"`
	HealthBitIndex *int   `yaml:"health_bit_index"`
	HealthName     string `yaml:"health_name"`

	// Display names for auxiliary services.
	Name             string `yaml:"name"`
	IndoorFanName    string `yaml:"indoor_fan_name"`
	FreshAirName     string `yaml:"fresh_air_name"`
	VentSwitchName   string `yaml:"vent_switch_name"`
	FreshAirAutoName string `yaml:"fresh_air_auto_name"`
	FreshAirL1Name   string `yaml:"fresh_air_l1_name"`
	FreshAirL2Name   string `yaml:"fresh_air_l2_name"`
	FreshAirL3Name   string `yaml:"fresh_air_l3_name"`
}

// Option defaults.
const (
	DefaultMinTemperature      = 10
	DefaultMaxTemperature      = 35
	DefaultMinTemperatureSteps = 0.5
	DefaultHealthByte          = 0
	DefaultHealthBitIndex      = 5
	DefaultHealthName          = "HEALTH"
	DefaultVentSwitchName      = "Vent mode"
	DefaultFreshAirName        = "Fresh air"
	DefaultFreshAirAutoName    = "Fresh air auto"
	DefaultFreshAirL1Name      = "Fresh air 1"
	DefaultFreshAirL2Name      = "Fresh air 2"
	DefaultFreshAirL3Name      = "Fresh air 3"
	defaultIndoorFanSuffix     = " fan"
	defaultHumiditySuffix      = " humidity"
)
