package accessory

// Property names a client-facing value derived from the DP snapshot.
type Property string

// Client properties.
const (
	PropActive              Property = "active"
	PropTargetState         Property = "target_state"
	PropCurrentState        Property = "current_state"
	PropTargetTemperature   Property = "target_temperature"
	PropCurrentTemperature  Property = "current_temperature"
	PropDisplayUnits        Property = "display_units"
	PropRotationSpeed       Property = "rotation_speed"
	PropHumidity            Property = "humidity"
	PropFreshAirActive      Property = "fresh_air_active"
	PropFreshAirTargetState Property = "fresh_air_target_state"
	PropFreshAirSpeed       Property = "fresh_air_speed"
	PropFreshAirAuto        Property = "fresh_air_auto"
	PropFreshAirLevel1      Property = "fresh_air_level_1"
	PropFreshAirLevel2      Property = "fresh_air_level_2"
	PropFreshAirLevel3      Property = "fresh_air_level_3"
	PropVentMode            Property = "vent_mode"
	PropHealth              Property = "health"
)

// FanTargetState is the fresh-air fan's auto/manual selector.
type FanTargetState string

// Fresh-air target states.
const (
	FanTargetManual FanTargetState = "manual"
	FanTargetAuto   FanTargetState = "auto"
)

// Fresh-air DP values beyond the named speed levels.
const (
	freshAirOff  = "off"
	freshAirAuto = "auto"
)

// definition describes how one property is wired to the DP map.
type definition struct {
	// deps are the roles whose change can alter the derived value.
	deps []Role

	// reads are the roles whose current value the encoder needs (read-modify-
	// write). Empty for blind writes.
	reads []Role

	// writable is false for observed-only properties.
	writable bool
}

// definitions is the complete dependency table. Every role a derivation
// reads is listed in deps.
var definitions = map[Property]definition{
	PropActive:              {deps: []Role{RoleActive}, writable: true},
	PropTargetState:         {deps: []Role{RoleActive, RoleMode}, writable: true},
	PropCurrentState:        {deps: []Role{RoleActive, RoleMode, RoleThreshold, RoleCurrentTemperature}},
	PropTargetTemperature:   {deps: []Role{RoleThreshold}, writable: true},
	PropCurrentTemperature:  {deps: []Role{RoleCurrentTemperature}},
	PropDisplayUnits:        {deps: []Role{RoleTempUnits}, writable: true},
	PropRotationSpeed:       {deps: []Role{RoleActive, RoleRotationSpeed}, writable: true},
	PropHumidity:            {deps: []Role{RoleHumidity}},
	PropFreshAirActive:      {deps: []Role{RoleFreshAir}, writable: true},
	PropFreshAirTargetState: {deps: []Role{RoleFreshAir}, reads: []Role{RoleFreshAir}, writable: true},
	PropFreshAirSpeed:       {deps: []Role{RoleFreshAir}, reads: []Role{RoleFreshAir}, writable: true},
	PropFreshAirAuto:        {deps: []Role{RoleFreshAir}, writable: true},
	PropFreshAirLevel1:      {deps: []Role{RoleFreshAir}, writable: true},
	PropFreshAirLevel2:      {deps: []Role{RoleFreshAir}, writable: true},
	PropFreshAirLevel3:      {deps: []Role{RoleFreshAir}, writable: true},
	PropVentMode:            {deps: []Role{RoleMode}, writable: true},
	PropHealth:              {deps: []Role{RoleBoolCode}, reads: []Role{RoleBoolCode}, writable: true},
}

// propertyOrder is the canonical publication order.
var propertyOrder = []Property{
	PropActive,
	PropTargetState,
	PropCurrentState,
	PropTargetTemperature,
	PropCurrentTemperature,
	PropDisplayUnits,
	PropRotationSpeed,
	PropHumidity,
	PropFreshAirActive,
	PropFreshAirTargetState,
	PropFreshAirSpeed,
	PropFreshAirAuto,
	PropFreshAirLevel1,
	PropFreshAirLevel2,
	PropFreshAirLevel3,
	PropVentMode,
	PropHealth,
}

// freshAirSwitchValues maps each switch property to the DP value it selects.
var freshAirSwitchValues = map[Property]string{
	PropFreshAirAuto:   freshAirAuto,
	PropFreshAirLevel1: "low",
	PropFreshAirLevel2: "mid",
	PropFreshAirLevel3: "strong",
}

// AllProperties returns every known property in canonical order.
func AllProperties() []Property {
	out := make([]Property, len(propertyOrder))
	copy(out, propertyOrder)
	return out
}

// ParseProperty validates a property name.
func ParseProperty(name string) (Property, bool) {
	p := Property(name)
	_, ok := definitions[p]
	return p, ok
}
