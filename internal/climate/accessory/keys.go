package accessory

import (
	"fmt"
	"strings"
)

// Role names what a DP key means to the translation layer.
type Role string

// DP roles.
const (
	RoleActive             Role = "active"
	RoleThreshold          Role = "threshold"
	RoleCurrentTemperature Role = "current_temperature"
	RoleMode               Role = "mode"
	RoleRotationSpeed      Role = "rotation_speed"
	RoleTempUnits          Role = "temp_units"
	RoleFreshAir           Role = "fresh_air"
	RoleHumidity           Role = "humidity"
	RoleBoolCode           Role = "bool_code"
)

// roleOrder fixes iteration order for deterministic key lists.
var roleOrder = []Role{
	RoleActive,
	RoleThreshold,
	RoleCurrentTemperature,
	RoleMode,
	RoleRotationSpeed,
	RoleTempUnits,
	RoleFreshAir,
	RoleHumidity,
	RoleBoolCode,
}

// DefaultKeys returns the stock Tuya AC DP layout.
func DefaultKeys() Keys {
	return Keys{
		RoleActive:             "1",
		RoleThreshold:          "2",
		RoleCurrentTemperature: "3",
		RoleMode:               "4",
		RoleRotationSpeed:      "5",
		RoleTempUnits:          "19",
		RoleFreshAir:           "102",
		RoleHumidity:           "18",
		RoleBoolCode:           "123",
	}
}

// Keys maps every role to its DP key.
type Keys map[Role]string

// Key returns the DP key for r.
func (k Keys) Key(r Role) string {
	return k[r]
}

// All returns the DP keys of every role, in role order.
func (k Keys) All() []string {
	out := make([]string, 0, len(roleOrder))
	for _, r := range roleOrder {
		out = append(out, k[r])
	}
	return out
}

// For returns the DP keys for the given roles.
func (k Keys) For(roles ...Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, k[r])
	}
	return out
}

// resolveKeys overlays trimmed overrides onto DefaultKeys and rejects two
// roles sharing one key.
func resolveKeys(o Options) (Keys, []string) {
	keys := DefaultKeys()
	overrides := map[Role]string{
		RoleActive:             o.DPActive,
		RoleThreshold:          o.DPThreshold,
		RoleCurrentTemperature: o.DPCurrentTemperature,
		RoleMode:               o.DPMode,
		RoleRotationSpeed:      o.DPRotationSpeed,
		RoleTempUnits:          o.DPTempUnits,
		RoleFreshAir:           o.DPFreshAir,
		RoleHumidity:           o.DPHumidity,
		RoleBoolCode:           o.DPBoolCode,
	}
	for role, v := range overrides {
		if v = strings.TrimSpace(v); v != "" {
			keys[role] = v
		}
	}

	var errs []string
	owner := make(map[string]Role, len(keys))
	for _, r := range roleOrder {
		key := keys[r]
		if prev, dup := owner[key]; dup {
			errs = append(errs, fmt.Sprintf("dp key %q used by both %s and %s", key, prev, r))
			continue
		}
		owner[key] = r
	}
	return keys, errs
}
