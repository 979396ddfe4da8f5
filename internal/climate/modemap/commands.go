package modemap

import (
	"fmt"
	"regexp"
	"strings"
)

// Default device mode commands.
const (
	DefaultCool = "cold"
	DefaultHeat = "hot"
	DefaultAuto = "auto"
	DefaultWind = "wind"
)

// Validation patterns per role. A command must start with the role's letter.
var (
	coolPattern = regexp.MustCompile(`(?i)^c[a-z]+$`)
	heatPattern = regexp.MustCompile(`(?i)^h[a-z]+$`)
	autoPattern = regexp.MustCompile(`(?i)^a[a-z]+$`)
	windPattern = regexp.MustCompile(`(?i)^w[a-z]+$`)
)

// Commands holds the literal mode strings the device uses per role.
type Commands struct {
	Cool string
	Heat string
	Auto string
	Wind string
}

// DefaultCommands returns the stock Tuya AC mode strings.
func DefaultCommands() Commands {
	return Commands{
		Cool: DefaultCool,
		Heat: DefaultHeat,
		Auto: DefaultAuto,
		Wind: DefaultWind,
	}
}

// ResolveCommands validates user overrides against the per-role patterns.
//
// Empty overrides select the default. An override that fails validation
// either aborts (strict) or is replaced by the default (lenient); every
// failure is reported in one error.
//
// Parameters:
//   - overrides: User-supplied commands; empty fields mean "use default"
//   - strict: true to fail on an invalid override
//
// Returns:
//   - Commands: Effective commands
//   - []string: Roles that fell back to the default (lenient mode only)
//   - error: ErrInvalidCommand in strict mode when any override is invalid
func ResolveCommands(overrides Commands, strict bool) (Commands, []string, error) {
	defaults := DefaultCommands()
	out := defaults

	roles := []struct {
		name     string
		value    string
		pattern  *regexp.Regexp
		fallback string
		dst      *string
	}{
		{"cool", overrides.Cool, coolPattern, defaults.Cool, &out.Cool},
		{"heat", overrides.Heat, heatPattern, defaults.Heat, &out.Heat},
		{"auto", overrides.Auto, autoPattern, defaults.Auto, &out.Auto},
		{"wind", overrides.Wind, windPattern, defaults.Wind, &out.Wind},
	}

	var invalid, fellBack []string
	for _, r := range roles {
		v := strings.TrimSpace(r.value)
		if v == "" {
			continue
		}
		if !r.pattern.MatchString(v) {
			invalid = append(invalid, fmt.Sprintf("%s command %q must match %s", r.name, v, r.pattern))
			fellBack = append(fellBack, r.name)
			*r.dst = r.fallback
			continue
		}
		*r.dst = v
	}

	if strict && len(invalid) > 0 {
		return Commands{}, nil, fmt.Errorf("%w: %s", ErrInvalidCommand, strings.Join(invalid, "; "))
	}
	return out, fellBack, nil
}
