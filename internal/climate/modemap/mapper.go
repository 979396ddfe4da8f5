package modemap

import (
	"fmt"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/dp"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/scale"
)

// DefaultHysteresis is the dead band (temperature units) around the target.
const DefaultHysteresis = 0.3

// Options configures a Mapper.
type Options struct {
	// Commands are the resolved device mode strings.
	Commands Commands

	// Divisor scales the raw threshold DP. The current temperature DP is
	// never scaled.
	Divisor scale.Divisor

	// Hysteresis is the dead band width. Zero selects DefaultHysteresis.
	Hysteresis float64

	// UnmatchedTarget is shown for a non-directional mode: TargetAuto
	// (default) or TargetOther.
	UnmatchedTarget TargetState

	// NoCool, NoHeat and NoAuto disable the matching target.
	NoCool bool
	NoHeat bool
	NoAuto bool
}

// Mapper translates device mode strings to client operating states.
type Mapper struct {
	cmds       Commands
	divisor    scale.Divisor
	hysteresis float64
	unmatched  TargetState
	noCool     bool
	noHeat     bool
	noAuto     bool
}

// New creates a Mapper.
//
// Returns:
//   - *Mapper: Ready mapper
//   - error: ErrInvalidPolicy if UnmatchedTarget is neither auto nor other
func New(opts Options) (*Mapper, error) {
	unmatched := opts.UnmatchedTarget
	switch unmatched {
	case "":
		unmatched = TargetAuto
	case TargetAuto, TargetOther:
	default:
		return nil, fmt.Errorf("%w: unmatched target %q (use auto or other)", ErrInvalidPolicy, unmatched)
	}

	hysteresis := opts.Hysteresis
	if hysteresis <= 0 {
		hysteresis = DefaultHysteresis
	}

	cmds := opts.Commands
	if cmds == (Commands{}) {
		cmds = DefaultCommands()
	}

	return &Mapper{
		cmds:       cmds,
		divisor:    opts.Divisor,
		hysteresis: hysteresis,
		unmatched:  unmatched,
		noCool:     opts.NoCool,
		noHeat:     opts.NoHeat,
		noAuto:     opts.NoAuto,
	}, nil
}

// Commands returns the device mode strings in use.
func (m *Mapper) Commands() Commands {
	return m.cmds
}

// Hysteresis returns the dead band width.
func (m *Mapper) Hysteresis() float64 {
	return m.hysteresis
}

// DeriveTarget maps power and mode to a target state (thermostat form).
//
// Inactive is always TargetOff. Cool, heat and auto commands map directly.
// Any other mode string maps to the unmatched policy so the client never
// sees an unrepresentable state.
func (m *Mapper) DeriveTarget(active bool, mode string) TargetState {
	if !active {
		return TargetOff
	}
	switch mode {
	case m.cmds.Cool:
		return TargetCool
	case m.cmds.Heat:
		return TargetHeat
	case m.cmds.Auto:
		return TargetAuto
	default:
		return m.unmatched
	}
}

// DeriveTargetMode maps a mode to a target state independent of power
// (heater-cooler form, where power is its own property). Disabled roles
// display as TargetOther.
func (m *Mapper) DeriveTargetMode(mode string) TargetState {
	switch mode {
	case m.cmds.Cool:
		return m.gate(TargetCool, m.noCool)
	case m.cmds.Heat:
		return m.gate(TargetHeat, m.noHeat)
	case m.cmds.Auto:
		return m.gate(TargetAuto, m.noAuto)
	default:
		return m.unmatched
	}
}

func (m *Mapper) gate(t TargetState, disabled bool) TargetState {
	if disabled {
		return TargetOther
	}
	return t
}

// DeriveCurrent infers the current operating direction.
//
// Inactive is CurrentOff. The cool and heat commands report Cooling and
// Heating directly. Every other mode (auto, wind, dry...) is resolved by
// Direction using the unscaled current temperature and the divisor-scaled
// threshold. Missing or non-numeric temperatures give CurrentIdle.
//
// Parameters:
//   - active: Power DP truthiness
//   - mode: Device mode string
//   - rawCurrent: Current temperature DP (unscaled)
//   - rawThreshold: Threshold DP (raw, scaled by the divisor)
func (m *Mapper) DeriveCurrent(active bool, mode string, rawCurrent, rawThreshold dp.Value) CurrentState {
	if !active {
		return CurrentOff
	}
	switch mode {
	case m.cmds.Cool:
		return CurrentCooling
	case m.cmds.Heat:
		return CurrentHeating
	}

	current, ok := dp.Number(rawCurrent)
	if !ok {
		return CurrentIdle
	}
	if _, ok := dp.Number(rawThreshold); !ok {
		return CurrentIdle
	}
	return Direction(current, m.divisor.ToHuman(rawThreshold), m.hysteresis)
}

// Direction applies the hysteresis heuristic: above target+band is Cooling,
// below target-band is Heating, inside the band is Idle.
func Direction(current, target, band float64) CurrentState {
	switch {
	case current > target+band:
		return CurrentCooling
	case current < target-band:
		return CurrentHeating
	default:
		return CurrentIdle
	}
}

// Command returns the mode string to write for a target state.
//
// Returns:
//   - string: Device mode command
//   - bool: false for off/other and for targets disabled by configuration
func (m *Mapper) Command(t TargetState) (string, bool) {
	switch t {
	case TargetCool:
		return m.cmds.Cool, !m.noCool
	case TargetHeat:
		return m.cmds.Heat, !m.noHeat
	case TargetAuto:
		return m.cmds.Auto, !m.noAuto
	}
	return "", false
}

// Enabled reports whether a target state may be selected by the client.
func (m *Mapper) Enabled(t TargetState) bool {
	_, ok := m.Command(t)
	return ok
}

// IsVent reports whether mode is the fan-only (wind) command.
func (m *Mapper) IsVent(mode string) bool {
	return mode == m.cmds.Wind
}
