package fanspeed

import (
	"strconv"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/dp"
)

// Reverse selects how a percent is turned back into a level name.
type Reverse string

// Reverse strategies.
const (
	// ReverseTriLevel buckets into low/mid/strong.
	ReverseTriLevel Reverse = "tri_level"

	// ReverseNearest searches the whole table.
	ReverseNearest Reverse = "nearest"
)

// Options configures a Quantizer.
type Options struct {
	// Table is the named-level table. Nil means DefaultTable.
	Table Table

	// Reverse picks the percent → name strategy. Empty means ReverseTriLevel.
	Reverse Reverse

	// Numeric makes the device speak integer steps instead of names.
	Numeric bool

	// Steps is the device step count for numeric mode (1-99, else 100).
	Steps int

	// StepsAsString sends numeric steps as decimal strings. Devices that
	// declare an explicit step count expect this.
	StepsAsString bool
}

// Quantizer maps device speed values to client percents and back.
type Quantizer struct {
	table         Table
	reverse       Reverse
	numeric       bool
	stepsAsString bool
	steps         *StepTable
}

// New builds a Quantizer. The step table is computed here once.
func New(opts Options) (*Quantizer, error) {
	table := opts.Table
	if table == nil {
		table = DefaultTable()
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}

	reverse := opts.Reverse
	switch reverse {
	case "":
		reverse = ReverseTriLevel
	case ReverseTriLevel, ReverseNearest:
	default:
		return nil, errInvalidReverse(reverse)
	}

	return &Quantizer{
		table:         table,
		reverse:       reverse,
		numeric:       opts.Numeric,
		stepsAsString: opts.StepsAsString,
		steps:         NewStepTable(opts.Steps),
	}, nil
}

// Table returns the level table in use.
func (q *Quantizer) Table() Table {
	return q.table
}

// Steps returns the numeric step table.
func (q *Quantizer) Steps() *StepTable {
	return q.steps
}

// ToPercent converts a device speed value to a percent.
//
// A known level name returns its table percent. Otherwise the value is read as
// an integer step and looked up in the step table. Anything else is 0.
func (q *Quantizer) ToPercent(v dp.Value) int {
	if s, ok := v.(string); ok {
		if pct, found := q.table.Percent(s); found {
			return pct
		}
	}
	if n, ok := dp.Int(v); ok {
		if pct, found := q.steps.Percent(n); found {
			return pct
		}
	}
	return 0
}

// FromPercent converts a client percent to the device speed value.
//
// Returns:
//   - dp.Value: Level name, integer step or step string
//   - bool: false when pct is 0 or below, meaning "switch the device off"
func (q *Quantizer) FromPercent(pct int) (dp.Value, bool) {
	if pct <= 0 {
		return nil, false
	}
	pct = clampPercent(pct)

	if q.numeric {
		step := q.steps.Step(pct)
		if q.stepsAsString {
			return strconv.Itoa(step), true
		}
		return step, true
	}
	return q.Name(pct), true
}

// Name returns the level name for pct using the configured strategy.
func (q *Quantizer) Name(pct int) string {
	if q.reverse == ReverseNearest {
		if name := q.table.Nearest(pct); name != "" {
			return name
		}
	}
	return TriLevel(pct)
}
