package fanspeed

// Step count bounds for numeric step mode.
const (
	// DefaultSteps maps percent to step 1:1.
	DefaultSteps = 100

	minSteps = 1
	maxSteps = 99
)

// StepTable maps a 0-100 percent to a device integer step and back.
// Built once by NewStepTable and read-only afterwards.
type StepTable struct {
	count int
	steps [101]int
	stops map[int]int
}

// NewStepTable builds the table for count device steps.
//
// A count outside 1-99 selects DefaultSteps. Percent 0 maps to step 0 and
// percent p in 1-100 maps to floor(count*(p-1)/100)+1. The inverse keeps the
// highest percent that produced each step.
func NewStepTable(count int) *StepTable {
	if count < minSteps || count > maxSteps {
		count = DefaultSteps
	}

	t := &StepTable{
		count: count,
		stops: map[int]int{0: 0},
	}
	for p := 1; p <= 100; p++ {
		step := count*(p-1)/100 + 1
		t.steps[p] = step
		t.stops[step] = p
	}
	return t
}

// Count returns the effective number of device steps.
func (t *StepTable) Count() int {
	return t.count
}

// Step returns the device step for pct, clamping pct to 0-100.
func (t *StepTable) Step(pct int) int {
	return t.steps[clampPercent(pct)]
}

// Percent returns the percent that maps to step.
func (t *StepTable) Percent(step int) (int, bool) {
	p, ok := t.stops[step]
	return p, ok
}

func clampPercent(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
