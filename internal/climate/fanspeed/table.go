package fanspeed

import "fmt"

// Named speed levels used by the default table and by the fresh-air channel.
const (
	LevelAuto    = "auto"
	LevelMute    = "mute"
	LevelLow     = "low"
	LevelMidLow  = "mid_low"
	LevelMid     = "mid"
	LevelMidHigh = "mid_high"
	LevelHigh    = "high"
	LevelStrong  = "strong"
)

// Tri-level bucket boundaries (inclusive upper bounds).
const (
	lowCeiling = 33
	midCeiling = 66
)

// Level pairs a device speed name with its representative percent.
type Level struct {
	Name    string `yaml:"name" json:"name"`
	Percent int    `yaml:"percent" json:"percent"`
}

// Table is an ordered list of named levels. Order matters: nearest-neighbour
// ties resolve to the entry declared first.
type Table []Level

// DefaultTable returns the canonical named-speed table.
//
// low, mid and high sit on the 33/66/100 grid so a percent written by the
// tri-level quantizer reads back as the same bucket.
func DefaultTable() Table {
	return Table{
		{LevelAuto, 0},
		{LevelMute, 10},
		{LevelLow, 33},
		{LevelMidLow, 40},
		{LevelMid, 66},
		{LevelMidHigh, 70},
		{LevelHigh, 100},
		{LevelStrong, 100},
	}
}

// Percent returns the representative percent for a level name.
func (t Table) Percent(name string) (int, bool) {
	for _, l := range t {
		if l.Name == name {
			return l.Percent, true
		}
	}
	return 0, false
}

// Validate checks the table for empty names, duplicates and out-of-range
// percents.
func (t Table) Validate() error {
	seen := make(map[string]bool, len(t))
	for i, l := range t {
		if l.Name == "" {
			return fmt.Errorf("%w: entry %d has no name", ErrInvalidTable, i)
		}
		if seen[l.Name] {
			return fmt.Errorf("%w: duplicate level %q", ErrInvalidTable, l.Name)
		}
		seen[l.Name] = true
		if l.Percent < 0 || l.Percent > 100 {
			return fmt.Errorf("%w: level %q percent %d outside 0-100", ErrInvalidTable, l.Name, l.Percent)
		}
	}
	return nil
}

// Nearest returns the level whose percent is closest to pct.
//
// Levels with percent 0 (such as "auto") are not speeds and never match.
// Ties go to the first-declared level. The empty string is returned when the
// table holds no speed levels.
func (t Table) Nearest(pct int) string {
	best := ""
	bestDist := -1
	for _, l := range t {
		if l.Percent == 0 {
			continue
		}
		dist := l.Percent - pct
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = l.Name, dist
		}
	}
	return best
}

// TriLevel buckets a percent into low, mid or strong.
func TriLevel(pct int) string {
	switch {
	case pct <= lowCeiling:
		return LevelLow
	case pct <= midCeiling:
		return LevelMid
	default:
		return LevelStrong
	}
}
