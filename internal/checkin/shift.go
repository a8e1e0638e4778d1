package checkin

import "time"

// Shift is one of the two time-of-day partitions bounding one check-in per
// person per floor per day.
type Shift string

const (
	ShiftMorning   Shift = "MORNING"
	ShiftAfternoon Shift = "AFTERNOON"
)

// ShiftWindow holds the configured shift boundaries as minutes since
// midnight. Both windows are half-open: [start, end).
type ShiftWindow struct {
	MorningStart   int
	MorningEnd     int
	AfternoonStart int
	AfternoonEnd   int
}

// ResolveShift labels a timestamp with its shift. A time outside both
// configured windows falls to AFTERNOON. When no window is configured,
// fallbackCutoff (minutes since midnight) splits the day instead.
func ResolveShift(now time.Time, w *ShiftWindow, fallbackCutoff int) Shift {
	t := now.Hour()*60 + now.Minute()

	if w == nil {
		if t < fallbackCutoff {
			return ShiftMorning
		}
		return ShiftAfternoon
	}

	if w.MorningStart <= t && t < w.MorningEnd {
		return ShiftMorning
	}
	if w.AfternoonStart <= t && t < w.AfternoonEnd {
		return ShiftAfternoon
	}
	return ShiftAfternoon
}
