package scheduler

import (
	"math"
	"time"
)

// Timing is the day-boundary view of a moment in time: the integer day index
// since collection creation, and the epoch second of the next rollover.
type Timing struct {
	Today     int
	DayCutoff int64
}

// timingFor computes Timing from wall time, the collection creation time and
// the configured rollover hour (0..23). A study "day" runs from one rollover
// to the next, so a review at 2am with a 4am rollover still belongs to the
// previous day.
func timingFor(now time.Time, created time.Time, rolloverHour int) Timing {
	nowStart := dayStart(now, rolloverHour)
	createdStart := dayStart(created, rolloverHour)

	// Rounding absorbs DST shifts: a 23- or 25-hour calendar day still
	// counts as one day.
	elapsed := nowStart.Sub(createdStart)
	today := int(math.Round(elapsed.Hours() / 24.0))
	if today < 0 {
		today = 0
	}

	cutoff := nowStart.AddDate(0, 0, 1)
	return Timing{Today: today, DayCutoff: cutoff.Unix()}
}

// dayStart returns the most recent rollover boundary at or before t.
func dayStart(t time.Time, rolloverHour int) time.Time {
	start := time.Date(t.Year(), t.Month(), t.Day(), rolloverHour, 0, 0, 0, t.Location())
	if start.After(t) {
		start = start.AddDate(0, 0, -1)
	}
	return start
}
