package cron

import (
	"fmt"
	"time"
)

// searchLimit bounds the minute scan at a year so pathological expressions
// (e.g. "0 0 30 2 *") terminate.
const searchLimit = 366 * 24 * 60

// fallbackDelay is applied when no matching instant exists within the search
// window.
const fallbackDelay = 24 * time.Hour

// Next returns the first UTC instant strictly after "after" whose civil time
// in the given IANA timezone matches the expression, truncated to the minute.
func Next(expr Expression, timezone string, after time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	// Scanning absolute instants minute-by-minute and projecting each into
	// the target location keeps DST transitions correct: skipped civil times
	// are never produced and repeated ones resolve to their first offset.
	candidate := after.Truncate(time.Minute).Add(time.Minute)
	for i := 0; i < searchLimit; i++ {
		local := candidate.In(loc)
		if matches(expr, local) {
			return candidate.UTC(), nil
		}
		candidate = candidate.Add(time.Minute)
	}

	return after.Truncate(time.Minute).Add(fallbackDelay).UTC(), nil
}

func matches(expr Expression, t time.Time) bool {
	return expr.Minute.Matches(t.Minute()) &&
		expr.Hour.Matches(t.Hour()) &&
		expr.DayOfMonth.Matches(t.Day()) &&
		expr.Month.Matches(int(t.Month())) &&
		expr.DayOfWeek.Matches(int(t.Weekday()))
}
