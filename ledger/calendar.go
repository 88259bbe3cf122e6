package ledger

import "time"

// =============================================================================
// CALENDAR ARITHMETIC
// =============================================================================
// time.AddDate normalizes overflow (Jan 31 + 1 month = Mar 3). Recurrence
// expansion and limit resets need calendar semantics instead: day-of-month
// preserved, clamped to the last valid day of the target month.

// AddCalendarMonths advances t by n calendar months, clamping the day to the
// last valid day of the resulting month (2025-01-31 +1 = 2025-02-28).
func AddCalendarMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
	first = first.AddDate(0, n, 0)
	last := daysInMonth(first.Year(), first.Month())
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// AddCalendarYears advances t by n years, clamping Feb 29 to Feb 28 on
// non-leap years.
func AddCalendarYears(t time.Time, n int) time.Time {
	return AddCalendarMonths(t, 12*n)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DayWindowUTC returns [start of day, start of next day) in UTC for the
// given instant. The sweep selects due instances inside this window.
func DayWindowUTC(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// DateOnly truncates t to midnight UTC. Planned dates and limit reset dates
// are stored at day granularity.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
