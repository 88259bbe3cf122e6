package recurrence

import (
	"fmt"
	"time"

	"github.com/Polvory/Easy-Plan-back/ledger"
)

// =============================================================================
// RULE EXPANSION
// =============================================================================
// A recurrence rule ("every month from 2025-01-31, 3 times") is expanded
// into concrete dates once, at creation time. Month and year steps use
// calendar arithmetic: the day of month is preserved and clamped to the last
// valid day, so Jan 31 -> Feb 28 -> Mar 31.

// ExpandDates returns count planned dates: occurrence i is start advanced by
// i interval steps, i in [0, count).
func ExpandDates(start time.Time, interval ledger.Interval, count int) ([]time.Time, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: count must be at least 1, got %d", ledger.ErrInvalidArgument, count)
	}
	start = ledger.DateOnly(start)

	dates := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		var next time.Time
		switch interval {
		case ledger.IntervalDay:
			next = start.AddDate(0, 0, i)
		case ledger.IntervalWeek:
			next = start.AddDate(0, 0, 7*i)
		case ledger.IntervalMonth:
			next = ledger.AddCalendarMonths(start, i)
		case ledger.IntervalYear:
			next = ledger.AddCalendarYears(start, i)
		default:
			return nil, fmt.Errorf("%w: interval %q", ledger.ErrInvalidArgument, interval)
		}
		dates = append(dates, next)
	}
	return dates, nil
}
