package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Polvory/Easy-Plan-back/ledger"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddCalendarMonths_ClampsToMonthEnd(t *testing.T) {
	// GIVEN: Jan 31
	// WHEN: Advancing one and two calendar months
	// THEN: Feb is clamped to its last day, Mar restores day 31

	start := date(2025, time.January, 31)

	assert.Equal(t, date(2025, time.February, 28), ledger.AddCalendarMonths(start, 1))
	assert.Equal(t, date(2025, time.March, 31), ledger.AddCalendarMonths(start, 2))
}

func TestAddCalendarMonths_LeapFebruary(t *testing.T) {
	start := date(2024, time.January, 31)
	assert.Equal(t, date(2024, time.February, 29), ledger.AddCalendarMonths(start, 1))
}

func TestAddCalendarMonths_YearRollover(t *testing.T) {
	start := date(2025, time.November, 15)
	assert.Equal(t, date(2026, time.January, 15), ledger.AddCalendarMonths(start, 2))
}

func TestAddCalendarYears_LeapDayClamped(t *testing.T) {
	// Feb 29 on a non-leap year falls back to Feb 28.
	start := date(2024, time.February, 29)
	assert.Equal(t, date(2025, time.February, 28), ledger.AddCalendarYears(start, 1))
}

func TestDayWindowUTC(t *testing.T) {
	now := time.Date(2025, time.June, 10, 15, 42, 7, 0, time.UTC)
	from, to := ledger.DayWindowUTC(now)

	assert.Equal(t, date(2025, time.June, 10), from)
	assert.Equal(t, date(2025, time.June, 11), to)
}
