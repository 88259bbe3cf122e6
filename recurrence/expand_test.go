package recurrence_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Polvory/Easy-Plan-back/ledger"
	"github.com/Polvory/Easy-Plan-back/recurrence"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpandDates_Daily(t *testing.T) {
	dates, err := recurrence.ExpandDates(date(2025, time.March, 30), ledger.IntervalDay, 3)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		date(2025, time.March, 30),
		date(2025, time.March, 31),
		date(2025, time.April, 1),
	}, dates)
}

func TestExpandDates_Weekly(t *testing.T) {
	dates, err := recurrence.ExpandDates(date(2025, time.January, 6), ledger.IntervalWeek, 3)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		date(2025, time.January, 6),
		date(2025, time.January, 13),
		date(2025, time.January, 20),
	}, dates)
}

func TestExpandDates_Monthly_ClampsShortMonths(t *testing.T) {
	// GIVEN: A rule starting on Jan 31
	// THEN: February clamps to its last day; March restores the 31st

	dates, err := recurrence.ExpandDates(date(2025, time.January, 31), ledger.IntervalMonth, 3)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		date(2025, time.January, 31),
		date(2025, time.February, 28),
		date(2025, time.March, 31),
	}, dates)
}

func TestExpandDates_Monthly_ClampDoesNotStick(t *testing.T) {
	// Each occurrence derives from the ORIGINAL start, so a clamped February
	// never drags later months down to the 28th.
	dates, err := recurrence.ExpandDates(date(2025, time.January, 31), ledger.IntervalMonth, 5)
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.April, 30), dates[3])
	assert.Equal(t, date(2025, time.May, 31), dates[4])
}

func TestExpandDates_Yearly(t *testing.T) {
	dates, err := recurrence.ExpandDates(date(2024, time.February, 29), ledger.IntervalYear, 2)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		date(2024, time.February, 29),
		date(2025, time.February, 28),
	}, dates)
}

func TestExpandDates_StripsTimeOfDay(t *testing.T) {
	start := time.Date(2025, time.June, 1, 14, 30, 0, 0, time.UTC)
	dates, err := recurrence.ExpandDates(start, ledger.IntervalDay, 1)
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.June, 1), dates[0])
}

func TestExpandDates_InvalidInput(t *testing.T) {
	_, err := recurrence.ExpandDates(date(2025, time.January, 1), ledger.IntervalMonth, 0)
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	_, err = recurrence.ExpandDates(date(2025, time.January, 1), ledger.Interval("fortnight"), 2)
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
}
