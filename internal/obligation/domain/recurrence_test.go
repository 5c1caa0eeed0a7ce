package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextDueDateMonthlyAnchor31WalksLeapYear(t *testing.T) {
	// Anchor 31 starting from Jan 31: February clamps to its last day,
	// March returns to 31, April clamps to 30.
	last := date(2024, time.January, 31)

	next, err := NextDueDate(last, FrequencyMonthly, 31)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.February, 29), next)

	next, err = NextDueDate(next, FrequencyMonthly, 31)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 31), next)

	next, err = NextDueDate(next, FrequencyMonthly, 31)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.April, 30), next)
}

func TestNextDueDateMonthlyAnchor31WalksNonLeapYear(t *testing.T) {
	last := date(2023, time.January, 31)

	next, err := NextDueDate(last, FrequencyMonthly, 31)
	require.NoError(t, err)
	assert.Equal(t, date(2023, time.February, 28), next)

	next, err = NextDueDate(next, FrequencyMonthly, 31)
	require.NoError(t, err)
	assert.Equal(t, date(2023, time.March, 31), next)
}

func TestNextDueDateNeverRollsIntoFollowingMonth(t *testing.T) {
	// A clamped February date must advance into March, not April: the
	// offset applies to the month, not to the (clamped) day.
	next, err := NextDueDate(date(2023, time.February, 28), FrequencyMonthly, 30)
	require.NoError(t, err)
	assert.Equal(t, date(2023, time.March, 30), next)
}

func TestNextDueDateFrequencies(t *testing.T) {
	tests := []struct {
		name      string
		last      time.Time
		frequency Frequency
		anchor    int
		want      time.Time
	}{
		{"monthly", date(2024, time.January, 15), FrequencyMonthly, 15, date(2024, time.February, 15)},
		{"quarterly", date(2024, time.January, 15), FrequencyQuarterly, 15, date(2024, time.April, 15)},
		{"quarterly clamps", date(2024, time.November, 30), FrequencyQuarterly, 30, date(2025, time.February, 28)},
		{"semiannual", date(2024, time.March, 10), FrequencySemiannual, 10, date(2024, time.September, 10)},
		{"yearly", date(2024, time.June, 1), FrequencyYearly, 1, date(2025, time.June, 1)},
		{"yearly leap day clamps", date(2024, time.February, 29), FrequencyYearly, 29, date(2025, time.February, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextDueDate(tt.last, tt.frequency, tt.anchor)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextDueDateNormalizesToStartOfDay(t *testing.T) {
	last := time.Date(2024, time.January, 15, 17, 45, 12, 999, time.UTC)
	next, err := NextDueDate(last, FrequencyMonthly, 15)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.February, 15), next)
}

func TestNextDueDateClampsAnchorIntoRange(t *testing.T) {
	next, err := NextDueDate(date(2024, time.January, 15), FrequencyMonthly, 99)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.February, 29), next)

	next, err = NextDueDate(date(2024, time.January, 15), FrequencyMonthly, -3)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.February, 1), next)
}

func TestNextDueDateUnknownFrequency(t *testing.T) {
	_, err := NextDueDate(date(2024, time.January, 15), Frequency("WEEKLY"), 15)
	assert.ErrorIs(t, err, ErrInvalidFrequency)
}
