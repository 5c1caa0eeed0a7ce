package domain

import (
	"errors"
	"time"
)

var ErrInvalidFrequency = errors.New("invalid_frequency")

// NextDueDate computes the due date following lastDueDate for the given
// cadence, pinned to anchorDay with calendar clamping: an anchor of 31
// lands on the last day of shorter months and never rolls into the next
// month. The result is normalized to midnight UTC so due-date equality
// checks are exact.
func NextDueDate(lastDueDate time.Time, frequency Frequency, anchorDay int) (time.Time, error) {
	months, years, err := frequencyOffset(frequency)
	if err != nil {
		return time.Time{}, err
	}

	if anchorDay < 1 {
		anchorDay = 1
	}
	if anchorDay > 31 {
		anchorDay = 31
	}

	last := lastDueDate.UTC()
	year, month, _ := last.Date()

	// Walk to the first of the target month before applying the anchor,
	// so that e.g. Jan 31 + one month lands in February, not March.
	target := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(years, months, 0)

	day := anchorDay
	if lastDay := daysInMonth(target.Year(), target.Month()); day > lastDay {
		day = lastDay
	}

	return time.Date(target.Year(), target.Month(), day, 0, 0, 0, 0, time.UTC), nil
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func frequencyOffset(frequency Frequency) (months, years int, err error) {
	switch frequency {
	case FrequencyMonthly:
		return 1, 0, nil
	case FrequencyQuarterly:
		return 3, 0, nil
	case FrequencySemiannual:
		return 6, 0, nil
	case FrequencyYearly:
		return 0, 1, nil
	default:
		return 0, 0, ErrInvalidFrequency
	}
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
