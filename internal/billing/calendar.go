// Package billing holds the billing-cycle engine: calendar arithmetic, the
// cycle calculator, the overdue/due-soon classifier and drift repair. Every
// function here is pure; persistence and clocks live in the service layer.
package billing

import (
	"time"

	"github.com/segyhp/dues-engine/internal/domain"
	customError "github.com/segyhp/dues-engine/pkg/errors"
)

// DateOf truncates t to its calendar date, expressed as midnight UTC.
// The wall-clock date in t's own location is kept.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LastDayOfMonth returns the number of days in the given month.
func LastDayOfMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampedDate builds a date from year, month and day, carrying month
// overflow into the year and clamping day to the month's last day.
func ClampedDate(year int, month time.Month, day int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := LastDayOfMonth(first.Year(), first.Month())
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// CycleMonths returns the cycle length in months for month-based
// frequencies and 0 for daily.
func CycleMonths(f domain.Frequency) (int, error) {
	switch f {
	case domain.FrequencyDaily:
		return 0, nil
	case domain.FrequencyMonthly:
		return 1, nil
	case domain.FrequencyQuarterly:
		return 3, nil
	case domain.FrequencySemiAnnual:
		return 6, nil
	case domain.FrequencyYearly:
		return 12, nil
	default:
		return 0, customError.WrapInvalidFrequency(string(f))
	}
}

// AddCycle advances date by one billing cycle of frequency f. Month based
// cycles keep the day-of-month and clamp it to the end of shorter months,
// so 2024-01-31 + monthly is 2024-02-29 and 2023-01-31 is 2023-02-28.
func AddCycle(date time.Time, f domain.Frequency) (time.Time, error) {
	months, err := CycleMonths(f)
	if err != nil {
		return time.Time{}, err
	}

	date = DateOf(date)
	if months == 0 {
		return date.AddDate(0, 0, 1), nil
	}

	return ClampedDate(date.Year(), date.Month()+time.Month(months), date.Day()), nil
}
