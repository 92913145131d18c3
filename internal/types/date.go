package types

import (
	"fmt"
	"time"
)

// DateLayout is the storage and wire format of calendar dates (due, issue, generation dates)
const DateLayout = "2006-01-02"

// ToDate truncates t to midnight UTC of its UTC calendar date
func ToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate formats t as a YYYY-MM-DD calendar date
func FormatDate(t time.Time) string {
	return ToDate(t).Format(DateLayout)
}

// DaysBetween returns the number of whole calendar days from "from" to "to".
// It is negative when "to" is before "from".
func DaysBetween(from, to time.Time) int {
	return int(ToDate(to).Sub(ToDate(from)).Hours() / 24)
}

// NextPeriodDate returns the generation date one period after "from".
// Monthly and quarterly periods land on anchorDay, clamped to the last day of the target month,
// so a series anchored on the 31st runs Jan 31, Feb 28, Mar 31.
func NextPeriodDate(from time.Time, frequency RecurringFrequency, anchorDay int) (time.Time, error) {
	from = ToDate(from)
	switch frequency {
	case RecurringFrequencyWeekly:
		return from.AddDate(0, 0, 7), nil
	case RecurringFrequencyBiweekly:
		return from.AddDate(0, 0, 14), nil
	case RecurringFrequencyMonthly:
		return AddClampedMonths(from, 1, anchorDay), nil
	case RecurringFrequencyQuarterly:
		return AddClampedMonths(from, 3, anchorDay), nil
	default:
		return from, fmt.Errorf("invalid recurring frequency: %s", frequency)
	}
}

// AddClampedMonths moves t forward by months and places it on anchorDay of the resulting month.
// If the month is shorter than anchorDay the last valid day is used. A non-positive anchorDay
// means the day of t.
func AddClampedMonths(t time.Time, months int, anchorDay int) time.Time {
	y, m, d := t.Date()
	h, mi, sec := t.Clock()

	if anchorDay <= 0 {
		anchorDay = d
	}

	newY := y
	newM := time.Month(int(m) + months)

	// adding 2 months to November lands on January next year
	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	// day 0 of the following month is the last day of newM
	lastDay := time.Date(newY, newM+1, 0, 0, 0, 0, 0, t.Location()).Day()

	newD := anchorDay
	if newD > lastDay {
		newD = lastDay
	}

	return time.Date(newY, newM, newD, h, mi, sec, t.Nanosecond(), t.Location())
}
