package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextPeriodDate(t *testing.T) {
	tests := []struct {
		name      string
		from      time.Time
		frequency RecurringFrequency
		anchorDay int
		want      time.Time
		wantErr   bool
	}{
		{
			name:      "weekly adds seven days",
			from:      date(2026, time.March, 28),
			frequency: RecurringFrequencyWeekly,
			anchorDay: 28,
			want:      date(2026, time.April, 4),
		},
		{
			name:      "biweekly crosses year boundary",
			from:      date(2026, time.December, 25),
			frequency: RecurringFrequencyBiweekly,
			anchorDay: 25,
			want:      date(2027, time.January, 8),
		},
		{
			name:      "monthly clamps january 31 to end of february",
			from:      date(2026, time.January, 31),
			frequency: RecurringFrequencyMonthly,
			anchorDay: 31,
			want:      date(2026, time.February, 28),
		},
		{
			name:      "monthly clamps to leap day",
			from:      date(2028, time.January, 31),
			frequency: RecurringFrequencyMonthly,
			anchorDay: 31,
			want:      date(2028, time.February, 29),
		},
		{
			name:      "monthly returns to anchor after short month",
			from:      date(2026, time.February, 28),
			frequency: RecurringFrequencyMonthly,
			anchorDay: 31,
			want:      date(2026, time.March, 31),
		},
		{
			name:      "monthly plain",
			from:      date(2026, time.March, 1),
			frequency: RecurringFrequencyMonthly,
			anchorDay: 1,
			want:      date(2026, time.April, 1),
		},
		{
			name:      "quarterly clamps november 30 to february 28",
			from:      date(2025, time.November, 30),
			frequency: RecurringFrequencyQuarterly,
			anchorDay: 30,
			want:      date(2026, time.February, 28),
		},
		{
			name:      "zero anchor uses day of from",
			from:      date(2026, time.May, 15),
			frequency: RecurringFrequencyMonthly,
			want:      date(2026, time.June, 15),
		},
		{
			name:      "unknown frequency",
			from:      date(2026, time.May, 15),
			frequency: RecurringFrequency("yearly"),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextPeriodDate(tt.from, tt.frequency, tt.anchorDay)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(date(2026, time.March, 1), time.Date(2026, time.March, 1, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, 31, DaysBetween(date(2026, time.March, 1), date(2026, time.April, 1)))
	assert.Equal(t, -1, DaysBetween(date(2026, time.March, 2), date(2026, time.March, 1)))
}

func TestParseFormatDate(t *testing.T) {
	d, err := ParseDate("2026-01-31")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-31", FormatDate(d))

	_, err = ParseDate("2026-02-30")
	assert.Error(t, err)
}

func TestAddClampedMonthsKeepsClock(t *testing.T) {
	from := time.Date(2026, time.January, 31, 14, 45, 30, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.February, 28, 14, 45, 30, 0, time.UTC), AddClampedMonths(from, 1, 0))
	assert.Equal(t, time.Date(2026, time.April, 30, 14, 45, 30, 0, time.UTC), AddClampedMonths(from, 3, 31))
	assert.Equal(t, time.Date(2025, time.November, 15, 14, 45, 30, 0, time.UTC), AddClampedMonths(from, -2, 15))
}
