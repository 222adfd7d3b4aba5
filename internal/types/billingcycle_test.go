package types

import (
	"testing"
	"time"

	ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextBillingDate_MonthEndClamping(t *testing.T) {
	tests := []struct {
		name     string
		from     time.Time
		cycle    BillingCycle
		interval int
		expected time.Time
	}{
		{
			name:     "Jan31_Monthly_ClampsToFeb28",
			from:     date(2025, time.January, 31),
			cycle:    BillingCycleMonthly,
			interval: 1,
			expected: date(2025, time.February, 28),
		},
		{
			name:     "Jan31_Monthly_LeapYear_ClampsToFeb29",
			from:     date(2024, time.January, 31),
			cycle:    BillingCycleMonthly,
			interval: 1,
			expected: date(2024, time.February, 29),
		},
		{
			name:     "Jan30_Monthly_ClampsToFeb28",
			from:     date(2025, time.January, 30),
			cycle:    BillingCycleMonthly,
			interval: 1,
			expected: date(2025, time.February, 28),
		},
		{
			name:     "Mar31_Monthly_ClampsToApr30",
			from:     date(2025, time.March, 31),
			cycle:    BillingCycleMonthly,
			interval: 1,
			expected: date(2025, time.April, 30),
		},
		{
			name:     "Jan15_Monthly_NoClampNeeded",
			from:     date(2025, time.January, 15),
			cycle:    BillingCycleMonthly,
			interval: 1,
			expected: date(2025, time.February, 15),
		},
		{
			name:     "Nov30_Quarterly_ClampsToFeb28",
			from:     date(2024, time.November, 30),
			cycle:    BillingCycleQuarterly,
			interval: 1,
			expected: date(2025, time.February, 28),
		},
		{
			name:     "Feb29_Yearly_ClampsToFeb28",
			from:     date(2024, time.February, 29),
			cycle:    BillingCycleYearly,
			interval: 1,
			expected: date(2025, time.February, 28),
		},
		{
			name:     "Jan31_Monthly_Interval3",
			from:     date(2025, time.January, 31),
			cycle:    BillingCycleMonthly,
			interval: 3,
			expected: date(2025, time.April, 30),
		},
		{
			name:     "Weekly_AddsSevenDays",
			from:     date(2025, time.January, 31),
			cycle:    BillingCycleWeekly,
			interval: 1,
			expected: date(2025, time.February, 7),
		},
		{
			name:     "Weekly_Interval2",
			from:     date(2025, time.January, 1),
			cycle:    BillingCycleWeekly,
			interval: 2,
			expected: date(2025, time.January, 15),
		},
		{
			name:     "ZeroInterval_DefaultsToOne",
			from:     date(2025, time.June, 10),
			cycle:    BillingCycleMonthly,
			interval: 0,
			expected: date(2025, time.July, 10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextBillingDate(tt.from, tt.cycle, tt.interval)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.expected), "got %s, want %s", got, tt.expected)
		})
	}
}

func TestNextBillingDate_NeverSkipsAMonth(t *testing.T) {
	// A subscription anchored on Jan 31 must bill every single month; the
	// clamped dates must stay strictly increasing without rolling over.
	from := date(2025, time.January, 31)
	expected := []time.Time{
		date(2025, time.February, 28),
		date(2025, time.March, 28),
		date(2025, time.April, 28),
	}

	for _, want := range expected {
		got, err := NextBillingDate(from, BillingCycleMonthly, 1)
		require.NoError(t, err)
		assert.True(t, got.Equal(want), "got %s, want %s", got, want)
		assert.True(t, got.After(from))
		from = got
	}
}

func TestNextBillingDate_PreservesTimeOfDay(t *testing.T) {
	from := time.Date(2025, time.January, 31, 9, 30, 45, 0, time.UTC)
	got, err := NextBillingDate(from, BillingCycleMonthly, 1)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.February, 28, 9, 30, 45, 0, time.UTC), got)
}

func TestNextBillingDate_InvalidCycle(t *testing.T) {
	_, err := NextBillingDate(date(2025, time.January, 1), BillingCycle("daily"), 1)
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidBillingCycle(err))
}

func TestCalculateTrialEnd(t *testing.T) {
	start := date(2025, time.January, 15)
	assert.True(t, CalculateTrialEnd(start, 14).Equal(date(2025, time.January, 29)))
	assert.True(t, CalculateTrialEnd(start, 0).Equal(start))
	assert.True(t, CalculateTrialEnd(start, -3).Equal(start))
}
