package types

import (
	"time"

	ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"
)

// BillingCycle is the cadence at which a plan recurs.
type BillingCycle string

const (
	BillingCycleMonthly   BillingCycle = "monthly"
	BillingCycleQuarterly BillingCycle = "quarterly"
	BillingCycleYearly    BillingCycle = "yearly"
	BillingCycleWeekly    BillingCycle = "weekly"
)

func (c BillingCycle) Validate() error {
	switch c {
	case BillingCycleMonthly, BillingCycleQuarterly, BillingCycleYearly, BillingCycleWeekly:
		return nil
	default:
		return ierr.NewError("invalid billing cycle").
			WithHint("Billing cycle must be one of monthly, quarterly, yearly, weekly").
			WithReportableDetails(map[string]interface{}{
				"billing_cycle": string(c),
			}).
			Mark(ierr.ErrInvalidBillingCycle)
	}
}

// months returns how many months one interval of the cycle spans,
// or 0 for day-based cycles.
func (c BillingCycle) months() int {
	switch c {
	case BillingCycleMonthly:
		return 1
	case BillingCycleQuarterly:
		return 3
	case BillingCycleYearly:
		return 12
	default:
		return 0
	}
}

// NextBillingDate returns the next billing date after from for the given
// cycle and interval. Month-based cycles are calendar-safe: when the source
// day-of-month does not exist in the target month (e.g. Jan 31 + 1 month),
// the result clamps to the last day of the target month instead of rolling
// over into the following month.
func NextBillingDate(from time.Time, cycle BillingCycle, interval int) (time.Time, error) {
	if err := cycle.Validate(); err != nil {
		return time.Time{}, err
	}
	if interval < 1 {
		interval = 1
	}

	if cycle == BillingCycleWeekly {
		return from.AddDate(0, 0, 7*interval), nil
	}

	return addMonthsClamped(from, cycle.months()*interval), nil
}

// addMonthsClamped adds months to a date, clamping the day-of-month to the
// last valid day of the target month. time.AddDate normalizes (Jan 31 + 1
// month = Mar 3), which is exactly the overflow billing must avoid.
func addMonthsClamped(from time.Time, months int) time.Time {
	year, month, day := from.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
	lastDay := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month())
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// CalculatePeriodEnd returns the exclusive end of the billing period that
// starts at periodStart.
func CalculatePeriodEnd(periodStart time.Time, cycle BillingCycle, interval int) (time.Time, error) {
	return NextBillingDate(periodStart, cycle, interval)
}

// CalculateTrialEnd returns when a trial starting at start ends.
func CalculateTrialEnd(start time.Time, trialDays int) time.Time {
	if trialDays <= 0 {
		return start
	}
	return start.AddDate(0, 0, trialDays)
}
