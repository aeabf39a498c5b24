// Package aggregator projects recurring transactions across date ranges.
//
// Every function here is pure: results depend only on the arguments, so calls
// may run concurrently without coordination.
//
// This file implements the Strategy Pattern for recurrence stepping.
// Each period (daily, weekly, monthly, yearly) has its own stepper. A step
// always applies to the previous date, so a monthly walk that hits a shorter
// month keeps the shortened day: Jan 31, Feb 28, Mar 28.
package aggregator

import (
	"fmt"
	"time"

	"cashflow/internal/core"
)

// Stepper is the strategy interface for walking a recurrence schedule.
type Stepper interface {
	// Advance applies n single steps to d, each to the previous result.
	// Advance(d, 0) is d and results are strictly increasing in n.
	Advance(d time.Time, n int) time.Time

	// Estimate returns a step count near the number of steps from d to t.
	// Callers correct it, so it only has to be close.
	Estimate(d, t time.Time) int
}

// DailyStepper advances one day at a time.
type DailyStepper struct{}

func (DailyStepper) Advance(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

func (DailyStepper) Estimate(d, t time.Time) int {
	return int(dayNumber(t) - dayNumber(d))
}

// WeeklyStepper advances seven days at a time.
type WeeklyStepper struct{}

func (WeeklyStepper) Advance(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, 7*n)
}

func (WeeklyStepper) Estimate(d, t time.Time) int {
	return int((dayNumber(t) - dayNumber(d)) / 7)
}

// MonthlyStepper advances one calendar month at a time. A day missing from
// the target month becomes that month's last day and stays there.
type MonthlyStepper struct{}

func (MonthlyStepper) Advance(d time.Time, n int) time.Time {
	if n <= 0 {
		return d
	}
	y, m, day := d.Date()
	// Any 24 consecutive months hold a 28-day February, the shortest month,
	// so later months cannot shorten the day further.
	for i := 1; i <= min(n, 24); i++ {
		day = min(day, daysIn(y, m+time.Month(i)))
	}
	return time.Date(y, m+time.Month(n), day, d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location())
}

func (MonthlyStepper) Estimate(d, t time.Time) int {
	return monthsBetween(d, t)
}

// YearlyStepper advances one calendar year at a time; Feb 29 becomes Feb 28
// on the first step and stays there.
type YearlyStepper struct{}

func (YearlyStepper) Advance(d time.Time, n int) time.Time {
	if n <= 0 {
		return d
	}
	y, m, day := d.Date()
	if m == time.February && day == 29 {
		day = 28
	}
	return time.Date(y+n, m, day, d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location())
}

func (YearlyStepper) Estimate(d, t time.Time) int {
	return t.Year() - d.Year()
}

// dayNumber counts calendar days since the Unix epoch. Unlike time.Duration
// it does not saturate for dates centuries apart.
func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

// steppers maps recurrence periods to their strategies. The registry is
// closed: an unknown period has no stepper and can never loop.
var steppers = map[core.RecurringPeriod]Stepper{
	core.Daily:   DailyStepper{},
	core.Weekly:  WeeklyStepper{},
	core.Monthly: MonthlyStepper{},
	core.Yearly:  YearlyStepper{},
}

// GetStepper returns the stepper for a recurrence period.
// Returns an error wrapping core.ErrInvalidPeriod if the period is not supported.
func GetStepper(period core.RecurringPeriod) (Stepper, error) {
	s, ok := steppers[period]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidPeriod, period)
	}
	return s, nil
}

// countThrough returns how many of d, Advance(d, 1), Advance(d, 2), ... fall
// on or before t. The estimate is off by at most a step or two, so both
// correction loops are short.
func countThrough(s Stepper, d, t time.Time) int {
	if d.After(t) {
		return 0
	}
	n := max(s.Estimate(d, t), 0)
	for n > 0 && s.Advance(d, n).After(t) {
		n--
	}
	for !s.Advance(d, n+1).After(t) {
		n++
	}
	return n + 1
}

func inRange(d, start, end core.Date) bool {
	return !d.Before(start.Time) && !d.After(end.Time)
}
