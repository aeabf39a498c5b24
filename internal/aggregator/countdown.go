package aggregator

import (
	"fmt"
	"time"

	"cashflow/internal/core"
)

// Unit is the coarse bucket a countdown falls into.
type Unit string

const (
	UnitNotApplicable Unit = "n/a"
	UnitToday         Unit = "today"
	UnitTomorrow      Unit = "tomorrow"
	UnitDays          Unit = "days"
	UnitWeeks         Unit = "weeks"
	UnitMonths        Unit = "months"
	UnitYears         Unit = "years"
)

// Countdown describes how far away the next occurrence of an item is. It is a
// dashboard hint, so months are 30 days and years 365.
type Countdown struct {
	Unit  Unit      `json:"unit"`
	Count int       `json:"count"`
	Next  core.Date `json:"next,omitempty"`
}

// Applicable reports whether the item has a next occurrence at all.
func (c Countdown) Applicable() bool {
	return c.Unit != UnitNotApplicable
}

// String renders the countdown as "today", "tomorrow", "3 days", "1 month", ...
func (c Countdown) String() string {
	switch c.Unit {
	case UnitNotApplicable, UnitToday, UnitTomorrow:
		return string(c.Unit)
	}
	unit := string(c.Unit)
	if c.Count == 1 {
		unit = unit[:len(unit)-1]
	}
	return fmt.Sprintf("%d %s", c.Count, unit)
}

// ClassifyGap buckets a gap of whole days. Every division floors.
func ClassifyGap(days int) Countdown {
	switch {
	case days <= 0:
		return Countdown{Unit: UnitToday}
	case days == 1:
		return Countdown{Unit: UnitTomorrow, Count: 1}
	case days < 7:
		return Countdown{Unit: UnitDays, Count: days}
	case days < 30:
		return Countdown{Unit: UnitWeeks, Count: days / 7}
	case days < 365:
		return Countdown{Unit: UnitMonths, Count: days / 30}
	default:
		return Countdown{Unit: UnitYears, Count: days / 365}
	}
}

// NextOccurrence walks item forward from its date, one period per step,
// until it passes now, then classifies the gap. An occurrence exactly at now
// is already past. Dates are compared on now's wall clock, so the caller
// picks the time zone. The gap counts whole days, truncating a partial one.
//
// One-off items and unknown periods are not applicable.
func NextOccurrence(item core.Transaction, now time.Time) Countdown {
	if !item.IsRecurring {
		return Countdown{Unit: UnitNotApplicable}
	}
	s, err := GetStepper(item.Period)
	if err != nil {
		return Countdown{Unit: UnitNotApplicable}
	}

	wall := time.Date(now.Year(), now.Month(), now.Day(),
		now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), time.UTC)
	next := s.Advance(item.Date.Time, countThrough(s, item.Date.Time, wall))

	days := int(dayNumber(next) - dayNumber(wall))
	if !wall.Equal(core.DateOf(wall).Time) {
		days--
	}
	c := ClassifyGap(days)
	c.Next = core.Date{Time: next}
	return c
}
