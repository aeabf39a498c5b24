package aggregator

import "cashflow/internal/core"

// AmountInInterval returns the amount item contributes to the inclusive range
// [start, end].
//
// A one-off item counts once when its date is inside the range. A recurring
// item is walked from max(item date, start), one period per step, and counts
// once for every step that lands on or before end. The walk restarts at the
// range start, so a monthly item anchored on the 15th still counts once in
// [20th, 31st] of the same month. An empty range (start after end) or an
// unknown period yields zero.
func AmountInInterval(item core.Transaction, start, end core.Date) core.Money {
	if start.After(end.Time) || item.Date.After(end.Time) {
		return core.Money{}
	}
	if !item.IsRecurring {
		if inRange(item.Date, start, end) {
			return item.Amount
		}
		return core.Money{}
	}
	s, err := GetStepper(item.Period)
	if err != nil {
		return core.Money{}
	}
	from := start.Time
	if item.Date.After(from) {
		from = item.Date.Time
	}
	return item.Amount.Times(int64(countThrough(s, from, end.Time)))
}

// TotalForPeriod sums AmountInInterval over items. Amounts are integer cents,
// so the result does not depend on the order of items.
func TotalForPeriod(items []core.Transaction, start, end core.Date) core.Money {
	var total core.Money
	for _, item := range items {
		total = total.Add(AmountInInterval(item, start, end))
	}
	return total
}
