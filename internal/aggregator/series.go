package aggregator

import "cashflow/internal/core"

// SeriesLabelLayout formats the month label of a series point, e.g. "Jan 2024".
const SeriesLabelLayout = "Jan 2006"

// MonthlySeries returns one point per calendar month touched by [start, end],
// in chronological order.
//
// Boundary months are totalled over their whole calendar extent, not clipped
// to the outer range, so a range starting on the 20th still reports the full
// first month. A missing bound or start after end yields an empty series.
func MonthlySeries(expenses, earnings []core.Transaction, start, end core.Date) []core.MonthlyTotals {
	if start.IsZero() || end.IsZero() || start.After(end.Time) {
		return []core.MonthlyTotals{}
	}

	last := end.StartOfMonth()
	var series []core.MonthlyTotals
	for month := start.StartOfMonth(); !month.After(last.Time); month = nextMonth(month) {
		monthEnd := month.EndOfMonth()
		exp := TotalForPeriod(expenses, month, monthEnd)
		earn := TotalForPeriod(earnings, month, monthEnd)
		series = append(series, core.MonthlyTotals{
			Label:    month.Format(SeriesLabelLayout),
			Month:    month,
			Expenses: exp,
			Earnings: earn,
			Net:      earn.Sub(exp),
		})
	}
	return series
}

func nextMonth(d core.Date) core.Date {
	return core.Date{Time: d.AddDate(0, 1, 0)}
}
