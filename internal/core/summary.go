package core

import "time"

// MonthlyTotals is one point of the monthly chart series.
type MonthlyTotals struct {
	Label    string `json:"label"` // "Jan 2006"
	Month    Date   `json:"month"` // first day of the month
	Expenses Money  `json:"expenses"`
	Earnings Money  `json:"earnings"`
	Net      Money  `json:"net"` // Earnings - Expenses
}

// ProjectSnapshot is a stored, precomputed summary of a project over a range.
type ProjectSnapshot struct {
	ProjectID     string
	From          Date
	To            Date
	TotalExpenses Money
	TotalEarnings Money
	Series        []MonthlyTotals
	RefreshedAt   time.Time
}

// Net returns earnings minus expenses.
func (s ProjectSnapshot) Net() Money {
	return s.TotalEarnings.Sub(s.TotalExpenses)
}
