package http

import "cashflow/internal/core"

type projectJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type transactionJSON struct {
	ID          int64                `json:"id"`
	ProjectID   string               `json:"project_id"`
	Kind        core.Kind            `json:"kind"`
	Name        string               `json:"name"`
	Amount      core.Money           `json:"amount"`
	Date        core.Date            `json:"date"`
	IsRecurring bool                 `json:"is_recurring"`
	Period      core.RecurringPeriod `json:"recurring_period,omitempty"`
}

func toProjectJSON(p core.Project) projectJSON {
	return projectJSON{ID: p.ID, Name: p.Name}
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Kind:        t.Kind,
		Name:        t.Name,
		Amount:      t.Amount,
		Date:        t.Date,
		IsRecurring: t.IsRecurring,
		Period:      t.Period,
	}
}
