package services

import (
	"context"
	"errors"
	"testing"

	"cashflow/internal/amqp"
	"cashflow/internal/core"
	"cashflow/internal/log"
	"cashflow/internal/storage/memory"
)

func TestProjectService_CreateProject(t *testing.T) {
	svc := NewProjectService(memory.New(), nil, nil)
	ctx := context.Background()

	if _, err := svc.CreateProject(ctx, "   "); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("CreateProject(blank) error = %v, want ErrEmptyName", err)
	}

	p, err := svc.CreateProject(ctx, "  Household ")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if p.Name != "Household" || len(p.ID) != 36 {
		t.Errorf("CreateProject() = %+v, want trimmed name and uuid id", p)
	}

	got, err := svc.GetProject(ctx, p.ID)
	if err != nil || got != p {
		t.Errorf("GetProject() = %+v, %v", got, err)
	}

	renamed, err := svc.RenameProject(ctx, p.ID, "Home")
	if err != nil || renamed.Name != "Home" {
		t.Errorf("RenameProject() = %+v, %v", renamed, err)
	}
}

func TestProjectService_CreateTransactionValidation(t *testing.T) {
	store := newStoreWithProject(t, "p")
	svc := NewProjectService(store, nil, nil)
	ctx := context.Background()

	base := core.Transaction{
		ProjectID: "p",
		Kind:      core.KindExpense,
		Name:      "Rent",
		Amount:    core.Money{Cents: 100},
		Date:      core.NewDate(2024, 1, 1),
	}

	tests := []struct {
		name   string
		modify func(*core.Transaction)
		want   error
	}{
		{"empty name", func(t *core.Transaction) { t.Name = " " }, core.ErrEmptyName},
		{"zero amount", func(t *core.Transaction) { t.Amount = core.Money{} }, core.ErrInvalidAmount},
		{"missing date", func(t *core.Transaction) { t.Date = core.Date{} }, core.ErrInvalidDate},
		{"recurring without period", func(t *core.Transaction) { t.IsRecurring = true }, core.ErrMissingPeriod},
		{"unknown period", func(t *core.Transaction) { t.IsRecurring = true; t.Period = "hourly" }, core.ErrInvalidPeriod},
		{"unknown project", func(t *core.Transaction) { t.ProjectID = "nope" }, core.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.modify(&in)
			if _, err := svc.CreateTransaction(ctx, in); !errors.Is(err, tt.want) {
				t.Errorf("CreateTransaction() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestProjectService_TransactionLifecycle(t *testing.T) {
	store := newStoreWithProject(t, "p")
	pub := &recordingPublisher{}
	inv := &recordingInvalidator{}
	svc := NewProjectService(store, pub, inv)
	ctx := context.Background()

	created, err := svc.CreateTransaction(ctx, core.Transaction{
		ProjectID: "p",
		Kind:      core.KindEarning,
		Name:      " Bonus ",
		Amount:    core.Money{Cents: 50000},
		Date:      core.NewDate(2024, 12, 20),
		Period:    core.Yearly, // ignored for one-off items
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if created.Name != "Bonus" || created.Period != "" {
		t.Errorf("CreateTransaction() = %+v, want trimmed name and no period", created)
	}

	updated, err := svc.UpdateTransaction(ctx, core.KindEarning, created.ID, core.Transaction{
		ProjectID:   "elsewhere",
		Name:        "Bonus",
		Amount:      core.Money{Cents: 60000},
		Date:        core.NewDate(2024, 12, 20),
		IsRecurring: true,
		Period:      core.Yearly,
	})
	if err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	if updated.ID != created.ID || updated.ProjectID != "p" || updated.Kind != core.KindEarning {
		t.Errorf("UpdateTransaction() = %+v, want same id, project and kind", updated)
	}

	list, err := svc.ListTransactions(ctx, "p", core.KindEarning)
	if err != nil || len(list) != 1 || list[0].Amount.Cents != 60000 {
		t.Fatalf("ListTransactions() = %+v, %v", list, err)
	}

	if err := svc.DeleteTransaction(ctx, core.KindEarning, created.ID); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if err := svc.DeleteTransaction(ctx, core.KindEarning, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second DeleteTransaction() error = %v, want ErrNotFound", err)
	}

	want := []amqp.Action{amqp.ActionCreated, amqp.ActionUpdated, amqp.ActionDeleted}
	got := pub.actions()
	if len(got) != len(want) {
		t.Fatalf("published %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("published[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if len(inv.projects) != 3 || inv.projects[0] != "p" {
		t.Errorf("invalidated %v, want p three times", inv.projects)
	}
}

func TestProjectService_PublishFailureDoesNotFailWrite(t *testing.T) {
	store := newStoreWithProject(t, "p")
	svc := NewProjectService(store, &recordingPublisher{err: amqp.ErrCircuitOpen}, nil)

	_, err := svc.CreateTransaction(context.Background(), core.Transaction{
		ProjectID: "p", Kind: core.KindExpense, Name: "Coffee",
		Amount: core.Money{Cents: 350}, Date: core.NewDate(2024, 2, 2),
	})
	if err != nil {
		t.Errorf("CreateTransaction() error = %v, want nil", err)
	}
}

func TestProjectService_DeleteProject(t *testing.T) {
	store := newStoreWithProject(t, "p")
	pub := &recordingPublisher{}
	svc := NewProjectService(store, pub, nil)
	ctx := context.Background()

	if err := svc.DeleteProject(ctx, "p"); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}
	if got := pub.actions(); len(got) != 1 || got[0] != amqp.ActionProjectDeleted {
		t.Errorf("published %v, want project_deleted", got)
	}
	if _, err := svc.ListTransactions(ctx, "p", core.KindExpense); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("ListTransactions() error = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteProject(ctx, "p"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second DeleteProject() error = %v, want ErrNotFound", err)
	}
}

func TestProjectService_LogsTransactionFields(t *testing.T) {
	records := captureLogs(t)
	svc := NewProjectService(newStoreWithProject(t, "p"), nil, nil)
	ctx := context.Background()

	created, err := svc.CreateTransaction(ctx, core.Transaction{
		ProjectID:   "p",
		Kind:        core.KindExpense,
		Name:        "Gym",
		Amount:      core.Money{Cents: 5000},
		Date:        core.NewDate(2024, 1, 15),
		IsRecurring: true,
		Period:      core.Monthly,
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	updated := created
	updated.Amount = core.Money{Cents: 6000}
	if _, err := svc.UpdateTransaction(ctx, core.KindExpense, created.ID, updated); err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	if err := svc.DeleteTransaction(ctx, core.KindExpense, created.ID); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}

	tests := []struct {
		msg    string
		op     string
		amount float64
	}{
		{"Transaction created", log.OpCreate, 5000},
		{"Transaction updated", log.OpUpdate, 6000},
		{"Transaction deleted", log.OpDelete, 6000},
	}
	got := records()
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			rec := findRecord(got, tt.msg)
			if rec == nil {
				t.Fatalf("no %q record in %v", tt.msg, got)
			}
			want := map[string]any{
				log.FieldComponent:     log.ComponentProject,
				log.FieldOperation:     tt.op,
				log.FieldProjectID:     "p",
				log.FieldKind:          "expense",
				log.FieldTransactionID: float64(created.ID),
				log.FieldAmountCents:   tt.amount,
				log.FieldPeriod:        "monthly",
			}
			for k, v := range want {
				if rec[k] != v {
					t.Errorf("%s = %v, want %v", k, rec[k], v)
				}
			}
		})
	}
}
