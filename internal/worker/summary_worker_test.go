package worker

import (
	"context"
	"errors"
	"testing"

	"cashflow/internal/amqp"
	"cashflow/internal/core"
)

type fakeRefresher struct {
	calls []string
	err   error
}

func (f *fakeRefresher) Refresh(_ context.Context, projectID string) (core.ProjectSnapshot, error) {
	f.calls = append(f.calls, projectID)
	if f.err != nil {
		return core.ProjectSnapshot{}, f.err
	}
	return core.ProjectSnapshot{ProjectID: projectID}, nil
}

type fakeInvalidator struct{ projects []string }

func (f *fakeInvalidator) Invalidate(projectID string) {
	f.projects = append(f.projects, projectID)
}

type fakeConsumer struct {
	msgs []*amqp.ChangeMessage
	errs []error
	err  error
}

func (f *fakeConsumer) ConsumeChanges(ctx context.Context, handler func(context.Context, *amqp.ChangeMessage) error) error {
	for _, m := range f.msgs {
		f.errs = append(f.errs, handler(ctx, m))
	}
	return f.err
}

func TestHandleChange(t *testing.T) {
	tests := []struct {
		name           string
		action         amqp.Action
		refreshErr     error
		wantErr        bool
		wantRefresh    bool
		wantInvalidate bool
	}{
		{name: "created refreshes", action: amqp.ActionCreated, wantRefresh: true},
		{name: "updated refreshes", action: amqp.ActionUpdated, wantRefresh: true},
		{name: "deleted refreshes", action: amqp.ActionDeleted, wantRefresh: true},
		{name: "project deleted invalidates", action: amqp.ActionProjectDeleted, wantInvalidate: true},
		{name: "missing project is dropped", action: amqp.ActionCreated, refreshErr: core.ErrNotFound, wantRefresh: true},
		{name: "refresh failure is returned", action: amqp.ActionCreated, refreshErr: errors.New("disk full"), wantRefresh: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := &fakeRefresher{err: tt.refreshErr}
			inv := &fakeInvalidator{}
			w := NewSummaryWorker(ref, inv)

			err := w.HandleChange(context.Background(), amqp.NewChangeMessage("p1", "expense", 7, tt.action))
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleChange() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := len(ref.calls) == 1; got != tt.wantRefresh {
				t.Errorf("refreshed = %v, want %v", got, tt.wantRefresh)
			}
			if got := len(inv.projects) == 1; got != tt.wantInvalidate {
				t.Errorf("invalidated = %v, want %v", got, tt.wantInvalidate)
			}
		})
	}
}

func TestRun(t *testing.T) {
	ref := &fakeRefresher{}
	consumer := &fakeConsumer{
		msgs: []*amqp.ChangeMessage{
			amqp.NewChangeMessage("a", "expense", 1, amqp.ActionCreated),
			amqp.NewChangeMessage("b", "earning", 2, amqp.ActionUpdated),
		},
		err: context.Canceled,
	}
	w := NewSummaryWorker(ref, nil)

	if err := w.Run(context.Background(), consumer); err != nil {
		t.Fatalf("Run() error = %v, want nil on cancellation", err)
	}
	if len(ref.calls) != 2 || ref.calls[0] != "a" || ref.calls[1] != "b" {
		t.Errorf("refreshed %v, want [a b]", ref.calls)
	}
	for i, err := range consumer.errs {
		if err != nil {
			t.Errorf("handler[%d] error = %v", i, err)
		}
	}

	consumer = &fakeConsumer{err: errors.New("broker gone")}
	if err := w.Run(context.Background(), consumer); err == nil {
		t.Error("Run() should surface consumer failures")
	}
}
