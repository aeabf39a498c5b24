package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"cashflow/internal/amqp"
	"cashflow/internal/core"
	"cashflow/internal/log"
	"cashflow/internal/ports"
)

// ChangePublisher announces project changes to the snapshot worker.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
}

// Invalidator drops derived data for a project after it changed.
type Invalidator interface {
	Invalidate(projectID string)
}

// ProjectService orchestrates project and transaction operations across the
// store, the change publisher and the summary cache. Every operation takes
// the project explicitly; there is no current project.
type ProjectService struct {
	store       ports.Store
	publisher   ChangePublisher
	invalidator Invalidator
	newID       func() string
}

// NewProjectService wires the service. publisher and invalidator may be nil.
func NewProjectService(store ports.Store, publisher ChangePublisher, invalidator Invalidator) *ProjectService {
	return &ProjectService{
		store:       store,
		publisher:   publisher,
		invalidator: invalidator,
		newID:       uuid.NewString,
	}
}

func (s *ProjectService) CreateProject(ctx context.Context, name string) (core.Project, error) {
	p := core.Project{ID: s.newID(), Name: strings.TrimSpace(name)}
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return core.Project{}, fmt.Errorf("save project: %w", err)
	}
	slog.InfoContext(ctx, "Project created", log.FieldProjectID, p.ID, "name", p.Name)
	return p, nil
}

func (s *ProjectService) GetProject(ctx context.Context, id string) (core.Project, error) {
	return s.store.GetProject(ctx, id)
}

func (s *ProjectService) ListProjects(ctx context.Context) ([]core.Project, error) {
	return s.store.ListProjects(ctx)
}

func (s *ProjectService) RenameProject(ctx context.Context, id, name string) (core.Project, error) {
	p := core.Project{ID: id, Name: strings.TrimSpace(name)}
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}
	if err := s.store.RenameProject(ctx, id, p.Name); err != nil {
		return core.Project{}, err
	}
	return p, nil
}

// DeleteProject removes the project together with its transactions.
func (s *ProjectService) DeleteProject(ctx context.Context, id string) error {
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, amqp.NewChangeMessage(id, "", 0, amqp.ActionProjectDeleted))
	slog.InfoContext(ctx, "Project deleted", log.FieldProjectID, id)
	return nil
}

// CreateTransaction validates and stores a new expense or earning.
func (s *ProjectService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t = normalize(t)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save %s: %w", t.Kind, err)
	}

	slog.InfoContext(ctx, "Transaction created", transactionFields(created, log.OpCreate)...)

	s.changed(ctx, amqp.NewChangeMessage(created.ProjectID, string(created.Kind), created.ID, amqp.ActionCreated))
	return created, nil
}

func (s *ProjectService) GetTransaction(ctx context.Context, kind core.Kind, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, kind, id)
}

// ListTransactions returns a project's expenses or earnings. An unknown
// project is reported as not found rather than as an empty list.
func (s *ProjectService) ListTransactions(ctx context.Context, projectID string, kind core.Kind) ([]core.Transaction, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, projectID, kind)
}

// UpdateTransaction edits a transaction in place. The id, kind and project
// of the stored record are kept whatever the input says.
func (s *ProjectService) UpdateTransaction(ctx context.Context, kind core.Kind, id int64, in core.Transaction) (core.Transaction, error) {
	existing, err := s.store.GetTransaction(ctx, kind, id)
	if err != nil {
		return core.Transaction{}, err
	}

	in.ID = existing.ID
	in.Kind = existing.Kind
	in.ProjectID = existing.ProjectID
	in = normalize(in)
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.UpdateTransaction(ctx, in); err != nil {
		return core.Transaction{}, fmt.Errorf("update %s: %w", kind, err)
	}

	slog.InfoContext(ctx, "Transaction updated", transactionFields(in, log.OpUpdate)...)
	s.changed(ctx, amqp.NewChangeMessage(in.ProjectID, string(kind), id, amqp.ActionUpdated))
	return in, nil
}

func (s *ProjectService) DeleteTransaction(ctx context.Context, kind core.Kind, id int64) error {
	existing, err := s.store.GetTransaction(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, kind, id); err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	slog.InfoContext(ctx, "Transaction deleted", transactionFields(existing, log.OpDelete)...)
	s.changed(ctx, amqp.NewChangeMessage(existing.ProjectID, string(kind), id, amqp.ActionDeleted))
	return nil
}

// changed invalidates cached summaries and publishes a change message.
// Publishing is best effort: the write already succeeded.
func (s *ProjectService) changed(ctx context.Context, msg *amqp.ChangeMessage) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(msg.ProjectID)
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, msg); err != nil {
		level := slog.LevelError
		if errors.Is(err, amqp.ErrCircuitOpen) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "Failed to publish change message",
			log.FieldProjectID, msg.ProjectID,
			"action", msg.Action,
			log.FieldError, err)
	}
}

func transactionFields(t core.Transaction, op string) []any {
	fields := log.NewFields().
		WithComponent(log.ComponentProject).
		WithOperation(op).
		WithTransaction(t.ProjectID, string(t.Kind), t.ID, t.Amount.Cents)
	if t.IsRecurring {
		fields[log.FieldPeriod] = string(t.Period)
	}
	return fields.ToSlice()
}

func normalize(t core.Transaction) core.Transaction {
	t.Name = strings.TrimSpace(t.Name)
	if !t.IsRecurring {
		t.Period = ""
	}
	return t
}
