package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cashflow/internal/amqp"
	"cashflow/internal/core"
	"cashflow/internal/log"
)

// Refresher recomputes and stores a project's snapshot.
type Refresher interface {
	Refresh(ctx context.Context, projectID string) (core.ProjectSnapshot, error)
}

// Invalidator drops cached summaries of a project.
type Invalidator interface {
	Invalidate(projectID string)
}

// Consumer delivers change messages to a handler until ctx is done.
type Consumer interface {
	ConsumeChanges(ctx context.Context, handler func(context.Context, *amqp.ChangeMessage) error) error
}

// SummaryWorker keeps stored project snapshots in step with change events.
type SummaryWorker struct {
	refresher   Refresher
	invalidator Invalidator
}

func NewSummaryWorker(refresher Refresher, invalidator Invalidator) *SummaryWorker {
	return &SummaryWorker{refresher: refresher, invalidator: invalidator}
}

// HandleChange processes a single change message from AMQP. Messages for
// projects that no longer exist are acknowledged and dropped.
func (w *SummaryWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	slog.InfoContext(ctx, "Processing change message",
		log.FieldComponent, log.ComponentWorker,
		log.FieldProjectID, msg.ProjectID,
		log.FieldKind, msg.Kind,
		log.FieldTransactionID, msg.TransactionID,
		"action", msg.Action)

	if msg.Action == amqp.ActionProjectDeleted {
		if w.invalidator != nil {
			w.invalidator.Invalidate(msg.ProjectID)
		}
		return nil
	}

	snap, err := w.refresher.Refresh(ctx, msg.ProjectID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Skipping change for missing project",
				log.FieldProjectID, msg.ProjectID,
				log.FieldError, err)
			return nil
		}
		return fmt.Errorf("refresh project %s: %w", msg.ProjectID, err)
	}

	slog.InfoContext(ctx, "Project snapshot updated",
		log.FieldProjectID, msg.ProjectID,
		"net_cents", snap.Net().Cents,
		"months", len(snap.Series))
	return nil
}

// Run consumes change messages until ctx is cancelled.
func (w *SummaryWorker) Run(ctx context.Context, consumer Consumer) error {
	err := consumer.ConsumeChanges(ctx, w.HandleChange)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume changes: %w", err)
	}
	return nil
}
