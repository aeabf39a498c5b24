// Package ports declares the outbound interfaces the services depend on.
// Storage backends and exporters implement them.
package ports

import (
	"context"

	"cashflow/internal/core"
)

type (
	ProjectStore interface {
		// CreateProject stores p; p.ID must already be set.
		CreateProject(ctx context.Context, p core.Project) error
		GetProject(ctx context.Context, id string) (core.Project, error)
		ListProjects(ctx context.Context) ([]core.Project, error)
		RenameProject(ctx context.Context, id, name string) error
		// DeleteProject removes the project with its expenses, earnings and snapshot.
		DeleteProject(ctx context.Context, id string) error
	}

	// TransactionStore persists expenses and earnings. Kind selects the
	// collection; the ID space is per kind.
	TransactionStore interface {
		// CreateTransaction assigns an ID and returns the stored transaction.
		// Returns core.ErrNotFound when the project does not exist.
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		GetTransaction(ctx context.Context, kind core.Kind, id int64) (core.Transaction, error)
		// ListTransactions returns the full set for a project ordered by date, then id.
		ListTransactions(ctx context.Context, projectID string, kind core.Kind) ([]core.Transaction, error)
		// UpdateTransaction overwrites every field except ID, Kind and ProjectID.
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, kind core.Kind, id int64) error
	}

	// SnapshotStore keeps the latest precomputed summary per project.
	SnapshotStore interface {
		SaveSnapshot(ctx context.Context, s core.ProjectSnapshot) error
		GetSnapshot(ctx context.Context, projectID string) (core.ProjectSnapshot, error)
	}

	// Store is everything a backend provides.
	Store interface {
		ProjectStore
		TransactionStore
		SnapshotStore
		Ping(ctx context.Context) error
		Close() error
	}

	// SnapshotExporter publishes a snapshot outside the application.
	SnapshotExporter interface {
		ExportSnapshot(ctx context.Context, project core.Project, s core.ProjectSnapshot) error
	}
)
