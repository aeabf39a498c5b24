package backend

import (
	"context"
	"fmt"
	"log/slog"

	"cashflow/internal/storage"
	"cashflow/internal/storage/memory"
)

// Factory is the default Opener.
type Factory struct {
	logger *slog.Logger
}

// NewFactory creates a factory that logs through logger, or the default
// logger when nil.
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

var _ Opener = (*Factory)(nil)

func (f *Factory) Open(ctx context.Context, opts Options) (*Backend, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	switch opts.Kind {
	case SQLite:
		repo, err := storage.NewSQLiteRepository(opts.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		f.logger.InfoContext(ctx, "Opened SQLite store", "db_path", opts.SQLitePath)
		return &Backend{Kind: SQLite, Store: repo, Close: repo.Close}, nil

	default:
		store := memory.New()
		if opts.SeedDir != "" {
			store = memory.NewFromFiles(opts.SeedDir)
		}
		projects, _ := store.ListProjects(ctx)
		f.logger.InfoContext(ctx, "Opened memory store",
			"seed_dir", opts.SeedDir,
			"seeded_projects", len(projects))
		return &Backend{Kind: Memory, Store: store, Close: store.Close}, nil
	}
}
