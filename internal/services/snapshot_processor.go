package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cashflow/internal/core"
	"cashflow/internal/log"
	"cashflow/internal/ports"
)

// SnapshotProcessorConfig holds configuration for the snapshot processor
type SnapshotProcessorConfig struct {
	// Interval between full refreshes of every project (default: 15m)
	Interval time.Duration

	// Concurrency bounds how many projects refresh at once (default: 4)
	Concurrency int

	// Now returns the current time (default: time.Now)
	Now func() time.Time
}

// DefaultSnapshotProcessorConfig returns sensible defaults
func DefaultSnapshotProcessorConfig() SnapshotProcessorConfig {
	return SnapshotProcessorConfig{
		Interval:    15 * time.Minute,
		Concurrency: 4,
		Now:         time.Now,
	}
}

// SnapshotProcessor recomputes and stores the current-year summary of
// projects, optionally exporting each snapshot.
type SnapshotProcessor struct {
	store     ports.Store
	summaries *SummaryService
	exporter  ports.SnapshotExporter
	config    SnapshotProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSnapshotProcessor creates a processor; exporter may be nil.
func NewSnapshotProcessor(store ports.Store, summaries *SummaryService, exporter ports.SnapshotExporter, config SnapshotProcessorConfig) *SnapshotProcessor {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.Interval <= 0 {
		config.Interval = DefaultSnapshotProcessorConfig().Interval
	}
	return &SnapshotProcessor{
		store:     store,
		summaries: summaries,
		exporter:  exporter,
		config:    config,
	}
}

// Refresh recomputes, stores and exports one project's snapshot.
func (p *SnapshotProcessor) Refresh(ctx context.Context, projectID string) (core.ProjectSnapshot, error) {
	p.summaries.Invalidate(projectID)
	snap, err := p.summaries.Snapshot(ctx, projectID, p.config.Now())
	if err != nil {
		return core.ProjectSnapshot{}, fmt.Errorf("compute snapshot: %w", err)
	}
	if err := p.store.SaveSnapshot(ctx, snap); err != nil {
		return core.ProjectSnapshot{}, fmt.Errorf("save snapshot: %w", err)
	}

	if p.exporter != nil {
		project, err := p.store.GetProject(ctx, projectID)
		if err != nil {
			return snap, fmt.Errorf("load project for export: %w", err)
		}
		if err := p.exporter.ExportSnapshot(ctx, project, snap); err != nil {
			return snap, fmt.Errorf("export snapshot: %w", err)
		}
	}

	slog.InfoContext(ctx, "Snapshot refreshed",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOperation, log.OpRefresh,
		log.FieldProjectID, projectID,
		log.FieldFrom, snap.From.String(),
		log.FieldTo, snap.To.String(),
		"total_expenses_cents", snap.TotalExpenses.Cents,
		"total_earnings_cents", snap.TotalEarnings.Cents,
		"exported", p.exporter != nil)
	return snap, nil
}

// RefreshAll refreshes every project with bounded concurrency. A failing
// project does not stop the others; all failures are returned joined.
func (p *SnapshotProcessor) RefreshAll(ctx context.Context) (int, error) {
	projects, err := p.store.ListProjects(ctx)
	if err != nil {
		return 0, fmt.Errorf("list projects: %w", err)
	}

	var (
		mu        sync.Mutex
		errs      []error
		refreshed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)
	for _, project := range projects {
		g.Go(func() error {
			_, err := p.Refresh(gctx, project.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				refreshed++
			case errors.Is(err, core.ErrNotFound):
				// deleted while refreshing
			default:
				errs = append(errs, fmt.Errorf("project %s: %w", project.ID, err))
			}
			return nil
		})
	}
	_ = g.Wait()

	return refreshed, errors.Join(errs...)
}

// Start begins the periodic refresh loop. Returns an error if already running.
func (p *SnapshotProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("snapshot processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	go p.runLoop(ctx, p.stopCh, p.doneCh)

	slog.InfoContext(ctx, "Snapshot processor started",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOperation, log.OpStartup,
		"interval", p.config.Interval,
		"concurrency", p.config.Concurrency)
	return nil
}

// Stop signals the loop and waits for it, bounded by ctx.
func (p *SnapshotProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.stopCh)
	done := p.doneCh
	p.mu.Unlock()

	select {
	case <-done:
		slog.InfoContext(ctx, "Snapshot processor stopped gracefully", log.FieldOperation, log.OpShutdown)
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Snapshot processor stop timed out", log.FieldOperation, log.OpShutdown)
		return ctx.Err()
	}
}

// IsRunning returns whether the processor is currently running
func (p *SnapshotProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SnapshotProcessor) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.refreshAllLogged(ctx)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refreshAllLogged(ctx)
		}
	}
}

func (p *SnapshotProcessor) refreshAllLogged(ctx context.Context) {
	n, err := p.RefreshAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Periodic snapshot refresh had failures", log.FieldCount, n, log.FieldError, err)
		return
	}
	slog.DebugContext(ctx, "Periodic snapshot refresh complete", log.FieldCount, n)
}
