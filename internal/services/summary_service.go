package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"cashflow/internal/aggregator"
	"cashflow/internal/cache"
	"cashflow/internal/core"
	"cashflow/internal/log"
	"cashflow/internal/ports"
)

// Summary is the dashboard view of a project over a date range.
type Summary struct {
	ProjectID     string               `json:"project_id"`
	From          core.Date            `json:"from"`
	To            core.Date            `json:"to"`
	TotalExpenses core.Money           `json:"total_expenses"`
	TotalEarnings core.Money           `json:"total_earnings"`
	Net           core.Money           `json:"net"`
	Series        []core.MonthlyTotals `json:"series"`
	Upcoming      []UpcomingItem       `json:"upcoming"`
}

// UpcomingItem is a recurring transaction with its next-occurrence hint.
type UpcomingItem struct {
	Kind      core.Kind            `json:"kind"`
	ID        int64                `json:"id"`
	Name      string               `json:"name"`
	Amount    core.Money           `json:"amount"`
	Period    core.RecurringPeriod `json:"recurring_period"`
	Next      core.Date            `json:"next"`
	Countdown string               `json:"countdown"`
}

// SharedItem is the public view of a single transaction.
type SharedItem struct {
	Kind        core.Kind            `json:"kind"`
	ID          int64                `json:"id"`
	Name        string               `json:"name"`
	Amount      core.Money           `json:"amount"`
	Date        core.Date            `json:"date"`
	IsRecurring bool                 `json:"is_recurring"`
	Period      core.RecurringPeriod `json:"recurring_period,omitempty"`
	Countdown   string               `json:"countdown,omitempty"`
}

// projectData is what the summary cache keeps: the transaction sets plus the
// range-dependent aggregates. Countdowns depend on the clock and are
// recomputed on every read.
type projectData struct {
	expenses []core.Transaction
	earnings []core.Transaction
	summary  Summary
}

// SummaryService computes aggregates for a project. It is the only caller of
// the aggregator outside tests.
type SummaryService struct {
	store ports.Store
	cache *cache.LRUCache[projectData]
}

// NewSummaryService creates the service. A cacheSize below 1 disables the
// summary cache.
func NewSummaryService(store ports.Store, cacheSize int, ttl time.Duration) *SummaryService {
	s := &SummaryService{store: store}
	if cacheSize > 0 {
		s.cache = cache.NewLRUCache[projectData](cacheSize, ttl)
	}
	return s
}

// CacheCleaner exposes the summary cache for periodic expiry sweeps; nil
// when caching is disabled.
func (s *SummaryService) CacheCleaner() cache.Cleaner {
	if s.cache == nil {
		return nil
	}
	return s.cache
}

// CacheStats reports summary cache effectiveness.
func (s *SummaryService) CacheStats() cache.Stats {
	if s.cache == nil {
		return cache.Stats{}
	}
	return s.cache.Stats()
}

// DefaultRange is the calendar year containing now.
func DefaultRange(now time.Time) (core.Date, core.Date) {
	return core.NewDate(now.Year(), 1, 1), core.NewDate(now.Year(), 12, 31)
}

// Load fetches a project's expenses and earnings in parallel.
func (s *SummaryService) Load(ctx context.Context, projectID string) ([]core.Transaction, []core.Transaction, error) {
	var expenses, earnings []core.Transaction
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.store.ListTransactions(gctx, projectID, core.KindExpense)
		return err
	})
	g.Go(func() error {
		var err error
		earnings, err = s.store.ListTransactions(gctx, projectID, core.KindEarning)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("load transactions: %w", err)
	}
	return expenses, earnings, nil
}

// Summarize returns totals, the monthly series and upcoming recurring items
// for [from, to]. A range with from after to yields zero totals and an empty
// series, not an error.
func (s *SummaryService) Summarize(ctx context.Context, projectID string, from, to core.Date, now time.Time) (Summary, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return Summary{}, err
	}

	key := cacheKey(projectID, from, to)
	data, ok := s.cached(key)
	if !ok {
		expenses, earnings, err := s.Load(ctx, projectID)
		if err != nil {
			return Summary{}, err
		}
		data = projectData{
			expenses: expenses,
			earnings: earnings,
			summary:  compute(projectID, expenses, earnings, from, to),
		}
		if s.cache != nil {
			s.cache.Set(key, data)
		}
		fields := log.NewFields().
			WithComponent(log.ComponentSummary).
			WithOperation(log.OpSummarize).
			WithRange(from.String(), to.String())
		fields[log.FieldProjectID] = projectID
		slog.DebugContext(ctx, "Summary computed",
			append(fields.ToSlice(), "expenses", len(expenses), "earnings", len(earnings))...)
	}

	summary := data.summary
	summary.Series = append([]core.MonthlyTotals(nil), data.summary.Series...)
	summary.Upcoming = upcoming(data.expenses, data.earnings, now)
	return summary, nil
}

// Snapshot computes the current-year summary as a storable snapshot.
func (s *SummaryService) Snapshot(ctx context.Context, projectID string, now time.Time) (core.ProjectSnapshot, error) {
	from, to := DefaultRange(now)
	summary, err := s.Summarize(ctx, projectID, from, to, now)
	if err != nil {
		return core.ProjectSnapshot{}, err
	}
	return core.ProjectSnapshot{
		ProjectID:     projectID,
		From:          from,
		To:            to,
		TotalExpenses: summary.TotalExpenses,
		TotalEarnings: summary.TotalEarnings,
		Series:        summary.Series,
		RefreshedAt:   now.UTC(),
	}, nil
}

// Share returns the public view of one transaction.
func (s *SummaryService) Share(ctx context.Context, kind core.Kind, id int64, now time.Time) (SharedItem, error) {
	t, err := s.store.GetTransaction(ctx, kind, id)
	if err != nil {
		return SharedItem{}, err
	}
	item := SharedItem{
		Kind:        t.Kind,
		ID:          t.ID,
		Name:        t.Name,
		Amount:      t.Amount,
		Date:        t.Date,
		IsRecurring: t.IsRecurring,
		Period:      t.Period,
	}
	if c := aggregator.NextOccurrence(t, now); c.Applicable() {
		item.Countdown = c.String()
	}
	return item, nil
}

// Invalidate drops every cached summary of the project.
func (s *SummaryService) Invalidate(projectID string) {
	if s.cache == nil {
		return
	}
	s.cache.DeletePrefix(projectID + "|")
}

func (s *SummaryService) cached(key string) (projectData, bool) {
	if s.cache == nil {
		return projectData{}, false
	}
	return s.cache.Get(key)
}

func cacheKey(projectID string, from, to core.Date) string {
	return projectID + "|" + from.String() + "|" + to.String()
}

func compute(projectID string, expenses, earnings []core.Transaction, from, to core.Date) Summary {
	totalExp := aggregator.TotalForPeriod(expenses, from, to)
	totalEarn := aggregator.TotalForPeriod(earnings, from, to)
	return Summary{
		ProjectID:     projectID,
		From:          from,
		To:            to,
		TotalExpenses: totalExp,
		TotalEarnings: totalEarn,
		Net:           totalEarn.Sub(totalExp),
		Series:        aggregator.MonthlySeries(expenses, earnings, from, to),
	}
}

// upcoming lists recurring items soonest first.
func upcoming(expenses, earnings []core.Transaction, now time.Time) []UpcomingItem {
	out := []UpcomingItem{}
	for _, set := range [][]core.Transaction{expenses, earnings} {
		for _, t := range set {
			c := aggregator.NextOccurrence(t, now)
			if !c.Applicable() {
				continue
			}
			out = append(out, UpcomingItem{
				Kind:      t.Kind,
				ID:        t.ID,
				Name:      t.Name,
				Amount:    t.Amount,
				Period:    t.Period,
				Next:      c.Next,
				Countdown: c.String(),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Next.Before(out[j].Next.Time)
	})
	return out
}
