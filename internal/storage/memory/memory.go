// Package memory is a process-local implementation of the storage ports,
// used for development and tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"cashflow/internal/core"
	"cashflow/internal/ports"
)

type Store struct {
	mu        sync.RWMutex
	projects  map[string]core.Project
	items     map[core.Kind]map[int64]core.Transaction
	nextID    map[core.Kind]int64
	snapshots map[string]core.ProjectSnapshot
}

var _ ports.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		projects: make(map[string]core.Project),
		items: map[core.Kind]map[int64]core.Transaction{
			core.KindExpense: {},
			core.KindEarning: {},
		},
		nextID:    map[core.Kind]int64{core.KindExpense: 0, core.KindEarning: 0},
		snapshots: make(map[string]core.ProjectSnapshot),
	}
}

// NewFromFiles creates a store seeded with one project per line of
// base/seed_projects.txt. Blank lines and # comments are skipped.
func NewFromFiles(base string) *Store {
	s := New()
	for _, name := range readLines(filepath.Join(base, "seed_projects.txt")) {
		id := uuid.NewString()
		s.projects[id] = core.Project{ID: id, Name: name}
	}
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateProject(_ context.Context, p core.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.projects[p.ID]; exists {
		return fmt.Errorf("project %s already exists", p.ID)
	}
	s.projects[p.ID] = p
	return nil
}

func (s *Store) GetProject(_ context.Context, id string) (core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return core.Project{}, fmt.Errorf("project %s: %w", id, core.ErrNotFound)
	}
	return p, nil
}

func (s *Store) ListProjects(context.Context) ([]core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) RenameProject(_ context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return fmt.Errorf("project %s: %w", id, core.ErrNotFound)
	}
	p.Name = name
	s.projects[id] = p
	return nil
}

func (s *Store) DeleteProject(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("project %s: %w", id, core.ErrNotFound)
	}
	delete(s.projects, id)
	delete(s.snapshots, id)
	for _, byID := range s.items {
		for txID, t := range byID {
			if t.ProjectID == id {
				delete(byID, txID)
			}
		}
	}
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.items[t.Kind]
	if !ok {
		return core.Transaction{}, fmt.Errorf("%w: %q", core.ErrInvalidKind, t.Kind)
	}
	if _, ok := s.projects[t.ProjectID]; !ok {
		return core.Transaction{}, fmt.Errorf("project %s: %w", t.ProjectID, core.ErrNotFound)
	}
	s.nextID[t.Kind]++
	t.ID = s.nextID[t.Kind]
	if !t.IsRecurring {
		t.Period = ""
	}
	byID[t.ID] = t
	return t, nil
}

func (s *Store) GetTransaction(_ context.Context, kind core.Kind, id int64) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.items[kind][id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("%s %d: %w", kind, id, core.ErrNotFound)
	}
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, projectID string, kind core.Kind) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID, ok := s.items[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidKind, kind)
	}
	out := []core.Transaction{}
	for _, t := range byID {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.items[t.Kind][t.ID]
	if !ok {
		return fmt.Errorf("%s %d: %w", t.Kind, t.ID, core.ErrNotFound)
	}
	t.ProjectID = existing.ProjectID
	if !t.IsRecurring {
		t.Period = ""
	}
	s.items[t.Kind][t.ID] = t
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, kind core.Kind, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[kind][id]; !ok {
		return fmt.Errorf("%s %d: %w", kind, id, core.ErrNotFound)
	}
	delete(s.items[kind], id)
	return nil
}

func (s *Store) SaveSnapshot(_ context.Context, snap core.ProjectSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[snap.ProjectID]; !ok {
		return fmt.Errorf("project %s: %w", snap.ProjectID, core.ErrNotFound)
	}
	snap.Series = append([]core.MonthlyTotals(nil), snap.Series...)
	s.snapshots[snap.ProjectID] = snap
	return nil
}

func (s *Store) GetSnapshot(_ context.Context, projectID string) (core.ProjectSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[projectID]
	if !ok {
		return core.ProjectSnapshot{}, fmt.Errorf("snapshot %s: %w", projectID, core.ErrNotFound)
	}
	snap.Series = append([]core.MonthlyTotals(nil), snap.Series...)
	return snap, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
