package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"cashflow/internal/amqp"
	"cashflow/internal/core"
	"cashflow/internal/storage/memory"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.ChangeMessage
	err  error
}

func (p *recordingPublisher) PublishChange(_ context.Context, msg *amqp.ChangeMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) actions() []amqp.Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.Action, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.Action)
	}
	return out
}

type recordingInvalidator struct {
	mu       sync.Mutex
	projects []string
}

func (i *recordingInvalidator) Invalidate(projectID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.projects = append(i.projects, projectID)
}

type recordingExporter struct {
	mu       sync.Mutex
	exported map[string]core.ProjectSnapshot
	failFor  string
}

func (e *recordingExporter) ExportSnapshot(_ context.Context, p core.Project, s core.ProjectSnapshot) error {
	if p.ID == e.failFor {
		return errors.New("sheets unavailable")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.exported == nil {
		e.exported = map[string]core.ProjectSnapshot{}
	}
	e.exported[p.ID] = s
	return nil
}

func newStoreWithProject(t *testing.T, id string) *memory.Store {
	t.Helper()
	store := memory.New()
	if err := store.CreateProject(context.Background(), core.Project{ID: id, Name: "Project " + id}); err != nil {
		t.Fatal(err)
	}
	return store
}

func mustCreate(t *testing.T, store *memory.Store, tx core.Transaction) core.Transaction {
	t.Helper()
	created, err := store.CreateTransaction(context.Background(), tx)
	if err != nil {
		t.Fatal(err)
	}
	return created
}

// captureLogs routes the default slog logger into a buffer for the rest of
// the test. The returned func decodes every JSON record written so far.
func captureLogs(t *testing.T) func() []map[string]any {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	return func() []map[string]any {
		var records []map[string]any
		for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
			if line == "" {
				continue
			}
			var rec map[string]any
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				t.Fatalf("decode log line %q: %v", line, err)
			}
			records = append(records, rec)
		}
		return records
	}
}

func findRecord(records []map[string]any, msg string) map[string]any {
	for _, rec := range records {
		if rec[slog.MessageKey] == msg {
			return rec
		}
	}
	return nil
}
