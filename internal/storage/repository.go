// Package storage implements the persistence ports on SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cashflow/internal/core"
	"cashflow/internal/log"
	"cashflow/internal/ports"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ ports.Store = (*SQLiteRepository)(nil)

// DSN builds a modernc.org/sqlite data source name with foreign keys enforced
// on every pooled connection.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dsn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("SQLite schema ready", log.FieldComponent, log.ComponentStorage, "path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// tableFor maps a kind to its table. Only the two known tables are ever
// interpolated into SQL.
func tableFor(kind core.Kind) (string, error) {
	switch kind {
	case core.KindExpense:
		return "expenses", nil
	case core.KindEarning:
		return "earnings", nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrInvalidKind, kind)
	}
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p core.Project) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO projects (id, name) VALUES (?, ?)`, p.ID, p.Name)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	slog.InfoContext(ctx, "Project saved to SQLite", log.FieldComponent, log.ComponentStorage, log.FieldProjectID, p.ID, "name", p.Name)
	return nil
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (core.Project, error) {
	var p core.Project
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM projects WHERE id = ?`, id).Scan(&p.ID, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Project{}, fmt.Errorf("project %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM projects ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []core.Project{}
	for rows.Next() {
		var p core.Project
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

func (r *SQLiteRepository) RenameProject(ctx context.Context, id, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE projects SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("rename project: %w", err)
	}
	return expectOneRow(res, "project", id)
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if err := expectOneRow(res, "project", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Project deleted from SQLite", log.FieldComponent, log.ComponentStorage, log.FieldProjectID, id)
	return nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	table, err := tableFor(t.Kind)
	if err != nil {
		return core.Transaction{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ?`, t.ProjectID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("project %s: %w", t.ProjectID, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("check project: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO `+table+` (project_id, name, amount_cents, date, is_recurring, recurring_period)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ProjectID, t.Name, t.Amount.Cents, t.Date.String(), t.IsRecurring, periodValue(t))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert %s: %w", t.Kind, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit: %w", err)
	}

	t.ID = id
	slog.InfoContext(ctx, "Transaction saved to SQLite", log.NewFields().
		WithComponent(log.ComponentStorage).
		WithTransaction(t.ProjectID, string(t.Kind), t.ID, t.Amount.Cents).
		ToSlice()...)
	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, kind core.Kind, id int64) (core.Transaction, error) {
	table, err := tableFor(kind)
	if err != nil {
		return core.Transaction{}, err
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT id, project_id, name, amount_cents, date, is_recurring, recurring_period
		 FROM `+table+` WHERE id = ?`, id)
	t, err := scanTransaction(row, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("%s %d: %w", kind, id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get %s: %w", kind, err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, projectID string, kind core.Kind) ([]core.Transaction, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, project_id, name, amount_cents, date, is_recurring, recurring_period
		 FROM `+table+` WHERE project_id = ? ORDER BY date, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind.Plural(), err)
	}
	defer rows.Close()

	items := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind.Plural(), err)
	}
	return items, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	table, err := tableFor(t.Kind)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE `+table+`
		 SET name = ?, amount_cents = ?, date = ?, is_recurring = ?, recurring_period = ?,
		     updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		 WHERE id = ?`,
		t.Name, t.Amount.Cents, t.Date.String(), t.IsRecurring, periodValue(t), t.ID)
	if err != nil {
		return fmt.Errorf("update %s: %w", t.Kind, err)
	}
	return expectOneRow(res, string(t.Kind), t.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, kind core.Kind, id int64) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	return expectOneRow(res, string(kind), id)
}

// seriesRow is the JSON shape of one monthly point inside series_json.
type seriesRow struct {
	Label         string `json:"label"`
	Month         string `json:"month"`
	ExpensesCents int64  `json:"expenses_cents"`
	EarningsCents int64  `json:"earnings_cents"`
}

func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, s core.ProjectSnapshot) error {
	series := make([]seriesRow, 0, len(s.Series))
	for _, m := range s.Series {
		series = append(series, seriesRow{
			Label:         m.Label,
			Month:         m.Month.String(),
			ExpensesCents: m.Expenses.Cents,
			EarningsCents: m.Earnings.Cents,
		})
	}
	seriesJSON, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("encode series: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO project_snapshots
		   (project_id, from_date, to_date, total_expenses_cents, total_earnings_cents, series_json, refreshed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(project_id) DO UPDATE SET
		   from_date = excluded.from_date,
		   to_date = excluded.to_date,
		   total_expenses_cents = excluded.total_expenses_cents,
		   total_earnings_cents = excluded.total_earnings_cents,
		   series_json = excluded.series_json,
		   refreshed_at = excluded.refreshed_at`,
		s.ProjectID, s.From.String(), s.To.String(), s.TotalExpenses.Cents, s.TotalEarnings.Cents,
		string(seriesJSON), s.RefreshedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSnapshot(ctx context.Context, projectID string) (core.ProjectSnapshot, error) {
	var (
		s                       core.ProjectSnapshot
		from, to, series, stamp string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT project_id, from_date, to_date, total_expenses_cents, total_earnings_cents, series_json, refreshed_at
		 FROM project_snapshots WHERE project_id = ?`, projectID).
		Scan(&s.ProjectID, &from, &to, &s.TotalExpenses.Cents, &s.TotalEarnings.Cents, &series, &stamp)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ProjectSnapshot{}, fmt.Errorf("snapshot %s: %w", projectID, core.ErrNotFound)
	}
	if err != nil {
		return core.ProjectSnapshot{}, fmt.Errorf("get snapshot: %w", err)
	}

	if s.From, err = core.ParseDate(from); err != nil {
		return core.ProjectSnapshot{}, err
	}
	if s.To, err = core.ParseDate(to); err != nil {
		return core.ProjectSnapshot{}, err
	}
	if s.RefreshedAt, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
		return core.ProjectSnapshot{}, fmt.Errorf("parse refreshed_at: %w", err)
	}

	var rows []seriesRow
	if err := json.Unmarshal([]byte(series), &rows); err != nil {
		return core.ProjectSnapshot{}, fmt.Errorf("decode series: %w", err)
	}
	s.Series = make([]core.MonthlyTotals, 0, len(rows))
	for _, row := range rows {
		month, err := core.ParseDate(row.Month)
		if err != nil {
			return core.ProjectSnapshot{}, err
		}
		exp := core.Money{Cents: row.ExpensesCents}
		earn := core.Money{Cents: row.EarningsCents}
		s.Series = append(s.Series, core.MonthlyTotals{
			Label:    row.Label,
			Month:    month,
			Expenses: exp,
			Earnings: earn,
			Net:      earn.Sub(exp),
		})
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner, kind core.Kind) (core.Transaction, error) {
	var (
		t      core.Transaction
		date   string
		period sql.NullString
	)
	if err := row.Scan(&t.ID, &t.ProjectID, &t.Name, &t.Amount.Cents, &date, &t.IsRecurring, &period); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Kind = kind
	t.Date = d
	if period.Valid {
		t.Period = core.RecurringPeriod(period.String)
	}
	return t, nil
}

// periodValue stores NULL for one-off items.
func periodValue(t core.Transaction) any {
	if !t.IsRecurring || t.Period == "" {
		return nil
	}
	return string(t.Period)
}

func expectOneRow(res sql.Result, what string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %v: %w", what, id, core.ErrNotFound)
	}
	return nil
}
