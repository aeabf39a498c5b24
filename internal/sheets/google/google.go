// Package google exports project snapshots to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cashflow/internal/core"
	"cashflow/internal/log"
	"cashflow/internal/ports"
)

// maxSheetTitle is the longest tab title Sheets accepts.
const maxSheetTitle = 100

// Ensure interface conformance
var _ ports.SnapshotExporter = (*Exporter)(nil)

// Config selects the spreadsheet and the service account used to write it.
type Config struct {
	SpreadsheetID      string
	SheetPrefix        string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// Exporter writes one tab per project and year, holding the monthly series
// of the latest snapshot.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	prefix        string
}

// New creates an exporter authenticated with a service account. Credentials
// come from cfg, falling back to GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, cfg Config) (*Exporter, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg.ServiceAccountJSON, cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		prefix:        strings.TrimSpace(cfg.SheetPrefix),
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, inlineJSON, file string) (*gsheet.Service, error) {
	inlineJSON = strings.TrimSpace(inlineJSON)
	file = strings.TrimSpace(file)
	if inlineJSON == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case inlineJSON != "":
		credentialsJSON = []byte(inlineJSON)
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "from_file", inlineJSON == "")
	return service, nil
}

// ExportSnapshot replaces the project's tab for the snapshot year with the
// snapshot rows, creating the tab on first export.
func (e *Exporter) ExportSnapshot(ctx context.Context, project core.Project, snap core.ProjectSnapshot) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}
	title := SheetName(e.prefix, project.Name, snap.From.Year())
	if err := e.ensureSheet(ctx, title); err != nil {
		return err
	}

	rng := a1Range(title, "A:D")
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	vr := &gsheet.ValueRange{Values: Rows(snap)}
	if _, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, a1Range(title, "A1"), vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", title, err)
	}

	slog.InfoContext(ctx, "Snapshot exported to sheet",
		log.FieldComponent, log.ComponentSheets,
		log.FieldOperation, log.OpExport,
		log.FieldProjectID, project.ID,
		"sheet", title,
		"rows", len(vr.Values))
	return nil
}

func (e *Exporter) ensureSheet(ctx context.Context, title string) error {
	ss, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", title, err)
	}
	slog.InfoContext(ctx, "Sheet created", "sheet", title)
	return nil
}

// SheetName returns "<prefix> <project> <year>", without the prefix when it
// is empty, cut to the longest title Sheets accepts.
func SheetName(prefix, project string, year int) string {
	suffix := fmt.Sprintf(" %d", year)
	base := strings.Join(strings.Fields(strings.TrimSpace(prefix+" "+project)), " ")
	runes := []rune(base)
	if limit := maxSheetTitle - len(suffix); len(runes) > limit {
		runes = runes[:limit]
	}
	return strings.TrimSpace(string(runes)) + suffix
}

// Rows lays out a snapshot as sheet rows: a header, one row per month, the
// totals and the refresh time.
func Rows(snap core.ProjectSnapshot) [][]any {
	rows := make([][]any, 0, len(snap.Series)+3)
	rows = append(rows, []any{"Month", "Expenses", "Earnings", "Net"})
	for _, m := range snap.Series {
		rows = append(rows, []any{m.Label, m.Expenses.String(), m.Earnings.String(), m.Net.String()})
	}
	rows = append(rows, []any{"Total", snap.TotalExpenses.String(), snap.TotalEarnings.String(), snap.Net().String()})
	rows = append(rows, []any{"Refreshed", snap.RefreshedAt.UTC().Format("2006-01-02 15:04:05"), "", ""})
	return rows
}

// a1Range quotes the sheet title for A1 notation.
func a1Range(title, cells string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!" + cells
}
