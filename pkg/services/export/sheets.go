package export

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/de-tools/trend-radar/pkg/adapters"
	"github.com/de-tools/trend-radar/pkg/models/domain"
)

// rawHeaders is the fixed header row of every raw-data tab, matching the
// column order of adapters.MapDomainRecordToSheetRow.
var rawHeaders = []string{"timestamp", "term", "region_code", "region_name", "title", "value", "link"}

// defaultTabs maps record categories to destination tab names when the run
// configuration does not override them.
var defaultTabs = map[string]string{
	string(domain.CategoryQueriesTop):       "Related_Queries_Top",
	string(domain.CategoryQueriesRising):    "Related_Queries_Rising",
	string(domain.CategoryTopicsTop):        "Related_Topics_Top",
	string(domain.CategoryTopicsRising):     "Related_Topics_Rising",
	string(domain.CategoryInterestOverTime): "Interest_Over_Time",
}

// Exporter is the spreadsheet sink consumed by the monitor runner.
type Exporter interface {
	Connect(ctx context.Context) error
	Export(ctx context.Context, records []domain.TrendRecord) (map[string]int, error)
	ExportReport(ctx context.Context, rows [][]string, ts time.Time) (string, error)
	RowCounts(ctx context.Context) (map[string]int, error)
	SetupSheets(ctx context.Context) error
}

// SheetsExporter appends batches to a Google Sheets workbook, creating tabs
// with header rows as needed.
type SheetsExporter struct {
	cfg domain.SheetsConfig
	svc *sheets.Service
}

func NewSheetsExporter(cfg domain.SheetsConfig) *SheetsExporter {
	return &SheetsExporter{cfg: cfg}
}

// Connect builds the Sheets service from the service account key file and
// verifies the spreadsheet is reachable.
func (e *SheetsExporter) Connect(ctx context.Context) error {
	raw, err := os.ReadFile(e.cfg.CredentialsPath)
	if err != nil {
		return fmt.Errorf("read credentials %s: %w", e.cfg.CredentialsPath, err)
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, sheets.SpreadsheetsScope)
	if err != nil {
		return fmt.Errorf("parse credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return fmt.Errorf("create sheets service: %w", err)
	}

	doc, err := svc.Spreadsheets.Get(e.cfg.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("open spreadsheet %s: %w", e.cfg.SpreadsheetID, err)
	}

	e.svc = svc
	zerolog.Ctx(ctx).Info().Str("title", doc.Properties.Title).Msg("connected to spreadsheet")
	return nil
}

// Export appends records to their per-category tabs and returns the row
// count written per tab.
func (e *SheetsExporter) Export(ctx context.Context, records []domain.TrendRecord) (map[string]int, error) {
	if e.svc == nil {
		if err := e.Connect(ctx); err != nil {
			return nil, err
		}
	}
	logger := zerolog.Ctx(ctx)

	grouped := make(map[domain.Category][]domain.TrendRecord)
	for _, record := range records {
		grouped[record.Category] = append(grouped[record.Category], record)
	}

	counts := make(map[string]int)
	for category, items := range grouped {
		tab := e.tabFor(category)
		if tab == "" {
			logger.Warn().Str("category", string(category)).Msg("no tab configured for category, skipping")
			continue
		}

		if err := e.ensureTab(ctx, tab, rawHeaders); err != nil {
			return counts, fmt.Errorf("ensure tab %q: %w", tab, err)
		}

		values := make([][]interface{}, 0, len(items))
		for _, item := range items {
			values = append(values, toInterfaceRow(adapters.MapDomainRecordToSheetRow(item)))
		}

		if err := e.appendRows(ctx, tab, values); err != nil {
			return counts, fmt.Errorf("append to tab %q: %w", tab, err)
		}
		counts[tab] += len(values)
		logger.Info().Str("tab", tab).Int("rows", len(values)).Msg("exported rows")
	}
	return counts, nil
}

// ExportReport writes a rendered report into a fresh timestamped tab and
// returns the tab name, or an empty string with the error on failure. The
// rows are self-describing, so no header row is seeded.
func (e *SheetsExporter) ExportReport(ctx context.Context, rows [][]string, ts time.Time) (string, error) {
	if e.svc == nil {
		if err := e.Connect(ctx); err != nil {
			return "", err
		}
	}

	tab := "Report_" + ts.UTC().Format("20060102_1504")
	if err := e.ensureTab(ctx, tab, nil); err != nil {
		return "", fmt.Errorf("ensure report tab %q: %w", tab, err)
	}

	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		values = append(values, toInterfaceRow(row))
	}
	if err := e.appendRows(ctx, tab, values); err != nil {
		return "", fmt.Errorf("append report rows: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("tab", tab).Int("rows", len(rows)).Msg("report exported")
	return tab, nil
}

// RowCounts returns the data row count per configured tab, header excluded.
func (e *SheetsExporter) RowCounts(ctx context.Context) (map[string]int, error) {
	if e.svc == nil {
		if err := e.Connect(ctx); err != nil {
			return nil, err
		}
	}

	counts := make(map[string]int)
	for _, category := range []domain.Category{
		domain.CategoryQueriesTop, domain.CategoryQueriesRising,
		domain.CategoryTopicsTop, domain.CategoryTopicsRising,
		domain.CategoryInterestOverTime,
	} {
		tab := e.tabFor(category)
		resp, err := e.svc.Spreadsheets.Values.Get(e.cfg.SpreadsheetID, tab+"!A:A").Context(ctx).Do()
		if err != nil {
			counts[tab] = 0
			continue
		}
		n := len(resp.Values) - 1
		if n < 0 {
			n = 0
		}
		counts[tab] = n
	}
	return counts, nil
}

// SetupSheets creates every configured raw-data tab up front.
func (e *SheetsExporter) SetupSheets(ctx context.Context) error {
	if e.svc == nil {
		if err := e.Connect(ctx); err != nil {
			return err
		}
	}
	for _, category := range []domain.Category{
		domain.CategoryQueriesTop, domain.CategoryQueriesRising,
		domain.CategoryTopicsTop, domain.CategoryTopicsRising,
		domain.CategoryInterestOverTime,
	} {
		if err := e.ensureTab(ctx, e.tabFor(category), rawHeaders); err != nil {
			return err
		}
	}
	return nil
}

func (e *SheetsExporter) tabFor(category domain.Category) string {
	if tab, ok := e.cfg.Tabs[string(category)]; ok {
		return tab
	}
	return defaultTabs[string(category)]
}

func (e *SheetsExporter) ensureTab(ctx context.Context, tab string, headers []string) error {
	doc, err := e.svc.Spreadsheets.Get(e.cfg.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sheet := range doc.Sheets {
		if sheet.Properties.Title == tab {
			return nil
		}
	}

	_, err = e.svc.Spreadsheets.BatchUpdate(e.cfg.SpreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: tab},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	if len(headers) > 0 {
		if err := e.appendRows(ctx, tab, [][]interface{}{toInterfaceRow(headers)}); err != nil {
			return fmt.Errorf("seed header row: %w", err)
		}
	}
	zerolog.Ctx(ctx).Info().Str("tab", tab).Msg("created tab")
	return nil
}

func (e *SheetsExporter) appendRows(ctx context.Context, tab string, values [][]interface{}) error {
	if len(values) == 0 {
		return nil
	}
	_, err := e.svc.Spreadsheets.Values.Append(e.cfg.SpreadsheetID, tab+"!A1", &sheets.ValueRange{
		Values: values,
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func toInterfaceRow(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, cell := range row {
		out[i] = cell
	}
	return out
}
