package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/de-tools/trend-radar/pkg/store/duckdb"

	"github.com/de-tools/trend-radar/pkg/models/store"
)

// Store archives every run's records locally so past runs can be inspected
// without touching the spreadsheet.
type Store interface {
	BeginRun(ctx context.Context, runID string, group string) error
	Add(ctx context.Context, runID string, rows []store.TrendRow) error
	GetRecords(ctx context.Context, startTime, endTime time.Time) ([]store.TrendRow, error)
	GetRegionRecords(ctx context.Context, regions []string, startTime, endTime time.Time) ([]store.TrendRow, error)
	GetRunStats(ctx context.Context, startTime *time.Time) (*store.RunStats, error)
}

type historyStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &historyStore{db: db}, nil
}

func (h *historyStore) BeginRun(ctx context.Context, runID string, group string) error {
	query := `INSERT INTO run_state (run_id, grp) VALUES (?, ?)`

	tx := duckdb.GetTransaction(ctx)
	var err error
	if tx == nil {
		_, err = h.db.ExecContext(ctx, query, runID, group)
	} else {
		_, err = tx.ExecContext(ctx, query, runID, group)
	}
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

func (h *historyStore) Add(ctx context.Context, runID string, rows []store.TrendRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx := duckdb.GetTransaction(ctx)
	query := `
		INSERT INTO trend_records (
			run_id, observed_at, term, region_code, region_name,
			category, title, value, link
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?
		)`

	var stmt *sql.Stmt
	var err error
	if tx == nil {
		stmt, err = h.db.PrepareContext(ctx, query)
	} else {
		stmt, err = tx.PrepareContext(ctx, query)
	}

	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err = stmt.ExecContext(ctx,
			runID,
			row.ObservedAt,
			row.Term,
			row.RegionCode,
			row.RegionName,
			row.Category,
			row.Title,
			row.Value,
			row.Link,
		)

		if err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
	}

	return nil
}

func (h *historyStore) GetRecords(ctx context.Context, startTime, endTime time.Time) ([]store.TrendRow, error) {
	query := `
		SELECT run_id, observed_at, term, region_code, region_name, category, title, value, link
		FROM trend_records
		WHERE observed_at >= ? AND observed_at < ?
		ORDER BY observed_at DESC
	`
	rows, err := h.db.QueryContext(ctx, query, startTime, endTime)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()
	return scanTrendRows(rows)
}

func (h *historyStore) GetRegionRecords(ctx context.Context, regions []string, startTime, endTime time.Time) ([]store.TrendRow, error) {
	if len(regions) == 0 {
		return []store.TrendRow{}, nil
	}

	placeholders := make([]string, 0, len(regions))
	for range regions {
		placeholders = append(placeholders, "?")
	}
	args := append([]interface{}{startTime, endTime}, toInterfaceSlice(regions)...)

	query := fmt.Sprintf(`
		SELECT run_id, observed_at, term, region_code, region_name, category, title, value, link
		FROM trend_records
		WHERE observed_at >= ? AND observed_at < ? AND region_code IN (%s)
		ORDER BY observed_at DESC
	`, join(placeholders, ","))

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records by region: %w", err)
	}
	defer rows.Close()
	return scanTrendRows(rows)
}

func (h *historyStore) GetRunStats(ctx context.Context, startTime *time.Time) (*store.RunStats, error) {
	query := `SELECT COUNT(*) as total_records, MIN(observed_at) as earliest_record FROM trend_records`
	args := []interface{}{}
	if startTime != nil {
		query += " WHERE observed_at > ?"
		args = append(args, *startTime)
	}
	var total int64
	var earliest sql.NullTime
	if err := h.db.QueryRowContext(ctx, query, args...).Scan(&total, &earliest); err != nil {
		return nil, fmt.Errorf("get run stats: %w", err)
	}
	var first *time.Time
	if earliest.Valid {
		t := earliest.Time
		first = &t
	}
	return &store.RunStats{RecordsCount: total, FirstRecordTime: first}, nil
}

func scanTrendRows(rows *sql.Rows) ([]store.TrendRow, error) {
	records := make([]store.TrendRow, 0)
	for rows.Next() {
		var (
			runID, term, regionCode, category, title string
			regionName, value, link                  sql.NullString
			observedAt                               time.Time
		)
		if err := rows.Scan(&runID, &observedAt, &term, &regionCode, &regionName, &category, &title, &value, &link); err != nil {
			return nil, err
		}
		records = append(records, store.TrendRow{
			RunID:      runID,
			ObservedAt: observedAt,
			Term:       term,
			RegionCode: regionCode,
			RegionName: regionName.String,
			Category:   category,
			Title:      title,
			Value:      value.String,
			Link:       link.String,
		})
	}
	return records, rows.Err()
}

func toInterfaceSlice(ss []string) []interface{} {
	res := make([]interface{}, len(ss))
	for i, s := range ss {
		res[i] = s
	}
	return res
}

func join(items []string, sep string) string {
	if len(items) == 0 {
		return ""
	}
	out := items[0]
	for i := 1; i < len(items); i++ {
		out += sep + items[i]
	}
	return out
}
