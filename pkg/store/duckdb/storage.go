package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const RunStateSchema = `
	CREATE TABLE IF NOT EXISTS run_state (
		run_id VARCHAR NOT NULL,
		started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		grp VARCHAR NULL
	);
`
const TrendRecordsSchema = `
	CREATE TABLE IF NOT EXISTS trend_records (
		run_id VARCHAR NOT NULL,
		observed_at TIMESTAMP NOT NULL,
		term VARCHAR NOT NULL,
		region_code VARCHAR NOT NULL,
		region_name VARCHAR,
		category VARCHAR NOT NULL,
		title VARCHAR NOT NULL,
		value VARCHAR,
		link VARCHAR,
		PRIMARY KEY (run_id, term, region_code, category, title)
	);
`

var bootQueries = []string{
	RunStateSchema,
	TrendRecordsSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}
