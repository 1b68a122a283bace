package store

import "time"

// TrendRow is the DuckDB representation of one scraped record.
type TrendRow struct {
	RunID      string
	ObservedAt time.Time
	Term       string
	RegionCode string
	RegionName string
	Category   string
	Title      string
	Value      string
	Link       string
}

// RunStats summarizes the archived history.
type RunStats struct {
	RecordsCount    int64
	FirstRecordTime *time.Time
}
