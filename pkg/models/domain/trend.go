package domain

import "time"

// Category identifies which upstream query produced a record and which
// destination tab it targets.
type Category string

const (
	CategoryQueriesTop       Category = "queries_top"
	CategoryQueriesRising    Category = "queries_rising"
	CategoryTopicsTop        Category = "topics_top"
	CategoryTopicsRising     Category = "topics_rising"
	CategoryInterestOverTime Category = "interest_over_time"
)

// WorldwideCode is the reserved region code for unscoped queries. It maps to
// an empty geo parameter at the upstream boundary.
const WorldwideCode = "WW"

// TrendRecord is one observed data point. Records are immutable once
// constructed; they are only filtered, grouped and re-labeled downstream.
type TrendRecord struct {
	ObservedAt time.Time
	Term       string
	RegionCode string
	RegionName string
	Category   Category
	Title      string
	Value      string
	Link       string
}

// ErrorKind classifies a failed fetch for retry decisions and run summaries.
type ErrorKind string

const (
	ErrorNone      ErrorKind = "none"
	ErrorRateLimit ErrorKind = "rate_limit"
	ErrorNoData    ErrorKind = "no_data"
	ErrorAuth      ErrorKind = "auth_error"
	ErrorNetwork   ErrorKind = "network_error"
	ErrorUnknown   ErrorKind = "unknown"
)

// FetchResult carries the outcome of a single fetch operation. Absent
// upstream data is a success with zero records, not a failure.
type FetchResult struct {
	Success      bool
	Records      []TrendRecord
	ErrorMessage string
	ErrorKind    ErrorKind
}

// Region is a geographic scope for trend data.
type Region struct {
	Code string
	Name string
}
