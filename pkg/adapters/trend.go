package adapters

import (
	"github.com/de-tools/trend-radar/pkg/models/domain"
	"github.com/de-tools/trend-radar/pkg/models/store"
)

func MapDomainRecordToStoreRow(runID string, r domain.TrendRecord) store.TrendRow {
	return store.TrendRow{
		RunID:      runID,
		ObservedAt: r.ObservedAt,
		Term:       r.Term,
		RegionCode: r.RegionCode,
		RegionName: r.RegionName,
		Category:   string(r.Category),
		Title:      r.Title,
		Value:      r.Value,
		Link:       r.Link,
	}
}

func MapStoreRowToDomainRecord(row store.TrendRow) domain.TrendRecord {
	return domain.TrendRecord{
		ObservedAt: row.ObservedAt,
		Term:       row.Term,
		RegionCode: row.RegionCode,
		RegionName: row.RegionName,
		Category:   domain.Category(row.Category),
		Title:      row.Title,
		Value:      row.Value,
		Link:       row.Link,
	}
}

// MapDomainRecordToSheetRow flattens a record into the fixed column order of
// the raw-data tabs: timestamp, term, region code, region name, title, value,
// link.
func MapDomainRecordToSheetRow(r domain.TrendRecord) []string {
	return []string{
		r.ObservedAt.UTC().Format("2006-01-02 15:04:05"),
		r.Term,
		r.RegionCode,
		r.RegionName,
		r.Title,
		r.Value,
		r.Link,
	}
}
