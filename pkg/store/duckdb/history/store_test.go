package history

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/de-tools/trend-radar/pkg/models/store"
	"github.com/de-tools/trend-radar/pkg/store/duckdb"
	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db    *sql.DB
	store Store
}

func setupTestDB(t *testing.T) *sql.DB {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	return db
}

func setupFixture(t *testing.T) *fixture {
	db := setupTestDB(t)
	store, err := NewStore(db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return &fixture{
		db:    db,
		store: store,
	}
}

func sampleRows(runID string, observedAt time.Time) []store.TrendRow {
	return []store.TrendRow{
		{
			RunID:      runID,
			ObservedAt: observedAt,
			Term:       "minecraft",
			RegionCode: "US",
			RegionName: "United States",
			Category:   "queries_rising",
			Title:      "minecraft 1.21 download",
			Value:      "Breakout",
			Link:       "https://trends.google.com/trends/explore?q=minecraft&geo=US",
		},
		{
			RunID:      runID,
			ObservedAt: observedAt,
			Term:       "minecraft",
			RegionCode: "BR",
			RegionName: "Brazil",
			Category:   "queries_top",
			Title:      "minecraft gratis",
			Value:      "85",
			Link:       "https://trends.google.com/trends/explore?q=minecraft&geo=BR",
		},
	}
}

func TestHistoryStore_Add(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	t.Run("success - add records", func(t *testing.T) {
		observedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		err := f.store.Add(ctx, "run-1", sampleRows("run-1", observedAt))
		require.NoError(t, err)

		var count int
		err = f.db.QueryRow("SELECT COUNT(*) FROM trend_records WHERE run_id = ?", "run-1").Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("success - empty records", func(t *testing.T) {
		err := f.store.Add(ctx, "run-1", nil)
		require.NoError(t, err)
	})

	t.Run("success - add within a carried transaction", func(t *testing.T) {
		tx, err := f.db.Begin()
		require.NoError(t, err)

		observedAt := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
		txCtx := duckdb.WithTransaction(ctx, tx)
		require.NoError(t, f.store.Add(txCtx, "run-tx", sampleRows("run-tx", observedAt)))
		require.NoError(t, tx.Commit())

		var count int
		err = f.db.QueryRow("SELECT COUNT(*) FROM trend_records WHERE run_id = ?", "run-tx").Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("error - duplicate records", func(t *testing.T) {
		observedAt := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
		rows := sampleRows("run-2", observedAt)[:1]

		err := f.store.Add(ctx, "run-2", rows)
		require.NoError(t, err)

		err = f.store.Add(ctx, "run-2", rows)
		assert.Error(t, err)
	})
}

func TestHistoryStore_GetRecords(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	inWindow := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	outOfWindow := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, f.store.Add(ctx, "run-1", sampleRows("run-1", inWindow)))
	require.NoError(t, f.store.Add(ctx, "run-0", []store.TrendRow{{
		RunID:      "run-0",
		ObservedAt: outOfWindow,
		Term:       "roblox",
		RegionCode: "US",
		Category:   "queries_top",
		Title:      "roblox codes",
		Value:      "50",
	}}))

	t.Run("window bounds filter records", func(t *testing.T) {
		got, err := f.store.GetRecords(ctx,
			time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, row := range got {
			assert.Equal(t, "run-1", row.RunID)
			assert.Equal(t, "minecraft", row.Term)
		}
	})

	t.Run("empty window", func(t *testing.T) {
		got, err := f.store.GetRecords(ctx,
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestHistoryStore_GetRegionRecords(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	observedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, f.store.Add(ctx, "run-1", sampleRows("run-1", observedAt)))

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	t.Run("filters by region code", func(t *testing.T) {
		got, err := f.store.GetRegionRecords(ctx, []string{"BR"}, start, end)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Brazil", got[0].RegionName)
	})

	t.Run("empty region list short-circuits", func(t *testing.T) {
		got, err := f.store.GetRegionRecords(ctx, nil, start, end)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestHistoryStore_GetRunStats(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		stats, err := f.store.GetRunStats(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.RecordsCount)
		assert.Nil(t, stats.FirstRecordTime)
	})

	t.Run("counts and earliest record", func(t *testing.T) {
		observedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, f.store.Add(ctx, "run-1", sampleRows("run-1", observedAt)))

		stats, err := f.store.GetRunStats(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.RecordsCount)
		require.NotNil(t, stats.FirstRecordTime)
		assert.Equal(t, observedAt, stats.FirstRecordTime.UTC())
	})

	t.Run("start time filter", func(t *testing.T) {
		cutoff := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
		stats, err := f.store.GetRunStats(ctx, &cutoff)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.RecordsCount)
	})
}

func TestHistoryStore_BeginRun(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	err := f.store.BeginRun(ctx, "run-1", "latam")
	require.NoError(t, err)

	var grp string
	err = f.db.QueryRow("SELECT grp FROM run_state WHERE run_id = ?", "run-1").Scan(&grp)
	require.NoError(t, err)
	assert.Equal(t, "latam", grp)
}

func TestNewStore_NilDB(t *testing.T) {
	_, err := NewStore(nil)
	require.Error(t, err)
}

func TestHistoryStore_QueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT run_id, observed_at").
		WillReturnError(sql.ErrConnDone)

	s, err := NewStore(db)
	require.NoError(t, err)

	_, err = s.GetRecords(context.Background(),
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query records")

	require.NoError(t, mock.ExpectationsWereMet())
}
