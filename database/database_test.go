package database

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/permitsync/config"
	"github.com/gewnthar/permitsync/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.EnsureSchema(context.Background()))
	return db
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "postgres"}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.EnsureSchema(context.Background()))
	assert.Equal(t, "sqlite", db.Driver())
}

func TestInsertIgnore_ReportsPerRowInsertion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cols := []string{"name", "code"}

	inserted, err := db.InsertIgnore(ctx, "regions", cols, [][]any{
		{"mazowieckie", "14"},
		{"pomorskie", "22"},
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true}, inserted)

	inserted, err = db.InsertIgnore(ctx, "regions", cols, [][]any{
		{"pomorskie", "22"},
		{"lubelskie", "06"},
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, inserted)

	n, err := db.CountRows(ctx, "regions")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestInsertIgnore_NonUniquenessErrorsAreFatal(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// region_id 999 does not exist
	_, err := db.InsertIgnore(ctx, "locations",
		[]string{"longitude", "latitude", "region_id", "city", "address"},
		[][]any{{21.0, 52.2, 999, "", ""}})
	require.Error(t, err)

	n, err := db.CountRows(ctx, "locations")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInsertIgnore_ColumnMismatch(t *testing.T) {
	db := newTestDB(t)
	_, err := db.InsertIgnore(context.Background(), "regions", []string{"name", "code"}, [][]any{{"x"}})
	assert.Error(t, err)
}

func TestSelectByKeys_CompositeKeys(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cols := []string{"rat", "value", "duplex"}

	_, err := db.InsertIgnore(ctx, "bands", cols, [][]any{
		{"LTE", 800, ""},
		{"LTE", 1800, ""},
		{"GSM", 900, ""},
	})
	require.NoError(t, err)

	type bandRow struct {
		id     int64
		rat    string
		value  int
		duplex string
	}
	var got []bandRow
	err = db.SelectByKeys(ctx, "bands", cols, [][]any{
		{"LTE", 1800, ""},
		{"GSM", 900, ""},
		{"NR", 3500, ""},
	}, func(s Scanner) error {
		var r bandRow
		if err := s.Scan(&r.id, &r.rat, &r.value, &r.duplex); err != nil {
			return err
		}
		got = append(got, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, r := range got {
		assert.NotZero(t, r.id)
		assert.Contains(t, []string{"LTE1800", "GSM900"}, r.rat+itoa(r.value))
	}
}

func TestSelectByKeys_BatchesLargeKeySets(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rows := make([][]any, 0, selectBatchSize+50)
	for i := range selectBatchSize + 50 {
		rows = append(rows, []any{i + 1, "op"})
	}
	_, err := db.InsertIgnore(ctx, "operators", []string{"mnc", "name"}, rows)
	require.NoError(t, err)

	keys := make([][]any, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, []any{r[0]})
	}
	count := 0
	err = db.SelectByKeys(ctx, "operators", []string{"mnc"}, keys, func(s Scanner) error {
		var id int64
		var mnc int
		count++
		return s.Scan(&id, &mnc)
	})
	require.NoError(t, err)
	assert.Equal(t, len(rows), count)
}

func TestImportRuns_LatestSuccessful(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	run, err := db.LatestSuccessfulRun(ctx, "permits")
	require.NoError(t, err)
	assert.Nil(t, run)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.AppendImportRun(ctx, models.ImportRun{
		RunID: "a", ImportType: "permits", Fingerprint: `["x"]`, Status: models.ImportStatusSuccess, CreatedAt: base,
	}))
	require.NoError(t, db.AppendImportRun(ctx, models.ImportRun{
		RunID: "b", ImportType: "permits", Fingerprint: `["y"]`, Status: models.ImportStatusSuccess, CreatedAt: base.Add(time.Hour),
	}))
	require.NoError(t, db.AppendImportRun(ctx, models.ImportRun{
		RunID: "c", ImportType: "permits", Fingerprint: `["z"]`, Status: models.ImportStatusFailed, CreatedAt: base.Add(2 * time.Hour),
	}))
	require.NoError(t, db.AppendImportRun(ctx, models.ImportRun{
		RunID: "d", ImportType: "stations", Fingerprint: `["s"]`, Status: models.ImportStatusSuccess, CreatedAt: base.Add(3 * time.Hour),
	}))

	run, err = db.LatestSuccessfulRun(ctx, "permits")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "b", run.RunID)
	assert.Equal(t, `["y"]`, run.Fingerprint)

	runs, err := db.ImportRuns(ctx, "permits", 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "c", runs[0].RunID)
}

func itoa(v int) string {
	return fmt.Sprint(v)
}
