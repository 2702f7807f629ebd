package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/permitsync/config"
	"github.com/gewnthar/permitsync/database"
	"github.com/gewnthar/permitsync/geo"
	"github.com/gewnthar/permitsync/models"
	"github.com/gewnthar/permitsync/scraper"
)

func square(minLon, minLat, maxLon, maxLat float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}}
}

func testResolver() *geo.Resolver {
	return geo.NewResolver([]geo.RegionPolygon{
		{Region: geo.Region{Code: "22", Name: "pomorskie"}, Polygon: square(17, 53.5, 19.5, 55)},
		{Region: geo.Region{Code: "14", Name: "mazowieckie"}, Polygon: square(19.5, 51, 23, 53.5)},
	}, nil)
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "services.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.EnsureSchema(context.Background()))
	return db
}

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// records returns the captured JSON records with the given message.
func (b *logBuffer) records(msg string) []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(b.buf.Bytes()))
	for sc.Scan() {
		var rec map[string]any
		if json.Unmarshal(sc.Bytes(), &rec) == nil && rec["msg"] == msg {
			out = append(out, rec)
		}
	}
	return out
}

func newLogger() (*slog.Logger, *logBuffer) {
	lb := &logBuffer{}
	return slog.New(slog.NewJSONHandler(lb, &slog.HandlerOptions{Level: slog.LevelDebug})), lb
}

// fakeFetcher serves file bodies from memory and counts downloads.
type fakeFetcher struct {
	t     *testing.T
	files map[string][]byte
	mu    sync.Mutex
	calls int
}

func (f *fakeFetcher) Download(_ context.Context, href string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	body, ok := f.files[href]
	if !ok {
		return "", fmt.Errorf("no such file: %s", href)
	}
	out, err := os.CreateTemp(f.t.TempDir(), "src-*"+path.Ext(href))
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := out.Write(body); err != nil {
		return "", err
	}
	return out.Name(), nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var testOperators = []config.OperatorConfig{
	{Key: "orange", MNC: 3, Name: "Orange"},
	{Key: "plus", MNC: 1, Name: "Plus"},
}

func newTestImporter(t *testing.T, store Store, descs []models.SourceDescriptor, files map[string][]byte, chunk int) (*Importer, *fakeFetcher, *logBuffer) {
	t.Helper()
	logger, logs := newLogger()
	fetcher := &fakeFetcher{t: t, files: files}
	ids := 0
	im := &Importer{
		Store:    store,
		Runs:     store,
		Resolver: testResolver(),
		Discover: func(context.Context, string, []string) ([]models.SourceDescriptor, error) {
			return descs, nil
		},
		Fetcher:  fetcher,
		OpenRows: scraper.OpenRows,
		Logger:   logger,
		Imports: map[string]config.ImportConfig{
			ImportPermits:  {ListURL: "https://registry.example.test/permits", ChunkSize: chunk},
			ImportStations: {ListURL: "https://registry.example.test/stations", ChunkSize: chunk},
		},
		Operators: testOperators,
		NewRunID: func() string {
			ids++
			return fmt.Sprintf("run-%d", ids)
		},
	}
	return im, fetcher, logs
}

func countRows(t *testing.T, db *database.DB, table string) int64 {
	t.Helper()
	n, err := db.CountRows(context.Background(), table)
	require.NoError(t, err)
	return n
}
