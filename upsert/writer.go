// Package upsert writes entity batches into the relational store without
// overwriting existing rows and hands back natural-key to id maps for the
// stages that depend on them.
package upsert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gewnthar/permitsync/database"
	"github.com/gewnthar/permitsync/utils"
)

// Store is the persistence surface the writer needs. *database.DB satisfies it.
type Store interface {
	InsertIgnore(ctx context.Context, table string, columns []string, rows [][]any) ([]bool, error)
	SelectByKeys(ctx context.Context, table string, keyColumns []string, keys [][]any, scan func(database.Scanner) error) error
}

// IDMap maps natural keys to database ids.
type IDMap[K comparable] map[K]int64

// Entity describes how one entity type is keyed, stored, and read back.
type Entity[T any, K comparable] struct {
	Name       string
	Table      string
	Columns    []string
	KeyColumns []string

	Key       func(T) K
	Values    func(T) []any // ordered as Columns
	KeyValues func(K) []any // ordered as KeyColumns
	ScanKey   func(database.Scanner) (int64, K, error)

	// Describe returns slog attributes identifying a skipped row.
	Describe func(T) []any
}

// Result counts what a Write did.
type Result struct {
	Candidates int // rows left after deduplication
	Inserted   int
	Skipped    int // already present, left untouched
	Resolved   int // keys found by the re-query
}

// Add accumulates r2 into r.
func (r *Result) Add(r2 Result) {
	r.Candidates += r2.Candidates
	r.Inserted += r2.Inserted
	r.Skipped += r2.Skipped
	r.Resolved += r2.Resolved
}

// ProgressFunc is called after every chunk with the rows processed so far.
type ProgressFunc func(entity string, done, total int)

// Writer performs staged upserts against a Store. It is safe for concurrent use
// as long as the Store is.
type Writer struct {
	Store      Store
	Logger     *slog.Logger
	ChunkSize  int // 0 writes all candidates in one chunk
	OnProgress ProgressFunc
}

// NewWriter returns a Writer with the given chunk size.
func NewWriter(store Store, logger *slog.Logger, chunkSize int) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{Store: store, Logger: logger, ChunkSize: chunkSize}
}

// Write inserts rows that do not exist yet and returns the id of every
// candidate key, whether it was inserted now or already present. Each row
// skipped because its key already exists is logged once at WARN level.
func Write[T any, K comparable](ctx context.Context, w *Writer, e Entity[T, K], rows []T) (IDMap[K], Result, error) {
	candidates := utils.DedupeBy(rows, e.Key)
	res := Result{Candidates: len(candidates)}
	ids := make(IDMap[K], len(candidates))
	if len(candidates) == 0 {
		return ids, res, nil
	}

	size := w.ChunkSize
	if size <= 0 {
		size = len(candidates)
	}

	for start := 0; start < len(candidates); start += size {
		if err := ctx.Err(); err != nil {
			return nil, res, fmt.Errorf("%s upsert interrupted: %w", e.Name, err)
		}
		end := min(start+size, len(candidates))
		chunk := candidates[start:end]

		values := make([][]any, len(chunk))
		for i, row := range chunk {
			values[i] = e.Values(row)
		}
		inserted, err := w.Store.InsertIgnore(ctx, e.Table, e.Columns, values)
		if err != nil {
			return nil, res, fmt.Errorf("failed to write %s rows: %w", e.Name, err)
		}

		for i, ok := range inserted {
			if ok {
				res.Inserted++
				continue
			}
			res.Skipped++
			w.logSkipped(e.Name, fmt.Sprint(e.Key(chunk[i])), describe(e, chunk[i]))
		}

		if w.OnProgress != nil {
			w.OnProgress(e.Name, end, len(candidates))
		}
	}

	keys := make([][]any, len(candidates))
	for i, row := range candidates {
		keys[i] = e.KeyValues(e.Key(row))
	}
	err := w.Store.SelectByKeys(ctx, e.Table, e.KeyColumns, keys, func(s database.Scanner) error {
		id, k, err := e.ScanKey(s)
		if err != nil {
			return err
		}
		ids[k] = id
		return nil
	})
	if err != nil {
		return nil, res, fmt.Errorf("failed to resolve %s ids: %w", e.Name, err)
	}
	res.Resolved = len(ids)

	if res.Resolved < res.Candidates {
		w.logger().Warn("some keys were not found after insert",
			"entity", e.Name, "candidates", res.Candidates, "resolved", res.Resolved)
	}
	w.logger().Debug("upsert stage complete",
		"entity", e.Name, "candidates", res.Candidates, "inserted", res.Inserted, "skipped", res.Skipped)
	return ids, res, nil
}

func (w *Writer) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}

func (w *Writer) logSkipped(entity, key string, attrs []any) {
	args := append([]any{"entity", entity, "key", key}, attrs...)
	w.logger().Warn("row already exists, not updated", args...)
}

func describe[T any, K comparable](e Entity[T, K], row T) []any {
	if e.Describe == nil {
		return nil
	}
	return e.Describe(row)
}

// Resolve maps rows onto their foreign keys. fn returns the resolved value, or
// false together with slog attributes naming the missing dependency; such rows
// are dropped and logged once each.
func Resolve[T, R any](logger *slog.Logger, stage string, rows []T, fn func(T) (R, []any, bool)) []R {
	out := make([]R, 0, len(rows))
	for _, row := range rows {
		r, missing, ok := fn(row)
		if !ok {
			args := append([]any{"stage", stage}, missing...)
			logger.Warn("dependency not resolved, row dropped", args...)
			continue
		}
		out = append(out, r)
	}
	return out
}
