// database/upsert_store.go
package database

import (
	"context"
	"fmt"
	"strings"
)

// selectBatchSize bounds the number of key tuples bound into one SELECT.
const selectBatchSize = 500

// InsertIgnore inserts rows into table inside a single transaction. A row that
// collides with an existing unique key is left untouched. The returned slice
// reports, per input row, whether the row was actually inserted.
func (db *DB) InsertIgnore(ctx context.Context, table string, columns []string, rows [][]any) ([]bool, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for %s: %w", table, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, db.dialect.insertIgnore(table, columns))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert statement for %s: %w", table, err)
	}
	defer stmt.Close()

	inserted := make([]bool, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("insert into %s: row %d has %d values for %d columns", table, i, len(row), len(columns))
		}
		res, err := stmt.ExecContext(ctx, row...)
		if err != nil {
			return nil, fmt.Errorf("failed to insert into %s (row %d): %w", table, i, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read affected rows for %s: %w", table, err)
		}
		inserted[i] = n > 0
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction for %s: %w", table, err)
	}
	return inserted, nil
}

// SelectByKeys queries "id" followed by keyColumns for every row of table whose
// natural key is in keys, calling scan once per returned row.
func (db *DB) SelectByKeys(ctx context.Context, table string, keyColumns []string, keys [][]any, scan func(Scanner) error) error {
	for start := 0; start < len(keys); start += selectBatchSize {
		end := min(start+selectBatchSize, len(keys))
		if err := db.selectBatch(ctx, table, keyColumns, keys[start:end], scan); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) selectBatch(ctx context.Context, table string, keyColumns []string, keys [][]any, scan func(Scanner) error) error {
	args := make([]any, 0, len(keys)*len(keyColumns))
	for i, key := range keys {
		if len(key) != len(keyColumns) {
			return fmt.Errorf("select from %s: key %d has %d values for %d columns", table, i, len(key), len(keyColumns))
		}
		args = append(args, key...)
	}

	query := fmt.Sprintf("SELECT id, %s FROM %s WHERE %s",
		strings.Join(keyColumns, ", "), table, db.dialect.keyFilter(keyColumns, len(keys)))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query %s by natural key: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("failed to scan %s row: %w", table, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating %s rows: %w", table, err)
	}
	return nil
}

// CountRows returns the number of rows in table.
func (db *DB) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return n, nil
}
