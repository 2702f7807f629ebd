// database/import_run_store.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gewnthar/permitsync/models"
)

// AppendImportRun records one import attempt. Runs are never updated; the
// newest successful row per import type is the current fingerprint.
func (db *DB) AppendImportRun(ctx context.Context, run models.ImportRun) error {
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO import_runs (run_id, import_type, fingerprint, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.RunID, run.ImportType, run.Fingerprint, run.Status, createdAt)
	if err != nil {
		db.logger.Error("failed to record import run", "import_type", run.ImportType, "run_id", run.RunID, "error", err)
		return fmt.Errorf("failed to record import run for %s: %w", run.ImportType, err)
	}

	db.logger.Debug("recorded import run", "import_type", run.ImportType, "run_id", run.RunID, "status", run.Status)
	return nil
}

// LatestSuccessfulRun returns the newest successful run of importType, or nil
// when there is none.
func (db *DB) LatestSuccessfulRun(ctx context.Context, importType string) (*models.ImportRun, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, run_id, import_type, fingerprint, status, created_at
		FROM import_runs
		WHERE import_type = ? AND status = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, importType, models.ImportStatusSuccess)

	run, err := scanImportRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest %s import run: %w", importType, err)
	}
	return &run, nil
}

// ImportRuns lists the most recent runs of importType, newest first.
func (db *DB) ImportRuns(ctx context.Context, importType string, limit int) ([]models.ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, run_id, import_type, fingerprint, status, created_at
		FROM import_runs
		WHERE import_type = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, importType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query import runs: %w", err)
	}
	defer rows.Close()

	var runs []models.ImportRun
	for rows.Next() {
		run, err := scanImportRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating import runs: %w", err)
	}
	return runs, nil
}

func scanImportRun(s Scanner) (models.ImportRun, error) {
	var run models.ImportRun
	err := s.Scan(&run.ID, &run.RunID, &run.ImportType, &run.Fingerprint, &run.Status, &run.CreatedAt)
	return run, err
}
