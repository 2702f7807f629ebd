// services/staleness.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/gewnthar/permitsync/models"
)

// RunLog is the append-only import history. *database.DB satisfies it.
type RunLog interface {
	LatestSuccessfulRun(ctx context.Context, importType string) (*models.ImportRun, error)
	AppendImportRun(ctx context.Context, run models.ImportRun) error
}

// Fingerprint canonicalizes a set of source descriptors into a JSON array of
// their hrefs, sorted, so that page order does not matter.
func Fingerprint(descs []models.SourceDescriptor) string {
	hrefs := make([]string, 0, len(descs))
	for _, d := range descs {
		hrefs = append(hrefs, d.Href)
	}
	sort.Strings(hrefs)
	b, _ := json.Marshal(hrefs) // a []string always marshals
	return string(b)
}

// StalenessChecker decides whether the discovered sources were already
// imported by comparing fingerprints with the last successful run.
type StalenessChecker struct {
	Runs RunLog
	Now  func() time.Time
}

// IsUpToDate reports whether the newest successful run of importType has the
// same fingerprint as descs.
func (c StalenessChecker) IsUpToDate(ctx context.Context, importType string, descs []models.SourceDescriptor) (bool, error) {
	last, err := c.Runs.LatestSuccessfulRun(ctx, importType)
	if err != nil {
		return false, fmt.Errorf("failed to load last %s run: %w", importType, err)
	}
	if last == nil {
		return false, nil
	}
	return last.Fingerprint == Fingerprint(descs), nil
}

// RecordSuccess appends a successful run with the fingerprint of descs.
func (c StalenessChecker) RecordSuccess(ctx context.Context, importType, runID string, descs []models.SourceDescriptor) error {
	return c.record(ctx, importType, runID, descs, models.ImportStatusSuccess)
}

// RecordFailure appends a failed run. Failed runs never satisfy IsUpToDate.
func (c StalenessChecker) RecordFailure(ctx context.Context, importType, runID string, descs []models.SourceDescriptor) error {
	return c.record(ctx, importType, runID, descs, models.ImportStatusFailed)
}

func (c StalenessChecker) record(ctx context.Context, importType, runID string, descs []models.SourceDescriptor, status string) error {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return c.Runs.AppendImportRun(ctx, models.ImportRun{
		RunID:       runID,
		ImportType:  importType,
		Fingerprint: Fingerprint(descs),
		Status:      status,
		CreatedAt:   now().UTC(),
	})
}
