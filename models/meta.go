// models/meta.go
package models

import "time"

// SourceDescriptor identifies one external source file found on a list page.
type SourceDescriptor struct {
	Href        string `json:"href"`
	Text        string `json:"text"`
	OperatorKey string `json:"operator_key,omitempty"` // set when the file name names an operator
}

// Import run statuses. Only successful runs take part in staleness checks.
const (
	ImportStatusSuccess = "success"
	ImportStatusFailed  = "failed"
)

// ImportRun is one append-only entry of the import log.
type ImportRun struct {
	ID          int64     `db:"id" json:"id"`
	RunID       string    `db:"run_id" json:"run_id"`
	ImportType  string    `db:"import_type" json:"import_type"`
	Fingerprint string    `db:"fingerprint" json:"fingerprint"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
