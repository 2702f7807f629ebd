// services/import_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/gewnthar/permitsync/config"
	"github.com/gewnthar/permitsync/geo"
	"github.com/gewnthar/permitsync/models"
	"github.com/gewnthar/permitsync/scraper"
	"github.com/gewnthar/permitsync/upsert"
)

// Import types.
const (
	ImportPermits  = "permits"
	ImportStations = "stations"
)

var (
	// ErrUnknownImportType is returned for import types without an ingester or configuration.
	ErrUnknownImportType = errors.New("unknown import type")
	// ErrNoSources is returned when the list page yields no source files.
	ErrNoSources = errors.New("no source files discovered")
)

// RegionResolver places a coordinate in an administrative region. *geo.Resolver satisfies it.
type RegionResolver interface {
	Resolve(lon, lat float64) (geo.Region, bool)
}

// Fetcher downloads one source file and returns its local path.
type Fetcher interface {
	Download(ctx context.Context, href string) (string, error)
}

// DiscoverFunc lists the source files linked from a list page.
type DiscoverFunc func(ctx context.Context, listURL string, operatorKeys []string) ([]models.SourceDescriptor, error)

// OpenRowsFunc opens a downloaded file for row-by-row reading.
type OpenRowsFunc func(path string) (scraper.RowReader, error)

// Summary reports what one import run did.
type Summary struct {
	ImportType    string                   `json:"import_type"`
	RunID         string                   `json:"run_id"`
	UpToDate      bool                     `json:"up_to_date"`
	Sources       int                      `json:"sources"`
	FailedSources int                      `json:"failed_sources"`
	Rows          int                      `json:"rows"`
	Skipped       int                      `json:"skipped"`
	Inserted      int                      `json:"inserted"`
	Stages        map[string]upsert.Result `json:"stages,omitempty"`
}

func (s *Summary) addStage(name string, res upsert.Result) {
	if s.Stages == nil {
		s.Stages = make(map[string]upsert.Result)
	}
	r := s.Stages[name]
	r.Add(res)
	s.Stages[name] = r
}

// Importer runs imports end to end: discovery, staleness check, download,
// row ingestion, and the dependency-ordered upsert cascade.
type Importer struct {
	Store     upsert.Store
	Runs      RunLog
	Resolver  RegionResolver
	Discover  DiscoverFunc
	Fetcher   Fetcher
	OpenRows  OpenRowsFunc
	Logger    *slog.Logger
	Imports   map[string]config.ImportConfig
	Operators []config.OperatorConfig
	NewRunID  func() string
}

// Store is everything the importer needs from the database.
type Store interface {
	upsert.Store
	RunLog
}

// NewImporter wires an Importer from configuration and its collaborators.
func NewImporter(cfg config.Config, store Store, resolver RegionResolver, client *http.Client, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Download.Timeout}
	}
	return &Importer{
		Store:    store,
		Runs:     store,
		Resolver: resolver,
		Discover: func(ctx context.Context, listURL string, keys []string) ([]models.SourceDescriptor, error) {
			return scraper.DiscoverSources(ctx, client, listURL, keys)
		},
		Fetcher:   &scraper.Downloader{Client: client, Dir: cfg.Download.Dir, Logger: logger},
		OpenRows:  scraper.OpenRows,
		Logger:    logger.With("component", "importer"),
		Imports:   cfg.Imports,
		Operators: cfg.Operators,
		NewRunID:  uuid.NewString,
	}
}

// ImportTypes lists the configured import types that have an ingester.
func (im *Importer) ImportTypes() []string {
	var types []string
	for name := range im.Imports {
		if im.ingester(name) != nil {
			types = append(types, name)
		}
	}
	sort.Strings(types)
	return types
}

// run carries the per-run state shared by the ingesters.
type run struct {
	id      string
	logger  *slog.Logger
	writer  *upsert.Writer
	chunk   int
	summary *Summary
}

type ingestFunc func(ctx context.Context, r *run, desc models.SourceDescriptor, rows scraper.RowReader) error

func (im *Importer) ingester(importType string) ingestFunc {
	switch importType {
	case ImportPermits:
		return im.ingestPermits
	case ImportStations:
		return im.ingestStations
	default:
		return nil
	}
}

// Run imports every source currently listed for importType. Unless force is
// set, a run whose sources match the last successful run does nothing. Only
// store and transport failures are returned; row and file problems are logged.
func (im *Importer) Run(ctx context.Context, importType string, force bool) (*Summary, error) {
	imp, ok := im.Imports[importType]
	ingest := im.ingester(importType)
	if !ok || ingest == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownImportType, importType)
	}

	newID := im.NewRunID
	if newID == nil {
		newID = uuid.NewString
	}
	runID := newID()
	logger := im.logger().With("import_type", importType, "run_id", runID)
	summary := &Summary{ImportType: importType, RunID: runID}
	checker := StalenessChecker{Runs: im.Runs}

	logger.Info("import started", "list_url", imp.ListURL, "force", force)
	descs, err := im.Discover(ctx, imp.ListURL, im.operatorKeys())
	if err != nil {
		return summary, fmt.Errorf("failed to discover %s sources: %w", importType, err)
	}
	if len(descs) == 0 {
		return summary, fmt.Errorf("%w at %s", ErrNoSources, imp.ListURL)
	}
	summary.Sources = len(descs)

	if !force {
		upToDate, err := checker.IsUpToDate(ctx, importType, descs)
		if err != nil {
			return summary, err
		}
		if upToDate {
			summary.UpToDate = true
			logger.Info("sources unchanged since last successful run, nothing to do", "sources", len(descs))
			return summary, nil
		}
	}

	chunk := imp.ChunkSize
	if chunk <= 0 {
		chunk = config.DefaultChunkSize
	}
	r := &run{
		id:      runID,
		logger:  logger,
		writer:  upsert.NewWriter(im.Store, logger, 0),
		chunk:   chunk,
		summary: summary,
	}

	for i, desc := range descs {
		if err := ctx.Err(); err != nil {
			return summary, im.fail(ctx, checker, r, descs, fmt.Errorf("import interrupted before source %d of %d: %w", i+1, len(descs), err))
		}
		if err := im.processSource(ctx, r, desc, ingest); err != nil {
			return summary, im.fail(ctx, checker, r, descs, err)
		}
	}

	if err := checker.RecordSuccess(ctx, importType, runID, descs); err != nil {
		return summary, err
	}
	logger.Info(fmt.Sprintf("%s rows processed, %s inserted", humanize.Comma(int64(summary.Rows)), humanize.Comma(int64(summary.Inserted))),
		"sources", summary.Sources, "failed_sources", summary.FailedSources, "skipped", summary.Skipped)
	return summary, nil
}

func (im *Importer) processSource(ctx context.Context, r *run, desc models.SourceDescriptor, ingest ingestFunc) error {
	logger := r.logger.With("source", desc.Href)

	localPath, err := im.Fetcher.Download(ctx, desc.Href)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", desc.Href, err)
	}
	defer func() {
		if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Error("failed to remove temporary file", "path", localPath, "error", err)
		}
	}()

	rows, err := im.OpenRows(localPath)
	if err != nil {
		logger.Error("source file could not be opened, skipping", "file", path.Base(localPath), "error", err)
		r.summary.FailedSources++
		return nil
	}
	defer rows.Close()

	return ingest(ctx, r, desc, rows)
}

// fail records a failed run on a best-effort basis and returns cause.
func (im *Importer) fail(ctx context.Context, checker StalenessChecker, r *run, descs []models.SourceDescriptor, cause error) error {
	r.logger.Error("import failed", "error", cause, "rows", r.summary.Rows, "inserted", r.summary.Inserted)
	if err := checker.RecordFailure(context.WithoutCancel(ctx), r.summary.ImportType, r.id, descs); err != nil {
		r.logger.Error("failed to record failed run", "error", err)
	}
	return cause
}

func (im *Importer) logger() *slog.Logger {
	if im.Logger == nil {
		return slog.Default()
	}
	return im.Logger
}

func (im *Importer) operatorKeys() []string {
	keys := make([]string, 0, len(im.Operators))
	for _, op := range im.Operators {
		keys = append(keys, op.Key)
	}
	return keys
}
