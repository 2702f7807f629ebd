// services/ingest.go
package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gewnthar/permitsync/scraper"
	"github.com/gewnthar/permitsync/utils"
)

// ingestRows streams decoded records from dec, validates each with parse, and
// hands full chunks of valid rows to flush. A chunk is always flushed whole;
// cancellation is only observed between chunks.
func ingestRows[Rec, Row any](
	ctx context.Context,
	r *run,
	logger *slog.Logger,
	dec *scraper.TableDecoder,
	parse func(line int, rec Rec) (Row, bool),
	flush func(ctx context.Context, rows []Row) error,
) error {
	chunk := make([]Row, 0, r.chunk)
	for {
		var rec Rec
		line, err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				r.summary.Rows++
				r.summary.Skipped++
				logger.Warn("row skipped: malformed record", "row", line, "error", err)
				continue
			}
			return fmt.Errorf("failed to read row %d: %w", line, err)
		}

		r.summary.Rows++
		row, ok := parse(line, rec)
		if !ok {
			r.summary.Skipped++
			continue
		}
		chunk = append(chunk, row)

		if len(chunk) >= r.chunk {
			if err := flush(context.WithoutCancel(ctx), chunk); err != nil {
				return err
			}
			chunk = make([]Row, 0, r.chunk)
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("ingestion interrupted after row %d: %w", line, err)
			}
		}
	}
	if len(chunk) > 0 {
		if err := flush(context.WithoutCancel(ctx), chunk); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ingestion interrupted at end of file: %w", err)
	}
	return nil
}

// parseCoordinate accepts the registry's fixed-width DDMMSS form, a full DMS
// token, or a plain decimal number (comma or dot separated).
func parseCoordinate(raw, hemi string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) == 6 && isDigits(raw) {
		return utils.DecimalDegrees(raw, hemi)
	}
	if strings.ContainsAny(raw, "NSEW") {
		v, err := utils.ParseDMS(raw)
		if err != nil {
			return 0, err
		}
		return utils.RoundTo6(v), nil
	}
	limit := 180.0
	if hemi == "N" || hemi == "S" {
		limit = 90
	}
	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.Abs(v) > limit {
		return 0, fmt.Errorf("%w: %q", utils.ErrInvalidCoordinate, raw)
	}
	return utils.RoundTo6(v), nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

var dateLayouts = []string{"2006-01-02", "02.01.2006", "2006-01-02 15:04:05", "01-02-06"}

// parseDate reads an optional date cell; empty input yields nil.
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", raw)
}

// parseInt reads an optional integer cell.
func parseInt(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != float64(int64(f)) {
			return 0, false
		}
		v = int64(f)
	}
	return v, true
}
