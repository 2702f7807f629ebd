// scraper/table.go
package scraper

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/gewnthar/permitsync/utils"
)

// ErrMissingColumns is returned when a source header lacks required columns.
var ErrMissingColumns = errors.New("required columns missing")

// Columns maps normalized header labels onto canonical field names, and lists
// which canonical fields a file must carry.
type Columns struct {
	Aliases  map[string]string // utils.NormalizeLabel(label) -> canonical name
	Required []string
}

// TableDecoder decodes the data rows of a RowReader into structs tagged with
// canonical `csv` names, whatever the source's own header labels are.
type TableDecoder struct {
	rows   *paddedRows
	dec    *csvutil.Decoder
	header []string
}

// NewTableDecoder consumes the header row of r and prepares a decoder for the
// remaining rows. Unknown and repeated columns are ignored.
func NewTableDecoder(r RowReader, cols Columns) (*TableDecoder, error) {
	raw, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("source has no header row: %w", io.ErrUnexpectedEOF)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	header := CanonicalHeader(raw, cols.Aliases)
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, req := range cols.Required {
		if !present[req] {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	padded := &paddedRows{src: r, width: len(header), line: 1}
	dec, err := csvutil.NewDecoder(padded, header...)
	if err != nil {
		return nil, fmt.Errorf("failed to create row decoder: %w", err)
	}
	return &TableDecoder{rows: padded, dec: dec, header: header}, nil
}

// Header returns the canonical header, with "_unused_<i>" for ignored columns.
func (t *TableDecoder) Header() []string {
	return t.header
}

// Decode decodes the next data row into v and returns its 1-based line number
// in the source (the header is line 1). It returns io.EOF after the last row.
func (t *TableDecoder) Decode(v any) (int, error) {
	err := t.dec.Decode(v)
	return t.rows.line, err
}

// CanonicalHeader maps raw header labels to canonical names. The first column
// matching a canonical name keeps it; later duplicates and unknown labels are
// renamed so csvutil never sees two columns with the same name.
func CanonicalHeader(raw []string, aliases map[string]string) []string {
	header := make([]string, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, label := range raw {
		name, ok := aliases[utils.NormalizeLabel(label)]
		if !ok || seen[name] {
			header[i] = fmt.Sprintf("_unused_%d", i)
			continue
		}
		seen[name] = true
		header[i] = name
	}
	return header
}

// paddedRows normalizes every record to the header width; spreadsheet rows
// drop trailing empty cells and hand-edited CSVs are often ragged.
type paddedRows struct {
	src   RowReader
	width int
	line  int
}

func (p *paddedRows) Read() ([]string, error) {
	for {
		rec, err := p.src.Read()
		if err != nil {
			return nil, err
		}
		p.line++
		if isBlank(rec) {
			continue
		}
		switch {
		case len(rec) < p.width:
			rec = append(rec, make([]string, p.width-len(rec))...)
		case len(rec) > p.width:
			rec = rec[:p.width]
		}
		return rec, nil
	}
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
