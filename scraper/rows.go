// scraper/rows.go
package scraper

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// ErrUnsupportedFormat is returned by OpenRows for file types it cannot read.
var ErrUnsupportedFormat = errors.New("unsupported source file format")

// RowReader yields the raw cells of a tabular source file one row at a time.
// Read returns io.EOF after the last row.
type RowReader interface {
	Read() ([]string, error)
	Close() error
}

// OpenRows opens a downloaded source file by extension. Spreadsheets are read
// from their first sheet; CSV files may be comma or semicolon separated and
// UTF-8 or Windows-1250 encoded.
func OpenRows(path string) (RowReader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return openXLSX(path)
	case ".csv", ".txt":
		return openCSV(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
}

type xlsxRows struct {
	file *excelize.File
	rows *excelize.Rows
}

func openXLSX(path string) (*xlsxRows, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w", path, err)
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, fmt.Errorf("spreadsheet %s has no sheets", path)
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheets[0], path, err)
	}
	return &xlsxRows{file: f, rows: rows}, nil
}

func (x *xlsxRows) Read() ([]string, error) {
	if !x.rows.Next() {
		if err := x.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return x.rows.Columns()
}

func (x *xlsxRows) Close() error {
	rowsErr := x.rows.Close()
	if err := x.file.Close(); err != nil {
		return err
	}
	return rowsErr
}

type csvRows struct {
	file   *os.File
	reader *csv.Reader
}

// sniffSize is how much of a CSV file is inspected to pick the delimiter and encoding.
const sniffSize = 64 * 1024

func openCSV(path string) (*csvRows, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv %s: %w", path, err)
	}

	br := bufio.NewReaderSize(f, sniffSize)
	head, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		f.Close()
		return nil, fmt.Errorf("failed to read csv %s: %w", path, err)
	}

	var src io.Reader = br
	if bytes.HasPrefix(head, []byte("\xef\xbb\xbf")) {
		br.Discard(3)
		head = head[3:]
	} else if !utf8.Valid(completeLines(head)) {
		src = charmap.Windows1250.NewDecoder().Reader(br)
	}

	r := csv.NewReader(src)
	r.Comma = sniffDelimiter(head)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.ReuseRecord = false
	return &csvRows{file: f, reader: r}, nil
}

func (c *csvRows) Read() ([]string, error) {
	return c.reader.Read()
}

func (c *csvRows) Close() error {
	return c.file.Close()
}

// completeLines drops a trailing partial line so a multi-byte rune cut by the
// peek window is not mistaken for invalid UTF-8.
func completeLines(b []byte) []byte {
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		return b[:i+1]
	}
	return b
}

func sniffDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}
