package scraper

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceRows struct {
	rows [][]string
}

func (s *sliceRows) Read() ([]string, error) {
	if len(s.rows) == 0 {
		return nil, io.EOF
	}
	rec := s.rows[0]
	s.rows = s.rows[1:]
	return rec, nil
}

func (s *sliceRows) Close() error { return nil }

var testColumns = Columns{
	Aliases: map[string]string{
		"idstacji":          "station_id",
		"id stacji":         "station_id",
		"dl geogr stacji":   "longitude",
		"szer geogr stacji": "latitude",
		"miejscowosc":       "city",
	},
	Required: []string{"station_id", "longitude", "latitude"},
}

type testRecord struct {
	StationID string `csv:"station_id"`
	Longitude string `csv:"longitude"`
	Latitude  string `csv:"latitude"`
	City      string `csv:"city"`
}

func TestCanonicalHeader(t *testing.T) {
	header := CanonicalHeader([]string{"IdStacji", "Uwagi", "Id stacji", "Dł. geogr. stacji"}, testColumns.Aliases)
	assert.Equal(t, []string{"station_id", "_unused_1", "_unused_2", "longitude"}, header)
}

func TestTableDecoder_DecodesPaddedRows(t *testing.T) {
	src := &sliceRows{rows: [][]string{
		{"Miejscowość", "IdStacji", "Dł geogr stacji", "Szer geogr stacji", "Uwagi"},
		{"Gdańsk", "GDA001", "183843", "542108", "x"},
		{"", "", "", ""},
		{"Sopot", "GDA002", "183400"},
		{"Gdynia", "GDA003", "183200", "543000", "y", "extra"},
	}}

	dec, err := NewTableDecoder(src, testColumns)
	require.NoError(t, err)

	var got []testRecord
	var lines []int
	for {
		var rec testRecord
		line, err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, rec)
		lines = append(lines, line)
	}

	require.Len(t, got, 3)
	assert.Equal(t, testRecord{StationID: "GDA001", Longitude: "183843", Latitude: "542108", City: "Gdańsk"}, got[0])
	assert.Equal(t, testRecord{StationID: "GDA002", Longitude: "183400", City: "Sopot"}, got[1])
	assert.Equal(t, "GDA003", got[2].StationID)
	assert.Equal(t, []int{2, 4, 5}, lines)
}

func TestTableDecoder_MissingRequiredColumns(t *testing.T) {
	src := &sliceRows{rows: [][]string{{"IdStacji", "Miejscowość"}}}
	_, err := NewTableDecoder(src, testColumns)
	require.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "longitude")
	assert.Contains(t, err.Error(), "latitude")
}

func TestTableDecoder_EmptySource(t *testing.T) {
	_, err := NewTableDecoder(&sliceRows{}, testColumns)
	assert.Error(t, err)
}
