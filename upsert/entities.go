package upsert

import (
	"database/sql"
	"fmt"

	"github.com/gewnthar/permitsync/database"
	"github.com/gewnthar/permitsync/models"
)

var Regions = Entity[models.Region, string]{
	Name:       "region",
	Table:      "regions",
	Columns:    []string{"name", "code"},
	KeyColumns: []string{"name"},
	Key:        func(r models.Region) string { return r.Name },
	Values:     func(r models.Region) []any { return []any{r.Name, r.Code} },
	KeyValues:  func(k string) []any { return []any{k} },
	ScanKey: func(s database.Scanner) (int64, string, error) {
		var id int64
		var name string
		err := s.Scan(&id, &name)
		return id, name, err
	},
	Describe: func(r models.Region) []any { return []any{"code", r.Code} },
}

var Operators = Entity[models.Operator, int]{
	Name:       "operator",
	Table:      "operators",
	Columns:    []string{"mnc", "name"},
	KeyColumns: []string{"mnc"},
	Key:        func(o models.Operator) int { return o.MNC },
	Values:     func(o models.Operator) []any { return []any{o.MNC, o.Name} },
	KeyValues:  func(k int) []any { return []any{k} },
	ScanKey: func(s database.Scanner) (int64, int, error) {
		var id int64
		var mnc int
		err := s.Scan(&id, &mnc)
		return id, mnc, err
	},
	Describe: func(o models.Operator) []any { return []any{"name", o.Name} },
}

// Locations are keyed on coordinates. Values are written from the key so the
// stored numbers match the ones used by the re-query exactly.
var Locations = Entity[models.Location, models.LocationKey]{
	Name:       "location",
	Table:      "locations",
	Columns:    []string{"longitude", "latitude", "region_id", "city", "address"},
	KeyColumns: []string{"longitude", "latitude"},
	Key:        models.Location.Key,
	Values: func(l models.Location) []any {
		lon, lat := l.Key().Degrees()
		return []any{lon, lat, l.RegionID, l.City, l.Address}
	},
	KeyValues: func(k models.LocationKey) []any {
		lon, lat := k.Degrees()
		return []any{lon, lat}
	},
	ScanKey: func(s database.Scanner) (int64, models.LocationKey, error) {
		var id int64
		var lon, lat float64
		err := s.Scan(&id, &lon, &lat)
		return id, models.NewLocationKey(lon, lat), err
	},
	Describe: func(l models.Location) []any {
		return []any{"city", l.City, "address", l.Address, "region_id", l.RegionID}
	},
}

var Stations = Entity[models.Station, models.StationKey]{
	Name:       "station",
	Table:      "stations",
	Columns:    []string{"station_id", "operator_id", "location_id"},
	KeyColumns: []string{"station_id", "operator_id"},
	Key: func(s models.Station) models.StationKey {
		return models.StationKey{StationID: s.StationID, OperatorID: s.OperatorID}
	},
	Values: func(s models.Station) []any { return []any{s.StationID, s.OperatorID, s.LocationID} },
	KeyValues: func(k models.StationKey) []any {
		return []any{k.StationID, k.OperatorID}
	},
	ScanKey: func(s database.Scanner) (int64, models.StationKey, error) {
		var id int64
		var k models.StationKey
		err := s.Scan(&id, &k.StationID, &k.OperatorID)
		return id, k, err
	},
	Describe: func(s models.Station) []any { return []any{"location_id", s.LocationID} },
}

var Bands = Entity[models.Band, models.BandRef]{
	Name:       "band",
	Table:      "bands",
	Columns:    []string{"rat", "value", "duplex"},
	KeyColumns: []string{"rat", "value", "duplex"},
	Key:        models.Band.Ref,
	Values:     func(b models.Band) []any { return []any{string(b.RAT), b.Value, b.Duplex} },
	KeyValues: func(k models.BandRef) []any {
		return []any{string(k.RAT), k.Value, k.Duplex}
	},
	ScanKey: func(s database.Scanner) (int64, models.BandRef, error) {
		var id int64
		var rat string
		var k models.BandRef
		err := s.Scan(&id, &rat, &k.Value, &k.Duplex)
		k.RAT = models.RAT(rat)
		return id, k, err
	},
}

var Cells = Entity[models.Cell, models.CellRef]{
	Name:       "cell",
	Table:      "cells",
	Columns:    []string{"station_id", "band_id", "rat", "cell_key"},
	KeyColumns: []string{"station_id", "band_id", "cell_key"},
	Key: func(c models.Cell) models.CellRef {
		return models.CellRef{StationID: c.StationID, BandID: c.BandID, CellKey: c.CellKey}
	},
	Values: func(c models.Cell) []any { return []any{c.StationID, c.BandID, string(c.RAT), c.CellKey} },
	KeyValues: func(k models.CellRef) []any {
		return []any{k.StationID, k.BandID, k.CellKey}
	},
	ScanKey: func(s database.Scanner) (int64, models.CellRef, error) {
		var id int64
		var k models.CellRef
		err := s.Scan(&id, &k.StationID, &k.BandID, &k.CellKey)
		return id, k, err
	},
	Describe: func(c models.Cell) []any { return []any{"rat", string(c.RAT)} },
}

var GSMCells = Entity[models.GSMCell, models.IDPair]{
	Name:       "gsm_cell",
	Table:      "gsm_cells",
	Columns:    []string{"cell_id", "lac", "cid"},
	KeyColumns: []string{"lac", "cid"},
	Key:        func(c models.GSMCell) models.IDPair { return models.IDPair{A: int64(c.LAC), B: int64(c.CID)} },
	Values:     func(c models.GSMCell) []any { return []any{c.CellID, c.LAC, c.CID} },
	KeyValues:  pairValues,
	ScanKey:    scanPair,
	Describe:   func(c models.GSMCell) []any { return []any{"cell_id", c.CellID} },
}

var UMTSCells = Entity[models.UMTSCell, models.IDPair]{
	Name:       "umts_cell",
	Table:      "umts_cells",
	Columns:    []string{"cell_id", "lac", "rnc", "cid"},
	KeyColumns: []string{"rnc", "cid"},
	Key:        func(c models.UMTSCell) models.IDPair { return models.IDPair{A: int64(c.RNC), B: int64(c.CID)} },
	Values:     func(c models.UMTSCell) []any { return []any{c.CellID, c.LAC, c.RNC, c.CID} },
	KeyValues:  pairValues,
	ScanKey:    scanPair,
	Describe:   func(c models.UMTSCell) []any { return []any{"cell_id", c.CellID, "lac", c.LAC} },
}

var LTECells = Entity[models.LTECell, models.IDPair]{
	Name:       "lte_cell",
	Table:      "lte_cells",
	Columns:    []string{"cell_id", "tac", "enbid", "clid"},
	KeyColumns: []string{"enbid", "clid"},
	Key:        func(c models.LTECell) models.IDPair { return models.IDPair{A: int64(c.ENBID), B: int64(c.CLID)} },
	Values:     func(c models.LTECell) []any { return []any{c.CellID, c.TAC, c.ENBID, c.CLID} },
	KeyValues:  pairValues,
	ScanKey:    scanPair,
	Describe:   func(c models.LTECell) []any { return []any{"cell_id", c.CellID, "tac", c.TAC} },
}

var NRCells = Entity[models.NRCell, models.IDPair]{
	Name:       "nr_cell",
	Table:      "nr_cells",
	Columns:    []string{"cell_id", "tac", "gnbid", "clid"},
	KeyColumns: []string{"gnbid", "clid"},
	Key:        func(c models.NRCell) models.IDPair { return models.IDPair{A: c.GNBID, B: int64(c.CLID)} },
	Values:     func(c models.NRCell) []any { return []any{c.CellID, c.TAC, c.GNBID, c.CLID} },
	KeyValues:  pairValues,
	ScanKey:    scanPair,
	Describe:   func(c models.NRCell) []any { return []any{"cell_id", c.CellID, "tac", c.TAC} },
}

var Permits = Entity[models.Permit, models.PermitKey]{
	Name:       "permit",
	Table:      "permits",
	Columns:    []string{"operator_id", "station_id", "location_id", "band_id", "decision_number", "decision_type", "expiry_date", "source_file"},
	KeyColumns: []string{"operator_id", "station_id", "band_id", "decision_number"},
	Key:        models.Permit.Key,
	Values: func(p models.Permit) []any {
		var expiry sql.NullTime
		if p.ExpiryDate != nil {
			expiry = sql.NullTime{Time: *p.ExpiryDate, Valid: true}
		}
		return []any{p.OperatorID, p.StationID, p.LocationID, p.BandID, p.DecisionNumber, p.DecisionType, expiry, p.SourceFile}
	},
	KeyValues: func(k models.PermitKey) []any {
		return []any{k.OperatorID, k.StationID, k.BandID, k.DecisionNumber}
	},
	ScanKey: func(s database.Scanner) (int64, models.PermitKey, error) {
		var id int64
		var k models.PermitKey
		err := s.Scan(&id, &k.OperatorID, &k.StationID, &k.BandID, &k.DecisionNumber)
		return id, k, err
	},
	Describe: func(p models.Permit) []any {
		return []any{"decision_type", p.DecisionType, "location_id", p.LocationID, "source_file", p.SourceFile}
	},
}

func pairValues(k models.IDPair) []any {
	return []any{k.A, k.B}
}

func scanPair(s database.Scanner) (int64, models.IDPair, error) {
	var id int64
	var k models.IDPair
	err := s.Scan(&id, &k.A, &k.B)
	return id, k, err
}

// CellKey builds the distinguishing part of a cell's natural key from its
// technology identifiers.
func CellKey(rat models.RAT, a, b int64) string {
	return fmt.Sprintf("%s:%d:%d", rat, a, b)
}
