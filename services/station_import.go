// services/station_import.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gewnthar/permitsync/models"
	"github.com/gewnthar/permitsync/scraper"
	"github.com/gewnthar/permitsync/upsert"
	"github.com/gewnthar/permitsync/utils"
)

var stationColumns = scraper.Columns{
	Aliases: map[string]string{
		"mnc":               "mnc",
		"siec":              "operator",
		"operator":          "operator",
		"idstacji":          "station_id",
		"id stacji":         "station_id",
		"station id":        "station_id",
		"stationid":         "station_id",
		"longitude":         "longitude",
		"lon":               "longitude",
		"dl geogr stacji":   "longitude",
		"latitude":          "latitude",
		"lat":               "latitude",
		"szer geogr stacji": "latitude",
		"wojewodztwo":       "region",
		"miejscowosc":       "city",
		"lokalizacja":       "address",
		"standard":          "system_type",
		"typ systemu":       "system_type",
		"system type":       "system_type",
		"duplex":            "duplex",
		"lac":               "lac",
		"tac":               "tac",
		"cid":               "cid",
		"rnc":               "rnc",
		"enbid":             "enbid",
		"enb id":            "enbid",
		"gnbid":             "gnbid",
		"gnb id":            "gnbid",
		"clid":              "clid",
	},
	Required: []string{"mnc", "station_id", "longitude", "latitude", "system_type"},
}

type stationRecord struct {
	MNC        string `csv:"mnc"`
	Operator   string `csv:"operator"`
	StationID  string `csv:"station_id"`
	Longitude  string `csv:"longitude"`
	Latitude   string `csv:"latitude"`
	Region     string `csv:"region"`
	City       string `csv:"city"`
	Address    string `csv:"address"`
	SystemType string `csv:"system_type"`
	Duplex     string `csv:"duplex"`
	LAC        string `csv:"lac"`
	TAC        string `csv:"tac"`
	CID        string `csv:"cid"`
	RNC        string `csv:"rnc"`
	ENBID      string `csv:"enbid"`
	GNBID      string `csv:"gnbid"`
	CLID       string `csv:"clid"`
}

// ingestStations imports one station/cell list. Each row describes one cell.
func (im *Importer) ingestStations(ctx context.Context, r *run, desc models.SourceDescriptor, rows scraper.RowReader) error {
	logger := r.logger.With("source", desc.Href)
	sourceFile := path.Base(desc.Href)

	dec, err := scraper.NewTableDecoder(rows, stationColumns)
	if err != nil {
		logger.Error("source file rejected", "error", err)
		r.summary.FailedSources++
		return nil
	}

	parse := func(line int, rec stationRecord) (models.StationRow, bool) {
		return im.parseStationRow(logger, line, rec)
	}
	flush := func(ctx context.Context, chunk []models.StationRow) error {
		return im.writeStationChunk(ctx, r, chunk)
	}
	if err := ingestRows(ctx, r, logger, dec, parse, flush); err != nil {
		return fmt.Errorf("failed to ingest %s: %w", sourceFile, err)
	}
	return nil
}

func (im *Importer) parseStationRow(logger *slog.Logger, line int, rec stationRecord) (models.StationRow, bool) {
	stationID := strings.TrimSpace(rec.StationID)
	if stationID == "" {
		logger.Warn("row skipped: empty station id", "row", line)
		return models.StationRow{}, false
	}
	mnc, err := strconv.Atoi(strings.TrimSpace(rec.MNC))
	if err != nil {
		logger.Warn("row skipped: invalid mnc", "row", line, "station_id", stationID, "value", rec.MNC)
		return models.StationRow{}, false
	}
	lon, err := parseCoordinate(rec.Longitude, "E")
	if err != nil {
		logger.Warn("row skipped: invalid longitude", "row", line, "station_id", stationID, "value", rec.Longitude)
		return models.StationRow{}, false
	}
	lat, err := parseCoordinate(rec.Latitude, "N")
	if err != nil {
		logger.Warn("row skipped: invalid latitude", "row", line, "station_id", stationID, "value", rec.Latitude)
		return models.StationRow{}, false
	}
	band, ok := utils.DecodeBand(rec.SystemType)
	if !ok {
		logger.Warn("row skipped: unrecognized system type", "row", line, "station_id", stationID, "system_type", rec.SystemType)
		return models.StationRow{}, false
	}
	region, ok := im.Resolver.Resolve(lon, lat)
	if !ok {
		logger.Warn("row skipped: coordinates outside every region", "row", line, "station_id", stationID, "lon", lon, "lat", lat)
		return models.StationRow{}, false
	}

	row := models.StationRow{
		Row:          line,
		MNC:          mnc,
		OperatorName: strings.TrimSpace(rec.Operator),
		StationID:    stationID,
		Longitude:    lon,
		Latitude:     lat,
		RegionCode:   region.Code,
		RegionName:   regionName(region),
		City:         strings.TrimSpace(rec.City),
		Address:      strings.TrimSpace(rec.Address),
		Band:         band,
		Duplex:       strings.ToUpper(strings.TrimSpace(rec.Duplex)),
	}
	if row.OperatorName == "" {
		if op, ok := im.operatorByMNC(mnc); ok {
			row.OperatorName = op.Name
		} else {
			row.OperatorName = fmt.Sprintf("MNC %d", mnc)
		}
	}

	// identifiers required per technology
	var need []string
	lac, hasLAC := parseInt(rec.LAC)
	tac, _ := parseInt(rec.TAC)
	cid, hasCID := parseInt(rec.CID)
	rnc, hasRNC := parseInt(rec.RNC)
	enbid, hasENB := parseInt(rec.ENBID)
	gnbid, hasGNB := parseInt(rec.GNBID)
	clid, hasCLID := parseInt(rec.CLID)
	switch band.RAT {
	case models.RATGSM:
		if !hasLAC || !hasCID {
			need = []string{"lac", "cid"}
		}
	case models.RATUMTS:
		if !hasRNC || !hasCID {
			need = []string{"rnc", "cid"}
		}
	case models.RATLTE, models.RATIOT:
		if !hasENB || !hasCLID {
			need = []string{"enbid", "clid"}
		}
	case models.RATNR:
		if !hasGNB || !hasCLID {
			need = []string{"gnbid", "clid"}
		}
	}
	if need != nil {
		logger.Warn("row skipped: cell identifiers missing", "row", line, "station_id", stationID, "rat", string(band.RAT), "required", need)
		return models.StationRow{}, false
	}
	row.LAC, row.TAC, row.CID, row.RNC = int(lac), int(tac), int(cid), int(rnc)
	row.ENBID, row.GNBID, row.CLID = int(enbid), gnbid, int(clid)
	return row, true
}

// stationCellKey returns the technology identifiers that distinguish a cell
// within its station and band.
func stationCellKey(row models.StationRow) string {
	switch row.Band.RAT {
	case models.RATGSM:
		return upsert.CellKey(row.Band.RAT, int64(row.LAC), int64(row.CID))
	case models.RATUMTS:
		return upsert.CellKey(row.Band.RAT, int64(row.RNC), int64(row.CID))
	case models.RATNR:
		return upsert.CellKey(row.Band.RAT, row.GNBID, int64(row.CLID))
	default:
		return upsert.CellKey(row.Band.RAT, int64(row.ENBID), int64(row.CLID))
	}
}

// stationCell is a row whose station, band and cell key are known.
type stationCell struct {
	models.StationRow
	cell models.Cell
}

// writeStationChunk runs the full cascade for one chunk:
// {Region, Operator} -> Location -> Station -> Band -> Cell -> {GSM, UMTS, LTE, NR}.
func (im *Importer) writeStationChunk(ctx context.Context, r *run, rows []models.StationRow) error {
	logger := r.logger

	regions := make([]models.Region, len(rows))
	operators := make([]models.Operator, len(rows))
	for i, row := range rows {
		regions[i] = models.Region{Name: row.RegionName, Code: row.RegionCode}
		operators[i] = models.Operator{MNC: row.MNC, Name: row.OperatorName}
	}

	var regionIDs upsert.IDMap[string]
	var operatorIDs upsert.IDMap[int]
	var regionRes, operatorRes upsert.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		regionIDs, regionRes, err = upsert.Write(gctx, r.writer, upsert.Regions, regions)
		return err
	})
	g.Go(func() error {
		var err error
		operatorIDs, operatorRes, err = upsert.Write(gctx, r.writer, upsert.Operators, operators)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	r.summary.addStage(upsert.Regions.Name, regionRes)
	r.summary.addStage(upsert.Operators.Name, operatorRes)

	// Location
	locations := upsert.Resolve(logger, upsert.Locations.Name, rows, func(row models.StationRow) (models.Location, []any, bool) {
		regionID, ok := regionIDs[row.RegionName]
		if !ok {
			return models.Location{}, []any{"row", row.Row, "missing", "region", "region", row.RegionName}, false
		}
		return models.Location{Longitude: row.Longitude, Latitude: row.Latitude, RegionID: regionID, City: row.City, Address: row.Address}, nil, true
	})
	locationIDs, res, err := upsert.Write(ctx, r.writer, upsert.Locations, locations)
	if err != nil {
		return err
	}
	r.summary.addStage(upsert.Locations.Name, res)

	// Station
	stations := upsert.Resolve(logger, upsert.Stations.Name, rows, func(row models.StationRow) (models.Station, []any, bool) {
		operatorID, ok := operatorIDs[row.MNC]
		if !ok {
			return models.Station{}, []any{"row", row.Row, "missing", "operator", "mnc", row.MNC}, false
		}
		locationID, ok := locationIDs[models.NewLocationKey(row.Longitude, row.Latitude)]
		if !ok {
			return models.Station{}, []any{"row", row.Row, "missing", "location", "station_id", row.StationID}, false
		}
		return models.Station{StationID: row.StationID, OperatorID: operatorID, LocationID: locationID}, nil, true
	})
	stationIDs, res, err := upsert.Write(ctx, r.writer, upsert.Stations, stations)
	if err != nil {
		return err
	}
	r.summary.addStage(upsert.Stations.Name, res)

	// Band
	bands := make([]models.Band, len(rows))
	for i, row := range rows {
		bands[i] = models.Band{RAT: row.Band.RAT, Value: row.Band.Value, Duplex: row.Duplex}
	}
	bandIDs, res, err := upsert.Write(ctx, r.writer, upsert.Bands, bands)
	if err != nil {
		return err
	}
	r.summary.addStage(upsert.Bands.Name, res)

	// Cell
	cells := upsert.Resolve(logger, upsert.Cells.Name, rows, func(row models.StationRow) (stationCell, []any, bool) {
		operatorID := operatorIDs[row.MNC]
		stationID, ok := stationIDs[models.StationKey{StationID: row.StationID, OperatorID: operatorID}]
		if !ok {
			return stationCell{}, []any{"row", row.Row, "missing", "station", "station_id", row.StationID}, false
		}
		bandID, ok := bandIDs[models.BandRef{RAT: row.Band.RAT, Value: row.Band.Value, Duplex: row.Duplex}]
		if !ok {
			return stationCell{}, []any{"row", row.Row, "missing", "band", "rat", string(row.Band.RAT), "value", row.Band.Value}, false
		}
		return stationCell{StationRow: row, cell: models.Cell{
			StationID: stationID,
			BandID:    bandID,
			RAT:       row.Band.RAT,
			CellKey:   stationCellKey(row),
		}}, nil, true
	})
	cellRows := make([]models.Cell, len(cells))
	for i, c := range cells {
		cellRows[i] = c.cell
	}
	cellIDs, res, err := upsert.Write(ctx, r.writer, upsert.Cells, cellRows)
	if err != nil {
		return err
	}
	r.summary.addStage(upsert.Cells.Name, res)
	r.summary.Inserted += res.Inserted

	return im.writeCellDetails(ctx, r, cells, cellIDs)
}

// writeCellDetails writes the per-technology identifier rows. The four tables
// are independent of each other, so they are written concurrently.
func (im *Importer) writeCellDetails(ctx context.Context, r *run, cells []stationCell, cellIDs upsert.IDMap[models.CellRef]) error {
	resolved := upsert.Resolve(r.logger, "cell_detail", cells, func(c stationCell) (stationCell, []any, bool) {
		id, ok := cellIDs[models.CellRef{StationID: c.cell.StationID, BandID: c.cell.BandID, CellKey: c.cell.CellKey}]
		if !ok {
			return stationCell{}, []any{"row", c.Row, "missing", "cell", "cell_key", c.cell.CellKey}, false
		}
		c.cell.ID = id
		return c, nil, true
	})

	var gsm []models.GSMCell
	var umts []models.UMTSCell
	var lte []models.LTECell
	var nr []models.NRCell
	for _, c := range resolved {
		switch c.Band.RAT {
		case models.RATGSM:
			gsm = append(gsm, models.GSMCell{CellID: c.cell.ID, LAC: c.LAC, CID: c.CID})
		case models.RATUMTS:
			umts = append(umts, models.UMTSCell{CellID: c.cell.ID, LAC: c.LAC, RNC: c.RNC, CID: c.CID})
		case models.RATLTE, models.RATIOT:
			lte = append(lte, models.LTECell{CellID: c.cell.ID, TAC: c.TAC, ENBID: c.ENBID, CLID: c.CLID})
		case models.RATNR:
			nr = append(nr, models.NRCell{CellID: c.cell.ID, TAC: c.TAC, GNBID: c.GNBID, CLID: c.CLID})
		}
	}

	results := make([]upsert.Result, 4)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		_, results[0], err = upsert.Write(gctx, r.writer, upsert.GSMCells, gsm)
		return err
	})
	g.Go(func() (err error) {
		_, results[1], err = upsert.Write(gctx, r.writer, upsert.UMTSCells, umts)
		return err
	})
	g.Go(func() (err error) {
		_, results[2], err = upsert.Write(gctx, r.writer, upsert.LTECells, lte)
		return err
	})
	g.Go(func() (err error) {
		_, results[3], err = upsert.Write(gctx, r.writer, upsert.NRCells, nr)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	r.summary.addStage(upsert.GSMCells.Name, results[0])
	r.summary.addStage(upsert.UMTSCells.Name, results[1])
	r.summary.addStage(upsert.LTECells.Name, results[2])
	r.summary.addStage(upsert.NRCells.Name, results[3])
	return nil
}

func (im *Importer) operatorByMNC(mnc int) (models.Operator, bool) {
	for _, op := range im.Operators {
		if op.MNC == mnc {
			return models.Operator{MNC: op.MNC, Name: op.Name}, true
		}
	}
	return models.Operator{}, false
}
