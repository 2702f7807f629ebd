// services/permit_import.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gewnthar/permitsync/config"
	"github.com/gewnthar/permitsync/geo"
	"github.com/gewnthar/permitsync/models"
	"github.com/gewnthar/permitsync/scraper"
	"github.com/gewnthar/permitsync/upsert"
	"github.com/gewnthar/permitsync/utils"
)

var permitColumns = scraper.Columns{
	Aliases: map[string]string{
		"idstacji":          "station_id",
		"id stacji":         "station_id",
		"station id":        "station_id",
		"dl geogr stacji":   "longitude",
		"longitude":         "longitude",
		"szer geogr stacji": "latitude",
		"latitude":          "latitude",
		"nr decyzji":        "decision_number",
		"decision number":   "decision_number",
		"rodzaj decyzji":    "decision_type",
		"decision type":     "decision_type",
		"typ systemu":       "system_type",
		"system type":       "system_type",
		"data waznosci":     "expiry_date",
		"expiry date":       "expiry_date",
		"wojewodztwo":       "region",
		"miejscowosc":       "city",
		"lokalizacja":       "address",
		"operator":          "operator",
		"nazwa operatora":   "operator",
	},
	Required: []string{"station_id", "longitude", "latitude", "decision_number", "decision_type", "system_type"},
}

type permitRecord struct {
	StationID      string `csv:"station_id"`
	Longitude      string `csv:"longitude"`
	Latitude       string `csv:"latitude"`
	DecisionNumber string `csv:"decision_number"`
	DecisionType   string `csv:"decision_type"`
	SystemType     string `csv:"system_type"`
	ExpiryDate     string `csv:"expiry_date"`
	Region         string `csv:"region"`
	City           string `csv:"city"`
	Address        string `csv:"address"`
	Operator       string `csv:"operator"`
}

// permitRow is a validated row together with the operator it belongs to.
type permitRow struct {
	models.ParsedRow
	OperatorMNC int
}

// ingestPermits imports one permit registry file. All configured operators
// are written once per source; each row is attributed to the operator named
// by the file, or failing that by its operator column.
func (im *Importer) ingestPermits(ctx context.Context, r *run, desc models.SourceDescriptor, rows scraper.RowReader) error {
	logger := r.logger.With("source", desc.Href)
	sourceFile := path.Base(desc.Href)

	dec, err := scraper.NewTableDecoder(rows, permitColumns)
	if err != nil {
		logger.Error("source file rejected", "error", err)
		r.summary.FailedSources++
		return nil
	}

	fileOperator, hasFileOperator := im.operator(desc.OperatorKey)
	if !hasFileOperator && desc.OperatorKey != "" {
		logger.Warn("operator key not configured, falling back to operator column", "operator_key", desc.OperatorKey)
	}

	operators := make([]models.Operator, 0, len(im.Operators))
	for _, op := range im.Operators {
		operators = append(operators, models.Operator{MNC: op.MNC, Name: op.Name})
	}
	operatorIDs, res, err := upsert.Write(ctx, r.writer, upsert.Operators, operators)
	if err != nil {
		return err
	}
	r.summary.addStage(upsert.Operators.Name, res)

	parse := func(line int, rec permitRecord) (permitRow, bool) {
		op := fileOperator
		if !hasFileOperator {
			var ok bool
			if op, ok = im.operatorByName(rec.Operator); !ok {
				logger.Warn("row skipped: operator unknown", "row", line, "operator", rec.Operator)
				return permitRow{}, false
			}
		}
		row, ok := im.parsePermitRow(logger, line, rec)
		if !ok {
			return permitRow{}, false
		}
		return permitRow{ParsedRow: row, OperatorMNC: op.MNC}, true
	}
	flush := func(ctx context.Context, chunk []permitRow) error {
		return im.writePermitChunk(ctx, r, operatorIDs, sourceFile, chunk)
	}

	if err := ingestRows(ctx, r, logger, dec, parse, flush); err != nil {
		return fmt.Errorf("failed to ingest %s: %w", sourceFile, err)
	}
	return nil
}

func (im *Importer) parsePermitRow(logger *slog.Logger, line int, rec permitRecord) (models.ParsedRow, bool) {
	stationID := strings.TrimSpace(rec.StationID)
	if stationID == "" {
		logger.Warn("row skipped: empty station id", "row", line)
		return models.ParsedRow{}, false
	}
	lon, err := parseCoordinate(rec.Longitude, "E")
	if err != nil {
		logger.Warn("row skipped: invalid longitude", "row", line, "station_id", stationID, "value", rec.Longitude)
		return models.ParsedRow{}, false
	}
	lat, err := parseCoordinate(rec.Latitude, "N")
	if err != nil {
		logger.Warn("row skipped: invalid latitude", "row", line, "station_id", stationID, "value", rec.Latitude)
		return models.ParsedRow{}, false
	}
	band, ok := utils.DecodeBand(rec.SystemType)
	if !ok {
		logger.Warn("row skipped: unrecognized system type", "row", line, "station_id", stationID, "system_type", rec.SystemType)
		return models.ParsedRow{}, false
	}
	region, ok := im.Resolver.Resolve(lon, lat)
	if !ok {
		logger.Warn("row skipped: coordinates outside every region", "row", line, "station_id", stationID, "lon", lon, "lat", lat)
		return models.ParsedRow{}, false
	}
	expiry, err := parseDate(rec.ExpiryDate)
	if err != nil {
		logger.Warn("expiry date ignored", "row", line, "station_id", stationID, "error", err)
	}

	return models.ParsedRow{
		Row:            line,
		StationID:      stationID,
		Longitude:      lon,
		Latitude:       lat,
		RegionCode:     region.Code,
		RegionName:     regionName(region),
		City:           strings.TrimSpace(rec.City),
		Address:        strings.TrimSpace(rec.Address),
		DecisionNumber: strings.TrimSpace(rec.DecisionNumber),
		DecisionType:   strings.TrimSpace(rec.DecisionType),
		Band:           band,
		BandInfo:       strings.TrimSpace(rec.SystemType),
		ExpiryDate:     expiry,
	}, true
}

// placedPermit is a permit row whose location has been resolved.
type placedPermit struct {
	permitRow
	location models.Location
}

// writePermitChunk runs the permit cascade for one chunk:
// {Region, Band} -> Location -> Permit.
func (im *Importer) writePermitChunk(ctx context.Context, r *run, operatorIDs upsert.IDMap[int], sourceFile string, rows []permitRow) error {
	logger := r.logger.With("source_file", sourceFile)

	regions := make([]models.Region, len(rows))
	bands := make([]models.Band, len(rows))
	for i, row := range rows {
		regions[i] = models.Region{Name: row.RegionName, Code: row.RegionCode}
		bands[i] = models.Band{RAT: row.Band.RAT, Value: row.Band.Value}
	}

	var regionIDs upsert.IDMap[string]
	var bandIDs upsert.IDMap[models.BandRef]
	var regionRes, bandRes upsert.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		regionIDs, regionRes, err = upsert.Write(gctx, r.writer, upsert.Regions, regions)
		return err
	})
	g.Go(func() error {
		var err error
		bandIDs, bandRes, err = upsert.Write(gctx, r.writer, upsert.Bands, bands)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	r.summary.addStage(upsert.Regions.Name, regionRes)
	r.summary.addStage(upsert.Bands.Name, bandRes)

	placed := upsert.Resolve(logger, upsert.Locations.Name, rows, func(row permitRow) (placedPermit, []any, bool) {
		regionID, ok := regionIDs[row.RegionName]
		if !ok {
			return placedPermit{}, []any{"row", row.Row, "missing", "region", "region", row.RegionName}, false
		}
		return placedPermit{permitRow: row, location: models.Location{
			Longitude: row.Longitude,
			Latitude:  row.Latitude,
			RegionID:  regionID,
			City:      row.City,
			Address:   row.Address,
		}}, nil, true
	})
	locations := make([]models.Location, len(placed))
	for i, p := range placed {
		locations[i] = p.location
	}
	locationIDs, res, err := upsert.Write(ctx, r.writer, upsert.Locations, locations)
	if err != nil {
		return err
	}
	r.summary.addStage(upsert.Locations.Name, res)

	permits := upsert.Resolve(logger, upsert.Permits.Name, placed, func(p placedPermit) (models.Permit, []any, bool) {
		operatorID, ok := operatorIDs[p.OperatorMNC]
		if !ok {
			return models.Permit{}, []any{"row", p.Row, "missing", "operator", "mnc", p.OperatorMNC}, false
		}
		locationID, ok := locationIDs[p.location.Key()]
		if !ok {
			return models.Permit{}, []any{"row", p.Row, "missing", "location", "lon", p.Longitude, "lat", p.Latitude}, false
		}
		ref := models.BandRef{RAT: p.Band.RAT, Value: p.Band.Value}
		bandID, ok := bandIDs[ref]
		if !ok {
			return models.Permit{}, []any{"row", p.Row, "missing", "band", "band", p.BandInfo}, false
		}
		return models.Permit{
			OperatorID:     operatorID,
			StationID:      p.StationID,
			LocationID:     locationID,
			BandID:         bandID,
			DecisionNumber: p.DecisionNumber,
			DecisionType:   p.DecisionType,
			ExpiryDate:     p.ExpiryDate,
			SourceFile:     sourceFile,
		}, nil, true
	})
	_, res, err = upsert.Write(ctx, r.writer, upsert.Permits, permits)
	if err != nil {
		return err
	}
	r.summary.addStage(upsert.Permits.Name, res)
	r.summary.Inserted += res.Inserted
	return nil
}

func (im *Importer) operator(key string) (config.OperatorConfig, bool) {
	if key == "" {
		return config.OperatorConfig{}, false
	}
	for _, op := range im.Operators {
		if strings.EqualFold(op.Key, key) {
			return op, true
		}
	}
	return config.OperatorConfig{}, false
}

func (im *Importer) operatorByName(name string) (config.OperatorConfig, bool) {
	name = utils.NormalizeLabel(name)
	if name == "" {
		return config.OperatorConfig{}, false
	}
	for _, op := range im.Operators {
		if utils.NormalizeLabel(op.Name) == name || utils.NormalizeLabel(op.Key) == name {
			return op, true
		}
	}
	return config.OperatorConfig{}, false
}

// regionName falls back to the code for override regions with no polygon.
func regionName(r geo.Region) string {
	if r.Name != "" {
		return r.Name
	}
	return r.Code
}
