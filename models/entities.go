// models/entities.go
package models

import (
	"math"
	"strconv"
	"time"
)

// RAT is the radio access type (cellular technology generation) of a band or cell.
type RAT string

const (
	RATGSM  RAT = "GSM"
	RATUMTS RAT = "UMTS"
	RATLTE  RAT = "LTE"
	RATNR   RAT = "NR"
	RATIOT  RAT = "IOT"
)

// Region is an administrative region (voivodeship) resolved from coordinates.
type Region struct {
	ID   int64  `db:"id"`
	Name string `db:"name"` // natural key
	Code string `db:"code"`
}

// Operator is a mobile network operator identified by its MNC.
type Operator struct {
	ID   int64  `db:"id"`
	MNC  int    `db:"mnc"` // natural key
	Name string `db:"name"`
}

// Location is a physical site. Coordinates are decimal degrees rounded to 6 places.
type Location struct {
	ID        int64   `db:"id"`
	Longitude float64 `db:"longitude"`
	Latitude  float64 `db:"latitude"`
	RegionID  int64   `db:"region_id"`
	City      string  `db:"city"`
	Address   string  `db:"address"`
}

// LocationKey is the natural key of a Location, in micro-degrees so that
// values read back from DECIMAL or REAL columns compare equal.
type LocationKey struct {
	Lon int64
	Lat int64
}

// NewLocationKey converts decimal degrees into a LocationKey.
func NewLocationKey(lon, lat float64) LocationKey {
	return LocationKey{Lon: toMicro(lon), Lat: toMicro(lat)}
}

// Degrees returns the key as decimal degrees.
func (k LocationKey) Degrees() (lon, lat float64) {
	return float64(k.Lon) / 1e6, float64(k.Lat) / 1e6
}

// String formats the key as "lon,lat" with 6 decimals.
func (k LocationKey) String() string {
	lon, lat := k.Degrees()
	return strconv.FormatFloat(lon, 'f', 6, 64) + "," + strconv.FormatFloat(lat, 'f', 6, 64)
}

func toMicro(v float64) int64 {
	return int64(math.Round(v * 1e6))
}

// Key returns the natural key of the location.
func (l Location) Key() LocationKey {
	return NewLocationKey(l.Longitude, l.Latitude)
}

// Station is a base station of one operator at one location.
type Station struct {
	ID         int64  `db:"id"`
	StationID  string `db:"station_id"`
	OperatorID int64  `db:"operator_id"`
	LocationID int64  `db:"location_id"`
}

// StationKey is the natural key of a Station.
type StationKey struct {
	StationID  string
	OperatorID int64
}

// BandKey is the decoded form of a system-type token such as "LTE800".
type BandKey struct {
	RAT   RAT
	Value int
}

// Band is a frequency band of one technology.
type Band struct {
	ID     int64  `db:"id"`
	RAT    RAT    `db:"rat"`
	Value  int    `db:"value"`
	Duplex string `db:"duplex"` // "" when unknown
}

// BandRef is the natural key of a Band.
type BandRef struct {
	RAT    RAT
	Value  int
	Duplex string
}

// Ref returns the natural key of the band.
func (b Band) Ref() BandRef {
	return BandRef{RAT: b.RAT, Value: b.Value, Duplex: b.Duplex}
}

// Cell is one radio cell of a station on a band. CellKey carries the
// technology identifiers (e.g. "lac:cid") so sectors on the same band stay distinct.
type Cell struct {
	ID        int64  `db:"id"`
	StationID int64  `db:"station_id"`
	BandID    int64  `db:"band_id"`
	RAT       RAT    `db:"rat"`
	CellKey   string `db:"cell_key"`
}

// CellRef is the natural key of a Cell.
type CellRef struct {
	StationID int64
	BandID    int64
	CellKey   string
}

// GSMCell holds 2G identifiers; natural key (LAC, CID).
type GSMCell struct {
	ID     int64 `db:"id"`
	CellID int64 `db:"cell_id"`
	LAC    int   `db:"lac"`
	CID    int   `db:"cid"`
}

// UMTSCell holds 3G identifiers; natural key (RNC, CID).
type UMTSCell struct {
	ID     int64 `db:"id"`
	CellID int64 `db:"cell_id"`
	LAC    int   `db:"lac"`
	RNC    int   `db:"rnc"`
	CID    int   `db:"cid"`
}

// LTECell holds 4G identifiers; natural key (ENBID, CLID).
type LTECell struct {
	ID     int64 `db:"id"`
	CellID int64 `db:"cell_id"`
	TAC    int   `db:"tac"`
	ENBID  int   `db:"enbid"`
	CLID   int   `db:"clid"`
}

// NRCell holds 5G identifiers; natural key (GNBID, CLID).
type NRCell struct {
	ID     int64 `db:"id"`
	CellID int64 `db:"cell_id"`
	TAC    int   `db:"tac"`
	GNBID  int64 `db:"gnbid"`
	CLID   int   `db:"clid"`
}

// IDPair is a two-part technology identifier used as a cell-detail natural key.
type IDPair struct {
	A int64
	B int64
}

// Permit is a radio permit decision for one station and band.
type Permit struct {
	ID             int64      `db:"id"`
	OperatorID     int64      `db:"operator_id"`
	StationID      string     `db:"station_id"`
	LocationID     int64      `db:"location_id"`
	BandID         int64      `db:"band_id"`
	DecisionNumber string     `db:"decision_number"`
	DecisionType   string     `db:"decision_type"`
	ExpiryDate     *time.Time `db:"expiry_date"`
	SourceFile     string     `db:"source_file"`
}

// PermitKey is the natural key of a Permit.
type PermitKey struct {
	OperatorID     int64
	StationID      string
	BandID         int64
	DecisionNumber string
}

// Key returns the natural key of the permit.
func (p Permit) Key() PermitKey {
	return PermitKey{OperatorID: p.OperatorID, StationID: p.StationID, BandID: p.BandID, DecisionNumber: p.DecisionNumber}
}
