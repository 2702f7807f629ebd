// models/rows.go
package models

import "time"

// ParsedRow is one validated permit row. It lives only for the chunk it belongs to.
type ParsedRow struct {
	Row            int // 1-based line in the source file, header included
	StationID      string
	Longitude      float64
	Latitude       float64
	RegionCode     string
	RegionName     string
	City           string
	Address        string
	DecisionNumber string
	DecisionType   string
	Band           BandKey
	BandInfo       string // raw system-type token
	ExpiryDate     *time.Time
}

// StationRow is one validated cell row of the stations import.
type StationRow struct {
	Row          int
	MNC          int
	OperatorName string
	StationID    string
	Longitude    float64
	Latitude     float64
	RegionCode   string
	RegionName   string
	City         string
	Address      string
	Band         BandKey
	Duplex       string
	LAC          int
	TAC          int
	CID          int
	RNC          int
	ENBID        int
	GNBID        int64
	CLID         int
}
