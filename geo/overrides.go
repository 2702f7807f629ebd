package geo

// Override pins a literal coordinate to a region. These are points that sit
// just outside the digitized coastline or border but are known to belong to a
// region. Coordinates are compared at 6-decimal precision.
type Override struct {
	Lon  float64
	Lat  float64
	Code string
	Note string
}

// DefaultOverrides is the data-quality patch table applied after polygon lookup.
// Entries were found empirically and need review by someone with the source
// boundary data before being changed.
var DefaultOverrides = []Override{
	{Lon: 18.816111, Lat: 54.601111, Code: "22", Note: "Hel peninsula tip, seaward of coastline"},
	{Lon: 14.272222, Lat: 53.925000, Code: "32", Note: "Swinoujscie breakwater"},
	{Lon: 19.446944, Lat: 54.385833, Code: "22", Note: "Vistula Spit, Krynica Morska harbour"},
	{Lon: 14.123056, Lat: 52.842500, Code: "08", Note: "Oder river border crossing"},
}
