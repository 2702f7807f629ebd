package geo

import (
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadFile reads a GeoJSON FeatureCollection of region boundaries from path.
func LoadFile(path, codeProp, nameProp string) ([]RegionPolygon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open region boundaries %s: %w", path, err)
	}
	defer f.Close()
	return LoadGeoJSON(f, codeProp, nameProp)
}

// LoadGeoJSON parses region boundaries. MultiPolygon features are exploded
// into one RegionPolygon per member, each carrying the parent's region
// properties. Features of other geometry types are ignored.
func LoadGeoJSON(r io.Reader, codeProp, nameProp string) ([]RegionPolygon, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read region boundaries: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode region boundaries: %w", err)
	}

	var out []RegionPolygon
	for i, f := range fc.Features {
		region := Region{
			Code: propString(f.Properties, codeProp),
			Name: propString(f.Properties, nameProp),
		}
		if region.Code == "" {
			return nil, fmt.Errorf("feature %d has no %q property", i, codeProp)
		}

		switch g := f.Geometry.(type) {
		case orb.Polygon:
			out = append(out, RegionPolygon{Region: region, Polygon: g})
		case orb.MultiPolygon:
			for _, p := range g {
				out = append(out, RegionPolygon{Region: region, Polygon: p})
			}
		}
	}
	return out, nil
}

func propString(props geojson.Properties, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%02d", int(t))
	default:
		return fmt.Sprint(t)
	}
}
