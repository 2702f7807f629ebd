// Package geo classifies coordinates into administrative regions using a
// bounding-box R-tree over single polygons and an exact point-in-polygon test.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/tidwall/rtree"
)

// Region identifies an administrative region.
type Region struct {
	Code string
	Name string
}

// RegionPolygon is one single polygon of a region boundary. Multi-part
// boundaries are stored as several RegionPolygons with the same Region.
type RegionPolygon struct {
	Region  Region
	Polygon orb.Polygon
}

// Resolver maps (lon, lat) points to regions. It is built once and is
// read-only afterwards, so concurrent Resolve calls need no locking.
type Resolver struct {
	tree      rtree.RTreeG[int]
	polygons  []RegionPolygon
	overrides map[pointKey]Override
	regions   map[string]Region
}

type pointKey struct {
	lon int64
	lat int64
}

func newPointKey(lon, lat float64) pointKey {
	return pointKey{lon: int64(math.Round(lon * 1e6)), lat: int64(math.Round(lat * 1e6))}
}

// NewResolver indexes polys and keeps overrides as the fallback table for
// points that fall outside every polygon.
func NewResolver(polys []RegionPolygon, overrides []Override) *Resolver {
	r := &Resolver{
		polygons:  make([]RegionPolygon, 0, len(polys)),
		overrides: make(map[pointKey]Override, len(overrides)),
		regions:   make(map[string]Region),
	}
	for _, p := range polys {
		if len(p.Polygon) == 0 || len(p.Polygon[0]) == 0 {
			continue
		}
		idx := len(r.polygons)
		r.polygons = append(r.polygons, p)
		b := p.Polygon.Bound()
		r.tree.Insert([2]float64{b.Min.X(), b.Min.Y()}, [2]float64{b.Max.X(), b.Max.Y()}, idx)
		if _, ok := r.regions[p.Region.Code]; !ok {
			r.regions[p.Region.Code] = p.Region
		}
	}
	for _, o := range overrides {
		r.overrides[newPointKey(o.Lon, o.Lat)] = o
	}
	return r
}

// Resolve returns the region containing the point. Candidates come from the
// bounding-box index and are confirmed with an exact containment test; the
// first match wins. Points outside every polygon are checked against the
// override table before giving up.
func (r *Resolver) Resolve(lon, lat float64) (Region, bool) {
	point := orb.Point{lon, lat}
	q := [2]float64{lon, lat}

	var found Region
	var ok bool
	r.tree.Search(q, q, func(_, _ [2]float64, idx int) bool {
		p := r.polygons[idx]
		if planar.PolygonContains(p.Polygon, point) {
			found, ok = p.Region, true
			return false
		}
		return true
	})
	if ok {
		return found, true
	}

	if o, hit := r.overrides[newPointKey(lon, lat)]; hit {
		region, known := r.regions[o.Code]
		if !known {
			region = Region{Code: o.Code}
		}
		return region, true
	}
	return Region{}, false
}

// Regions returns the distinct regions known to the index.
func (r *Resolver) Regions() []Region {
	out := make([]Region, 0, len(r.regions))
	for _, region := range r.regions {
		out = append(out, region)
	}
	return out
}

// Overrides returns the fallback table in use.
func (r *Resolver) Overrides() []Override {
	out := make([]Override, 0, len(r.overrides))
	for _, o := range r.overrides {
		out = append(out, o)
	}
	return out
}

// PolygonCount reports how many single polygons are indexed.
func (r *Resolver) PolygonCount() int {
	return len(r.polygons)
}
