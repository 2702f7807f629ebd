package geo

import (
	"strings"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}}
}

// triangle whose bounding box overlaps the neighbouring square
func triangle() orb.Polygon {
	return orb.Polygon{orb.Ring{{10, 0}, {20, 0}, {10, 10}, {10, 0}}}
}

func testResolver(overrides []Override) *Resolver {
	return NewResolver([]RegionPolygon{
		{Region: Region{Code: "02", Name: "dolnośląskie"}, Polygon: square(0, 0, 10, 10)},
		{Region: Region{Code: "04", Name: "kujawsko-pomorskie"}, Polygon: triangle()},
		{Region: Region{Code: "06", Name: "lubelskie"}, Polygon: square(12, 6, 20, 10)},
	}, overrides)
}

func TestResolveInsidePolygon(t *testing.T) {
	r := testResolver(nil)

	got, ok := r.Resolve(5, 5)
	require.True(t, ok)
	assert.Equal(t, Region{Code: "02", Name: "dolnośląskie"}, got)

	got, ok = r.Resolve(11, 2)
	require.True(t, ok)
	assert.Equal(t, "04", got.Code)
}

func TestResolveUsesExactTestNotBoundingBox(t *testing.T) {
	r := testResolver(nil)

	// inside the triangle's bbox and the lubelskie square
	got, ok := r.Resolve(18, 8)
	require.True(t, ok)
	assert.Equal(t, "06", got.Code)

	// inside the triangle's bbox only, but outside the triangle itself
	_, ok = r.Resolve(19, 5)
	assert.False(t, ok)
}

func TestResolveFarOutside(t *testing.T) {
	r := testResolver(DefaultOverrides)
	_, ok := r.Resolve(-40, -30)
	assert.False(t, ok)
}

func TestResolveOverrides(t *testing.T) {
	overrides := []Override{
		{Lon: 30.123456, Lat: 40.654321, Code: "02"},
		{Lon: 31, Lat: 41, Code: "99"},
	}
	r := testResolver(overrides)

	got, ok := r.Resolve(30.123456, 40.654321)
	require.True(t, ok)
	assert.Equal(t, Region{Code: "02", Name: "dolnośląskie"}, got)

	got, ok = r.Resolve(31, 41)
	require.True(t, ok)
	assert.Equal(t, Region{Code: "99"}, got)

	_, ok = r.Resolve(30.12346, 40.654321)
	assert.False(t, ok)
}

func TestDefaultOverridesEnumerable(t *testing.T) {
	r := NewResolver(nil, DefaultOverrides)
	require.Len(t, r.Overrides(), len(DefaultOverrides))
	for _, o := range DefaultOverrides {
		got, ok := r.Resolve(o.Lon, o.Lat)
		require.True(t, ok, o.Note)
		assert.Equal(t, o.Code, got.Code, o.Note)
		assert.NotEmpty(t, o.Note)
	}
}

func TestResolveConcurrentReads(t *testing.T) {
	r := testResolver(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got, ok := r.Resolve(5, 5)
				assert.True(t, ok)
				assert.Equal(t, "02", got.Code)
			}
		}()
	}
	wg.Wait()
}

const boundariesJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"code": "22", "name": "pomorskie"},
      "geometry": {
        "type": "MultiPolygon",
        "coordinates": [
          [[[0,0],[4,0],[4,4],[0,4],[0,0]]],
          [[[10,10],[12,10],[12,12],[10,12],[10,10]]]
        ]
      }
    },
    {
      "type": "Feature",
      "properties": {"code": 32, "name": "zachodniopomorskie"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[20,20],[24,20],[24,24],[20,24],[20,20]]]
      }
    },
    {
      "type": "Feature",
      "properties": {"code": "00", "name": "marker"},
      "geometry": {"type": "Point", "coordinates": [1, 1]}
    }
  ]
}`

func TestLoadGeoJSONExplodesMultiPolygons(t *testing.T) {
	polys, err := LoadGeoJSON(strings.NewReader(boundariesJSON), "code", "name")
	require.NoError(t, err)
	require.Len(t, polys, 3)

	assert.Equal(t, Region{Code: "22", Name: "pomorskie"}, polys[0].Region)
	assert.Equal(t, Region{Code: "22", Name: "pomorskie"}, polys[1].Region)
	assert.Equal(t, Region{Code: "32", Name: "zachodniopomorskie"}, polys[2].Region)

	r := NewResolver(polys, nil)
	assert.Equal(t, 3, r.PolygonCount())
	assert.Len(t, r.Regions(), 2)

	got, ok := r.Resolve(11, 11)
	require.True(t, ok)
	assert.Equal(t, "22", got.Code)

	_, ok = r.Resolve(7, 7)
	assert.False(t, ok)
}

func TestLoadGeoJSONRequiresCode(t *testing.T) {
	_, err := LoadGeoJSON(strings.NewReader(boundariesJSON), "teryt", "name")
	assert.Error(t, err)
}
