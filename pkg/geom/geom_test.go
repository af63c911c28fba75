package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeqfu/datakit/pkg/errors"
)

// Grid references of the four cities used across the examples.
var cities = map[string]Point{
	"London":     {X: 530034, Y: 180381},
	"Birmingham": {X: 406689, Y: 286822},
	"Manchester": {X: 383819, Y: 398052},
	"Leeds":      {X: 430147, Y: 433553},
}

func TestOSGB36ToWGS84KnownPoints(t *testing.T) {
	// Single-Helmert accuracy is a few metres, well inside 0.01 deg.
	lon, lat := OSGB36ToWGS84(cities["London"].X, cities["London"].Y)
	assert.InDelta(t, -0.1276, lon, 0.01)
	assert.InDelta(t, 51.5074, lat, 0.01)

	lon, lat = OSGB36ToWGS84(cities["Manchester"].X, cities["Manchester"].Y)
	assert.InDelta(t, -2.2452, lon, 0.01)
	assert.InDelta(t, 53.4794, lat, 0.01)
}

func TestGridRoundTrip(t *testing.T) {
	for name, p := range cities {
		lon, lat := OSGB36ToWGS84(p.X, p.Y)
		e, n := WGS84ToOSGB36(lon, lat)
		assert.InDelta(t, p.X, e, 0.01, name)
		assert.InDelta(t, p.Y, n, 0.01, name)
	}
}

func TestLonLatRoundTrip(t *testing.T) {
	coords := [][2]float64{
		{-0.1276, 51.5074}, // London
		{-3.1791, 51.4816}, // Cardiff
		{-4.2518, 55.8642}, // Glasgow
		{1.2974, 52.6309},  // Norwich
	}
	for _, c := range coords {
		e, n := WGS84ToOSGB36(c[0], c[1])
		lon, lat := OSGB36ToWGS84(e, n)
		assert.InDelta(t, c[0], lon, 1e-6)
		assert.InDelta(t, c[1], lat, 1e-6)
	}
}

func TestSliceTransforms(t *testing.T) {
	eastings := []float64{530034, 406689}
	northings := []float64{180381, 286822}

	lons, lats, err := OSGB36ToWGS84Slice(eastings, northings)
	require.NoError(t, err)
	require.Len(t, lons, 2)

	e2, n2, err := WGS84ToOSGB36Slice(lons, lats)
	require.NoError(t, err)
	for i := range eastings {
		assert.InDelta(t, eastings[i], e2[i], 0.01)
		assert.InDelta(t, northings[i], n2[i], 0.01)
	}

	_, _, err = OSGB36ToWGS84Slice(eastings, northings[:1])
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestFarOutsideDomainDoesNotError(t *testing.T) {
	// Projection-defined garbage, not a custom error kind.
	assert.NotPanics(t, func() {
		lon, lat := OSGB36ToWGS84(-1e7, 1e7)
		_ = math.IsNaN(lon)
		_ = math.IsNaN(lat)
	})
}

func TestDistanceAndMidpoint(t *testing.T) {
	a := Point{X: 0, Y: 0}
	b := Point{X: 3, Y: 4}

	assert.Equal(t, 5.0, Distance(a, b))
	assert.Equal(t, Point{X: 1.5, Y: 2}, Midpoint(a, b))
}

func TestClosestPoint(t *testing.T) {
	candidates := []Point{cities["Birmingham"], cities["Manchester"], cities["Leeds"]}

	nearest, idx, err := ClosestPoint(cities["London"], candidates)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, cities["Birmingham"], nearest)

	_, idx, err = ClosestPoint(cities["London"], nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeEmptyCandidates))
	assert.Equal(t, -1, idx)
}

func TestClosestPointTieKeepsFirst(t *testing.T) {
	candidates := []Point{{X: 1, Y: 0}, {X: -1, Y: 0}}
	_, idx, err := ClosestPoint(Point{}, candidates)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}
