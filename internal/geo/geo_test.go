package geo

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

func TestDistanceKm(t *testing.T) {
	points := []Point{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 1},
		{Lat: 23.0225, Lon: 72.5714},
		{Lat: -33.8688, Lon: 151.2093},
		{Lat: 89.9, Lon: -179.9},
	}

	t.Run("symmetric and zero on identity", func(t *testing.T) {
		for _, a := range points {
			assert.Zero(t, DistanceKm(a, a))
			for _, b := range points {
				assert.InDelta(t, DistanceKm(a, b), DistanceKm(b, a), 1e-9)
				assert.GreaterOrEqual(t, DistanceKm(a, b), 0.0)
			}
		}
	})

	t.Run("one degree of longitude at the equator", func(t *testing.T) {
		assert.InDelta(t, 111.195, DistanceKm(Point{0, 0}, Point{0, 1}), 0.01)
	})

	t.Run("NaN propagates", func(t *testing.T) {
		assert.True(t, math.IsNaN(DistanceKm(Point{math.NaN(), 0}, Point{0, 0})))
	})
}

func TestBearingDegrees(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
	}{
		{"north", Point{0, 0}, Point{1, 0}, 0},
		{"east", Point{0, 0}, Point{0, 1}, 90},
		{"south", Point{1, 0}, Point{0, 0}, 180},
		{"west", Point{0, 1}, Point{0, 0}, 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, BearingDegrees(tt.a, tt.b), 1e-6)
		})
	}

	t.Run("always within range", func(t *testing.T) {
		for lat := -80.0; lat <= 80; lat += 20 {
			for lon := -170.0; lon <= 170; lon += 20 {
				b := BearingDegrees(Point{10, 10}, Point{lat, lon})
				assert.GreaterOrEqual(t, b, 0.0)
				assert.Less(t, b, 360.0)
			}
		}
	})
}

func TestAngleDiff(t *testing.T) {
	assert.InDelta(t, 20.0, AngleDiff(350, 10), 1e-9)
	assert.InDelta(t, 180.0, AngleDiff(0, 180), 1e-9)
	assert.InDelta(t, 90.0, AngleDiff(-45, 45), 1e-9)
	assert.InDelta(t, 0.0, AngleDiff(720, 0), 1e-9)
}

func TestInterpolate(t *testing.T) {
	a, b := Point{0, 0}, Point{2, 4}
	assert.Equal(t, a, Interpolate(a, b, -1))
	assert.Equal(t, b, Interpolate(a, b, 2))
	assert.Equal(t, Point{1, 2}, Interpolate(a, b, 0.5))
}

func TestValidatePoint(t *testing.T) {
	require.NoError(t, ValidatePoint(Point{23.02, 72.57}, ""))

	err := ValidatePoint(Point{91, 0}, "")
	var ce *CoordinateError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "lat", ce.Field)

	err = ValidatePoint(Point{0, math.Inf(1)}, "to")
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "to_lon", ce.Field)

	assert.Error(t, ValidateLatitude(math.NaN(), "lat"))
}

func TestGeoJSONRoundTrip(t *testing.T) {
	path := []Point{{Lat: 23.0225, Lon: 72.5714}, {Lat: 23.03, Lon: 72.58}}

	raw, err := PathToGeoJSON(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"LineString"`)

	back, err := PathFromGeoJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, path, back)
}

func TestPathFromGeoJSON(t *testing.T) {
	t.Run("feature wrapper", func(t *testing.T) {
		raw := []byte(`{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[72.5,23.0],[72.6,23.1]]}}`)
		path, err := PathFromGeoJSON(raw)
		require.NoError(t, err)
		assert.Equal(t, []Point{{23.0, 72.5}, {23.1, 72.6}}, path)
	})

	t.Run("point is rejected", func(t *testing.T) {
		_, err := PathFromGeoJSON([]byte(`{"type":"Point","coordinates":[72.5,23.0]}`))
		assert.ErrorIs(t, err, ErrNotLineString)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := PathFromGeoJSON([]byte(`not json`))
		assert.Error(t, err)
	})

	t.Run("empty is no path", func(t *testing.T) {
		path, err := PathFromGeoJSON(nil)
		require.NoError(t, err)
		assert.Nil(t, path)
	})
}

func TestPathFromWKB(t *testing.T) {
	ls := geom.NewLineStringFlat(geom.XY, []float64{72.5, 23.0, 72.6, 23.1, 72.7, 23.2})
	b, err := wkb.Marshal(ls, binary.LittleEndian)
	require.NoError(t, err)

	path, err := PathFromWKB(b)
	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.Equal(t, Point{23.2, 72.7}, path[2])

	_, err = PathFromWKB([]byte{0x01, 0x02})
	assert.Error(t, err)
}
