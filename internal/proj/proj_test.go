package proj

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForLonLat_PicksZone(t *testing.T) {
	// Boston sits in UTM zone 19N.
	p, err := ForLonLat(-71.0589, 42.3601)
	require.NoError(t, err)
	assert.Equal(t, 19, p.Zone())
	assert.False(t, p.South())

	// Sydney is zone 56S.
	p, err = ForLonLat(151.2093, -33.8688)
	require.NoError(t, err)
	assert.Equal(t, 56, p.Zone())
	assert.True(t, p.South())
}

func TestRoundTrip(t *testing.T) {
	points := []struct {
		name     string
		lon, lat float64
	}{
		{"boston common", -71.0656, 42.3550},
		{"east boston", -71.0216, 42.3702},
		{"roxbury", -71.0903, 42.3152},
		{"zone edge", -72.5, 42.0},
		{"sydney", 151.2093, -33.8688},
	}

	for _, pt := range points {
		t.Run(pt.name, func(t *testing.T) {
			p, err := ForLonLat(pt.lon, pt.lat)
			require.NoError(t, err)

			x, y, err := p.ToPlanar(pt.lon, pt.lat)
			require.NoError(t, err)

			lon, lat, err := p.ToGeographic(x, y)
			require.NoError(t, err)

			// < 1 cm: a degree of latitude is ~111 km, so 1 cm is ~9e-8 deg.
			assert.InDelta(t, pt.lon, lon, 1e-7)
			assert.InDelta(t, pt.lat, lat, 1e-7)
		})
	}
}

func TestToPlanar_KnownPoint(t *testing.T) {
	// Boston City Hall, zone 19N: easting ~330 km, northing ~4691 km.
	p, err := New(19, false)
	require.NoError(t, err)

	x, y, err := p.ToPlanar(-71.0589, 42.3601)
	require.NoError(t, err)
	assert.InDelta(t, 330000, x, 2000)
	assert.InDelta(t, 4691000, y, 2000)
}

func TestToPlanar_DistancesInMeters(t *testing.T) {
	// Two points ~1.11 km apart along a meridian.
	p, err := New(19, false)
	require.NoError(t, err)

	_, y1, err := p.ToPlanar(-71.06, 42.35)
	require.NoError(t, err)
	_, y2, err := p.ToPlanar(-71.06, 42.36)
	require.NoError(t, err)

	assert.InDelta(t, 1110, y2-y1, 5)
}

func TestToPlanar_OutsideDomain(t *testing.T) {
	p, err := New(19, false)
	require.NoError(t, err)

	tests := []struct {
		name     string
		lon, lat float64
	}{
		{"polar latitude", -71.06, 89.0},
		{"antarctic latitude", -71.06, -85.0},
		{"bad longitude", -200.0, 42.35},
		{"wrong zone", 10.0, 42.35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := p.ToPlanar(tt.lon, tt.lat)
			require.Error(t, err)
			var perr *ProjectionError
			assert.True(t, errors.As(err, &perr))
		})
	}
}

func TestToGeographic_OutsideDomain(t *testing.T) {
	p, err := New(19, false)
	require.NoError(t, err)

	_, _, err = p.ToGeographic(-5, 4690000)
	var perr *ProjectionError
	require.True(t, errors.As(err, &perr))

	_, _, err = p.ToGeographic(330000, 20000000)
	require.True(t, errors.As(err, &perr))
}

func TestNew_InvalidZone(t *testing.T) {
	_, err := New(0, false)
	assert.Error(t, err)
	_, err = New(61, false)
	assert.Error(t, err)
}
