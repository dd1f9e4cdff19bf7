package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safewalk/safewalk-cli/internal/route"
)

func TestSnapEndpoint_NearbyPoint(t *testing.T) {
	e := newTestEngine(t)

	id, err := snapEndpoint(e.g, e.p, 42.3600, -71.0600)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestSnapEndpoint_OutsideZone(t *testing.T) {
	e := newTestEngine(t)

	// London does not project into the graph's UTM zone at all; the
	// geodesic coverage check must still report a snap distance.
	_, err := snapEndpoint(e.g, e.p, 51.5074, -0.1278)
	require.Error(t, err)
	var tooFar *route.SnapTooFarError
	require.ErrorAs(t, err, &tooFar)
	assert.Greater(t, tooFar.Meters, 1_000_000.0)
}

func TestSnapEndpoint_TooFarInZone(t *testing.T) {
	e := newTestEngine(t)

	_, err := snapEndpoint(e.g, e.p, 42.5000, -71.0600)
	var tooFar *route.SnapTooFarError
	require.ErrorAs(t, err, &tooFar)
}

func TestParseLatLonLiteral(t *testing.T) {
	lat, lon, ok := parseLatLonLiteral("42.36, -71.06")
	require.True(t, ok)
	assert.InDelta(t, 42.36, lat, 1e-9)
	assert.InDelta(t, -71.06, lon, 1e-9)

	_, _, ok = parseLatLonLiteral("10 Main St, Boston")
	assert.False(t, ok)

	_, _, ok = parseLatLonLiteral("not coordinates")
	assert.False(t, ok)
}
