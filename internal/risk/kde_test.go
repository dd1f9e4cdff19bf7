package risk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clusterEvents() []Event {
	return []Event{
		{X: 0, Y: 0, Weight: 5},
		{X: 100, Y: 0, Weight: 3},
		{X: 0, Y: 100, Weight: 4},
		{X: 50, Y: 50, Weight: 2},
	}
}

func TestNewSurface_InvalidBandwidth(t *testing.T) {
	for _, h := range []float64{0, -1, -150} {
		_, err := NewSurface(clusterEvents(), h)
		require.Error(t, err)
		var ierr *InvalidParameterError
		assert.True(t, errors.As(err, &ierr))
		assert.Equal(t, "bandwidth", ierr.Name)
	}
}

func TestDensity_NonNegative(t *testing.T) {
	s, err := NewSurface(clusterEvents(), 50)
	require.NoError(t, err)

	for _, pt := range [][2]float64{{0, 0}, {1000, 1000}, {-500, 300}, {50, 50}} {
		assert.GreaterOrEqual(t, s.Density(pt[0], pt[1]), 0.0)
	}
}

func TestDensity_EmptyEventsIsZeroEverywhere(t *testing.T) {
	// An empty time bucket is a valid state, not an error.
	s, err := NewSurface(nil, 150)
	require.NoError(t, err)
	assert.Zero(t, s.Density(0, 0))
	assert.Zero(t, s.Density(12345, -9876))
	assert.Zero(t, s.EventCount())
}

func TestDensity_Deterministic(t *testing.T) {
	events := clusterEvents()
	s1, err := NewSurface(events, 75)
	require.NoError(t, err)
	s2, err := NewSurface(events, 75)
	require.NoError(t, err)

	for _, pt := range [][2]float64{{0, 0}, {30, 70}, {99, 1}} {
		assert.Equal(t, s1.Density(pt[0], pt[1]), s2.Density(pt[0], pt[1]))
	}
}

func TestDensity_HigherNearEvents(t *testing.T) {
	s, err := NewSurface(clusterEvents(), 50)
	require.NoError(t, err)
	assert.Greater(t, s.Density(0, 0), s.Density(500, 500))
}

func TestDensity_WeightMonotonicity(t *testing.T) {
	// Increasing one event's weight must not decrease density near it.
	base := clusterEvents()
	boosted := clusterEvents()
	boosted[0].Weight = 50

	s1, err := NewSurface(base, 50)
	require.NoError(t, err)
	s2, err := NewSurface(boosted, 50)
	require.NoError(t, err)

	// Within the kernel's effective support of the boosted event.
	assert.Greater(t, s2.Density(5, 5), s1.Density(5, 5))
}

func TestNewSurface_DropsNonPositiveWeights(t *testing.T) {
	s, err := NewSurface([]Event{
		{X: 0, Y: 0, Weight: 0},
		{X: 10, Y: 10, Weight: -3},
		{X: 20, Y: 20, Weight: 1},
	}, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, s.EventCount())
}

func TestNewSurfaceAuto_ScottRule(t *testing.T) {
	s, err := NewSurfaceAuto(clusterEvents())
	require.NoError(t, err)
	assert.Greater(t, s.Bandwidth(), 0.0)
	// Spread of ~50 m with n_eff ~3.5 should land well under the fallback.
	assert.Less(t, s.Bandwidth(), DefaultBandwidthMeters)
}

func TestNewSurfaceAuto_DegenerateFallsBack(t *testing.T) {
	// All events at one point: Scott's rule degenerates.
	s, err := NewSurfaceAuto([]Event{
		{X: 10, Y: 10, Weight: 1},
		{X: 10, Y: 10, Weight: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultBandwidthMeters, s.Bandwidth())

	// Single event likewise.
	s, err = NewSurfaceAuto([]Event{{X: 10, Y: 10, Weight: 1}})
	require.NoError(t, err)
	assert.Equal(t, DefaultBandwidthMeters, s.Bandwidth())
}

func TestGrid(t *testing.T) {
	s, err := NewSurface(clusterEvents(), 50)
	require.NoError(t, err)

	grid, err := s.Grid(-100, -100, 200, 200, 4, 3)
	require.NoError(t, err)
	require.Len(t, grid, 3)
	for _, row := range grid {
		require.Len(t, row, 4)
		for _, v := range row {
			assert.GreaterOrEqual(t, v, 0.0)
		}
	}

	_, err = s.Grid(0, 0, 1, 1, 1, 5)
	assert.Error(t, err)
}
