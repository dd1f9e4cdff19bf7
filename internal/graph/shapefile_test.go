package graph

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safewalk/safewalk-cli/internal/proj"
)

// writeStreetShapefile writes two centerlines that share an endpoint, in
// WGS84 lon/lat near downtown Boston.
func writeStreetShapefile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "streets.shp")

	w, err := shp.Create(path, shp.POLYLINE)
	require.NoError(t, err)

	lines := [][][]shp.Point{
		{{{X: -71.060, Y: 42.355}, {X: -71.059, Y: 42.355}}},
		{{{X: -71.059, Y: 42.355}, {X: -71.059, Y: 42.356}}},
	}
	for _, parts := range lines {
		w.Write(shp.NewPolyLine(parts))
	}
	w.Close()
	return path
}

func TestFromShapefile(t *testing.T) {
	path := writeStreetShapefile(t)
	p, err := proj.New(19, false)
	require.NoError(t, err)

	g, err := FromShapefile(path, p)
	require.NoError(t, err)

	// Two segments sharing one endpoint: three nodes, two edges.
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 2, g.EdgeCount())

	// ~0.001 degrees of longitude at 42°N is ~82 m; of latitude ~111 m.
	assert.InDelta(t, 82, g.Edges[0].Length, 5)
	assert.InDelta(t, 111, g.Edges[1].Length, 5)

	// The shared endpoint connects the two edges.
	shared := g.Edges[0].To
	if len(g.Incident(shared)) < 2 {
		shared = g.Edges[0].From
	}
	assert.Len(t, g.Incident(shared), 2)
}

func TestFromShapefile_MissingFile(t *testing.T) {
	p, err := proj.New(19, false)
	require.NoError(t, err)

	_, err = FromShapefile(filepath.Join(t.TempDir(), "nope.shp"), p)
	var berr *BuildError
	require.True(t, errors.As(err, &berr))
}

func TestFromShapefile_NilProjector(t *testing.T) {
	_, err := FromShapefile("whatever.shp", nil)
	var berr *BuildError
	assert.True(t, errors.As(err, &berr))
}
