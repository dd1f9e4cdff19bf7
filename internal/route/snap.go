package route

import (
	"github.com/golang/geo/s2"

	"github.com/safewalk/safewalk-cli/internal/graph"
)

// DefaultSnapMaxMeters is the sanity threshold for resolving a raw
// coordinate to its nearest graph node. Beyond this the coordinate probably
// came from a bad geocode or lies outside the graph's coverage.
const DefaultSnapMaxMeters = 500.0

const earthRadiusMeters = 6371010.0

// ResolveEndpoint snaps a planar coordinate to the nearest graph node. If
// the nearest node is farther than maxMeters the mismatch is reported via
// SnapTooFarError rather than silently accepted.
func ResolveEndpoint(g *graph.Graph, x, y, maxMeters float64) (int64, error) {
	if maxMeters <= 0 {
		maxMeters = DefaultSnapMaxMeters
	}
	n, dist, ok := g.NearestNode(x, y)
	if !ok {
		return 0, &InvalidNodeError{ID: -1}
	}
	if dist > maxMeters {
		return 0, &SnapTooFarError{Meters: dist, Max: maxMeters}
	}
	return n.ID, nil
}

// GreatCircleMeters returns the geodesic distance between two geographic
// points. Used to sanity-check geocoder output against graph coverage
// before projection.
func GreatCircleMeters(lat1, lon1, lat2, lon2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	return a.Distance(b).Radians() * earthRadiusMeters
}
