package graph

import (
	"fmt"
	"math"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/safewalk/safewalk-cli/internal/proj"
)

// Endpoints closer than this (meters) collapse into one intersection node
// when reading street centerlines.
const snapGridMeters = 0.5

// FromShapefile builds a graph from a polyline shapefile of walkable street
// centerlines with WGS84 coordinates. Each polyline part becomes one edge;
// endpoints within snapGridMeters of each other share a node. Projection
// failures on individual shapes skip the shape rather than failing the
// build; a build that yields zero edges is a BuildError.
func FromShapefile(path string, p *proj.Projector) (*Graph, error) {
	if p == nil {
		return nil, &BuildError{Source: path, Err: eris.New("nil projector")}
	}

	r, err := shp.Open(path)
	if err != nil {
		return nil, &BuildError{Source: path, Err: eris.Wrap(err, "open shapefile")}
	}
	defer r.Close()

	g := New()
	snap := newNodeSnapper(g)
	shapes, skipped := 0, 0

	for r.Next() {
		_, shape := r.Shape()
		pl, ok := shape.(*shp.PolyLine)
		if !ok || pl.NumParts == 0 || len(pl.Points) == 0 {
			skipped++
			continue
		}
		shapes++

		for part := int32(0); part < pl.NumParts; part++ {
			start := pl.Parts[part]
			end := int32(len(pl.Points))
			if part+1 < pl.NumParts {
				end = pl.Parts[part+1]
			}
			if end-start < 2 {
				continue
			}

			coords := make([]geom.Coord, 0, end-start)
			bad := false
			for i := start; i < end; i++ {
				x, y, perr := p.ToPlanar(pl.Points[i].X, pl.Points[i].Y)
				if perr != nil {
					bad = true
					break
				}
				coords = append(coords, geom.Coord{x, y})
			}
			if bad {
				skipped++
				continue
			}

			from := snap.nodeAt(coords[0])
			to := snap.nodeAt(coords[len(coords)-1])
			if _, err := g.AddEdge(from, to, coords); err != nil {
				return nil, &BuildError{Source: path, Err: err}
			}
		}
	}
	if err := r.Err(); err != nil {
		return nil, &BuildError{Source: path, Err: eris.Wrap(err, "read shapefile")}
	}

	if skipped > 0 {
		zap.L().Warn("skipped shapefile parts", zap.String("path", path), zap.Int("count", skipped))
	}
	if g.EdgeCount() == 0 {
		return nil, &BuildError{Source: path, Err: eris.New("no edges")}
	}

	zap.L().Info("built graph from shapefile",
		zap.String("path", path),
		zap.Int("shapes", shapes),
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
	)
	return g, nil
}

// nodeSnapper deduplicates segment endpoints onto shared nodes using a
// half-meter grid, so intersecting centerlines connect.
type nodeSnapper struct {
	g      *Graph
	nextID int64
	byCell map[string]int64
}

func newNodeSnapper(g *Graph) *nodeSnapper {
	return &nodeSnapper{g: g, nextID: 1, byCell: make(map[string]int64)}
}

func (s *nodeSnapper) nodeAt(c geom.Coord) int64 {
	key := fmt.Sprintf("%d:%d",
		int64(math.Round(c[0]/snapGridMeters)),
		int64(math.Round(c[1]/snapGridMeters)),
	)
	if id, ok := s.byCell[key]; ok {
		return id
	}
	id := s.nextID
	s.nextID++
	s.byCell[key] = id
	s.g.AddNode(Node{ID: id, X: c[0], Y: c[1]})
	return id
}
