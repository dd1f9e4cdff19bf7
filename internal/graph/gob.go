package graph

import (
	"encoding/gob"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// gobGraph is the on-disk cache representation. Edge geometry is stored as
// flat XY coordinates so risk-weighted graphs survive between runs without
// re-fetching or re-sampling.
type gobGraph struct {
	Nodes []Node
	Edges []gobEdge
}

type gobEdge struct {
	From   int64
	To     int64
	Coords []float64
	Risk   float64
}

// SaveGob writes the graph to path.
func (g *Graph) SaveGob(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "graph: create cache file")
	}
	defer f.Close()

	gg := gobGraph{Nodes: make([]Node, 0, len(g.Nodes)), Edges: make([]gobEdge, 0, len(g.Edges))}
	for _, n := range g.Nodes {
		gg.Nodes = append(gg.Nodes, n)
	}
	for _, e := range g.Edges {
		gg.Edges = append(gg.Edges, gobEdge{
			From:   e.From,
			To:     e.To,
			Coords: e.Geometry.FlatCoords(),
			Risk:   e.Risk,
		})
	}

	if err := gob.NewEncoder(f).Encode(gg); err != nil {
		return eris.Wrap(err, "graph: encode cache")
	}
	return nil
}

// LoadGob reads a graph previously written by SaveGob.
func LoadGob(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "graph: open cache file")
	}
	defer f.Close()

	var gg gobGraph
	if err := gob.NewDecoder(f).Decode(&gg); err != nil {
		return nil, eris.Wrap(err, "graph: decode cache")
	}

	g := New()
	for _, n := range gg.Nodes {
		g.AddNode(n)
	}
	for _, ge := range gg.Edges {
		coords := make([]geom.Coord, 0, len(ge.Coords)/2)
		for i := 0; i+1 < len(ge.Coords); i += 2 {
			coords = append(coords, geom.Coord{ge.Coords[i], ge.Coords[i+1]})
		}
		e, err := g.AddEdge(ge.From, ge.To, coords)
		if err != nil {
			return nil, eris.Wrap(err, "graph: rebuild edge from cache")
		}
		e.Risk = ge.Risk
	}
	return g, nil
}
