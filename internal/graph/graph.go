// Package graph models a walkable street network: nodes are intersections in
// planar (projected) coordinates, edges are street segments carrying their
// full geometry, a length in meters, and a risk score assigned after
// construction. Once risk is assigned the graph is treated as read-only by
// the search layer.
package graph

import (
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
)

// BuildError reports a failure to construct a usable street graph: an
// unreadable source, an empty region, or a graph with no edges.
type BuildError struct {
	Source string
	Err    error
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("graph: build from %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("graph: build from %s failed", e.Source)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Node is an intersection in planar coordinates (meters).
type Node struct {
	ID int64
	X  float64
	Y  float64
}

// Edge is a street segment between two nodes. Geometry holds the full
// polyline in planar coordinates; Length is its accumulated geometric
// length. Risk is zero until assigned.
type Edge struct {
	ID       int
	From     int64
	To       int64
	Geometry *geom.LineString
	Length   float64
	Risk     float64
}

// Graph is a street network. Edges are undirected for walking: each is
// stored once and traversed in both directions. Parallel edges between the
// same endpoints are kept distinct.
type Graph struct {
	Nodes map[int64]Node
	Edges []*Edge

	adj map[int64][]int // node id -> indices into Edges
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		Nodes: make(map[int64]Node),
		adj:   make(map[int64][]int),
	}
}

// AddNode inserts or replaces a node.
func (g *Graph) AddNode(n Node) {
	g.Nodes[n.ID] = n
}

// AddEdge appends an edge between from and to with the given planar
// geometry. The first and last coordinates are expected to coincide with the
// endpoint nodes. Length is computed from the geometry. If coords has fewer
// than two points, a straight segment between the endpoint nodes is used.
func (g *Graph) AddEdge(from, to int64, coords []geom.Coord) (*Edge, error) {
	nf, ok := g.Nodes[from]
	if !ok {
		return nil, fmt.Errorf("graph: edge references unknown node %d", from)
	}
	nt, ok := g.Nodes[to]
	if !ok {
		return nil, fmt.Errorf("graph: edge references unknown node %d", to)
	}

	if len(coords) < 2 {
		coords = []geom.Coord{{nf.X, nf.Y}, {nt.X, nt.Y}}
	}

	flat := make([]float64, 0, len(coords)*2)
	for _, c := range coords {
		flat = append(flat, c[0], c[1])
	}
	ls := geom.NewLineStringFlat(geom.XY, flat)

	e := &Edge{
		ID:       len(g.Edges),
		From:     from,
		To:       to,
		Geometry: ls,
		Length:   polylineLength(flat),
	}
	g.Edges = append(g.Edges, e)
	g.adj[from] = append(g.adj[from], e.ID)
	if to != from {
		g.adj[to] = append(g.adj[to], e.ID)
	}
	return e, nil
}

// Incident returns the indices of edges touching the given node, in
// insertion order.
func (g *Graph) Incident(id int64) []int { return g.adj[id] }

// Other returns the endpoint of edge e opposite to node id.
func (e *Edge) Other(id int64) int64 {
	if e.From == id {
		return e.To
	}
	return e.From
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.Nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.Edges) }

// HasNode reports whether the node id exists.
func (g *Graph) HasNode(id int64) bool {
	_, ok := g.Nodes[id]
	return ok
}

// NearestNode returns the node closest to (x, y) by planar distance, along
// with that distance in meters. Returns false if the graph has no nodes.
func (g *Graph) NearestNode(x, y float64) (Node, float64, bool) {
	var best Node
	bestDist := math.Inf(1)
	found := false
	for _, n := range g.Nodes {
		d := math.Hypot(n.X-x, n.Y-y)
		if d < bestDist || (d == bestDist && found && n.ID < best.ID) {
			best = n
			bestDist = d
			found = true
		}
	}
	return best, bestDist, found
}

// Bounds returns the planar bounding box of all nodes as (minX, minY, maxX,
// maxY). Returns zeros for an empty graph.
func (g *Graph) Bounds() (minX, minY, maxX, maxY float64) {
	first := true
	for _, n := range g.Nodes {
		if first {
			minX, maxX = n.X, n.X
			minY, maxY = n.Y, n.Y
			first = false
			continue
		}
		minX = math.Min(minX, n.X)
		maxX = math.Max(maxX, n.X)
		minY = math.Min(minY, n.Y)
		maxY = math.Max(maxY, n.Y)
	}
	return minX, minY, maxX, maxY
}

// polylineLength sums segment lengths over XY flat coordinates.
func polylineLength(flat []float64) float64 {
	var total float64
	for i := 2; i < len(flat); i += 2 {
		total += math.Hypot(flat[i]-flat[i-2], flat[i+1]-flat[i-1])
	}
	return total
}
