package graph

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// nodeLinkDoc is the node-link JSON interchange format produced by common
// street-network exporters. Node coordinates are planar x/y; links may carry
// an explicit geometry as [[x, y], ...].
type nodeLinkDoc struct {
	Directed bool           `json:"directed"`
	Nodes    []nodeLinkNode `json:"nodes"`
	Links    []nodeLinkEdge `json:"links"`
}

type nodeLinkNode struct {
	ID any     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

type nodeLinkEdge struct {
	Source   any         `json:"source"`
	Target   any         `json:"target"`
	Length   float64     `json:"length,omitempty"`
	Risk     float64     `json:"risk,omitempty"`
	Geometry [][]float64 `json:"geometry,omitempty"`
}

// FromNodeLink builds a graph from a node-link JSON document. Edge lengths
// are recomputed from geometry; a graph with zero edges is a BuildError.
func FromNodeLink(r io.Reader) (*Graph, error) {
	var doc nodeLinkDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &BuildError{Source: "node-link", Err: eris.Wrap(err, "decode")}
	}

	g := New()
	for _, n := range doc.Nodes {
		id, ok := parseID(n.ID)
		if !ok {
			zap.L().Warn("skipping node with unparseable id", zap.Any("id", n.ID))
			continue
		}
		g.AddNode(Node{ID: id, X: n.X, Y: n.Y})
	}

	skipped := 0
	for _, l := range doc.Links {
		src, okS := parseID(l.Source)
		dst, okT := parseID(l.Target)
		if !okS || !okT || !g.HasNode(src) || !g.HasNode(dst) {
			skipped++
			continue
		}
		var coords []geom.Coord
		for _, pt := range l.Geometry {
			if len(pt) >= 2 {
				coords = append(coords, geom.Coord{pt[0], pt[1]})
			}
		}
		e, err := g.AddEdge(src, dst, coords)
		if err != nil {
			skipped++
			continue
		}
		e.Risk = l.Risk
	}
	if skipped > 0 {
		zap.L().Warn("skipped links with missing endpoints", zap.Int("count", skipped))
	}

	if g.EdgeCount() == 0 {
		return nil, &BuildError{Source: "node-link", Err: eris.New("no edges")}
	}
	return g, nil
}

// WriteNodeLink serializes the graph to node-link JSON, the exchange format
// consumed by downstream visualization.
func (g *Graph) WriteNodeLink(w io.Writer) error {
	doc := nodeLinkDoc{
		Nodes: make([]nodeLinkNode, 0, len(g.Nodes)),
		Links: make([]nodeLinkEdge, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		doc.Nodes = append(doc.Nodes, nodeLinkNode{ID: n.ID, X: n.X, Y: n.Y})
	}
	for _, e := range g.Edges {
		link := nodeLinkEdge{
			Source: e.From,
			Target: e.To,
			Length: e.Length,
			Risk:   e.Risk,
		}
		flat := e.Geometry.FlatCoords()
		for i := 0; i+1 < len(flat); i += 2 {
			link.Geometry = append(link.Geometry, []float64{flat[i], flat[i+1]})
		}
		doc.Links = append(doc.Links, link)
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(doc); err != nil {
		return eris.Wrap(err, "graph: encode node-link")
	}
	return nil
}

// parseID extracts an int64 node id from the loosely typed ids that
// node-link exports carry (JSON numbers decode as float64, osm ids are
// sometimes strings).
func parseID(v any) (int64, bool) {
	switch id := v.(type) {
	case float64:
		return int64(id), true
	case int64:
		return id, true
	case int:
		return int64(id), true
	case json.Number:
		n, err := id.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err == nil {
			return n, true
		}
		// Non-numeric string ids get a stable hash.
		var h int64
		for _, c := range id {
			h = h*31 + int64(c)
		}
		if h < 0 {
			h = -h
		}
		return h, true
	default:
		return 0, false
	}
}
