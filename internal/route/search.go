package route

import (
	"container/heap"
	"math"

	"github.com/safewalk/safewalk-cli/internal/graph"
)

// DefaultMaxExpansions caps how many nodes a single search may settle. City
// walk graphs run a few hundred thousand nodes; this bounds runaway searches
// on malformed inputs without constraining real queries.
const DefaultMaxExpansions = 5_000_000

// WalkSpeedMetersPerMinute is a typical walking pace (5 km/h).
const WalkSpeedMetersPerMinute = 5000.0 / 60.0

// Weights blends distance and risk into the composite edge cost
// alpha*length + beta*risk. Both must be non-negative and not both zero.
// Alpha=1, Beta=0 recovers the pure shortest-distance path.
type Weights struct {
	Alpha float64
	Beta  float64
}

// Validate checks the weights are usable.
func (w Weights) Validate() error {
	if w.Alpha < 0 || math.IsNaN(w.Alpha) {
		return &InvalidParameterError{Name: "alpha", Value: w.Alpha, Reason: "must be non-negative"}
	}
	if w.Beta < 0 || math.IsNaN(w.Beta) {
		return &InvalidParameterError{Name: "beta", Value: w.Beta, Reason: "must be non-negative"}
	}
	if w.Alpha == 0 && w.Beta == 0 {
		return &InvalidParameterError{Name: "alpha/beta", Reason: "must not both be zero"}
	}
	return nil
}

// Cost returns the composite cost of one edge.
func (w Weights) Cost(e *graph.Edge) float64 {
	return w.Alpha*e.Length + w.Beta*e.Risk
}

// Options tunes a single search.
type Options struct {
	MaxExpansions int  // settled-node cap; DefaultMaxExpansions if zero
	AStar         bool // use alpha*straight-line distance as heuristic
}

// Route is a connected walk from start to end. Consecutive edges share an
// endpoint; Cost is the sum of the per-edge composite costs.
type Route struct {
	NodeIDs []int64      `json:"node_ids"`
	EdgeIDs []int        `json:"edge_ids"`
	Coords  [][2]float64 `json:"coords"`
	Length  float64      `json:"length_m"`
	Risk    float64      `json:"risk"`
	Cost    float64      `json:"cost"`
}

// WalkMinutes estimates the walking time along the route.
func (r *Route) WalkMinutes() float64 {
	return r.Length / WalkSpeedMetersPerMinute
}

// pqItem is a frontier entry. seq is a monotonically increasing discovery
// counter: ties in priority resolve in discovery order, so results are
// deterministic for a fixed graph and weights.
type pqItem struct {
	node     int64
	priority float64
	seq      int
}

type frontier []*pqItem

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].priority != f[j].priority {
		return f[i].priority < f[j].priority
	}
	return f[i].seq < f[j].seq
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)   { *f = append(*f, x.(*pqItem)) }
func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}

// Find runs Dijkstra (or A* when opts.AStar is set) from start to end over
// the composite cost. The graph must be frozen: Find never mutates it and
// performs no I/O.
func Find(g *graph.Graph, start, end int64, w Weights, opts Options) (*Route, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if !g.HasNode(start) {
		return nil, &InvalidNodeError{ID: start}
	}
	if !g.HasNode(end) {
		return nil, &InvalidNodeError{ID: end}
	}
	maxExp := opts.MaxExpansions
	if maxExp <= 0 {
		maxExp = DefaultMaxExpansions
	}

	h := func(id int64) float64 { return 0 }
	if opts.AStar {
		// alpha * straight-line distance never exceeds alpha*length along
		// any walk, and risk is non-negative, so the heuristic is
		// admissible.
		target := g.Nodes[end]
		h = func(id int64) float64 {
			n := g.Nodes[id]
			return w.Alpha * math.Hypot(n.X-target.X, n.Y-target.Y)
		}
	}

	dist := map[int64]float64{start: 0}
	prevEdge := map[int64]int{}
	settled := map[int64]bool{}

	pq := &frontier{}
	heap.Init(pq)
	seq := 0
	heap.Push(pq, &pqItem{node: start, priority: h(start), seq: seq})

	expansions := 0
	for pq.Len() > 0 {
		item := heap.Pop(pq).(*pqItem)
		u := item.node
		if settled[u] {
			continue
		}
		settled[u] = true

		if u == end {
			return buildRoute(g, start, end, prevEdge, w), nil
		}

		expansions++
		if expansions > maxExp {
			return nil, &BudgetExceededError{Expansions: expansions}
		}

		du := dist[u]
		for _, ei := range g.Incident(u) {
			e := g.Edges[ei]
			v := e.Other(u)
			if settled[v] {
				continue
			}
			alt := du + w.Cost(e)
			if old, seen := dist[v]; !seen || alt < old {
				dist[v] = alt
				prevEdge[v] = ei
				seq++
				heap.Push(pq, &pqItem{node: v, priority: alt + h(v), seq: seq})
			}
		}
	}

	return nil, &NoPathError{Start: start, End: end}
}

// buildRoute reconstructs the path by walking predecessor edges back from
// end to start.
func buildRoute(g *graph.Graph, start, end int64, prevEdge map[int64]int, w Weights) *Route {
	r := &Route{}

	var edgeIDs []int
	var nodeIDs []int64
	for at := end; at != start; {
		ei := prevEdge[at]
		e := g.Edges[ei]
		edgeIDs = append(edgeIDs, ei)
		nodeIDs = append(nodeIDs, at)
		at = e.Other(at)
	}
	nodeIDs = append(nodeIDs, start)

	// Reverse into start→end order.
	for i, j := 0, len(edgeIDs)-1; i < j; i, j = i+1, j-1 {
		edgeIDs[i], edgeIDs[j] = edgeIDs[j], edgeIDs[i]
	}
	for i, j := 0, len(nodeIDs)-1; i < j; i, j = i+1, j-1 {
		nodeIDs[i], nodeIDs[j] = nodeIDs[j], nodeIDs[i]
	}
	r.EdgeIDs = edgeIDs
	r.NodeIDs = nodeIDs

	for i, ei := range edgeIDs {
		e := g.Edges[ei]
		r.Length += e.Length
		r.Risk += e.Risk
		r.Cost += w.Cost(e)

		coords := edgeCoordsFrom(e, nodeIDs[i])
		if i > 0 && len(coords) > 0 {
			coords = coords[1:] // shared vertex with the previous edge
		}
		r.Coords = append(r.Coords, coords...)
	}
	return r
}

// edgeCoordsFrom returns the edge geometry oriented to start at node from.
func edgeCoordsFrom(e *graph.Edge, from int64) [][2]float64 {
	flat := e.Geometry.FlatCoords()
	coords := make([][2]float64, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		coords = append(coords, [2]float64{flat[i], flat[i+1]})
	}
	if e.From != from {
		for i, j := 0, len(coords)-1; i < j; i, j = i+1, j-1 {
			coords[i], coords[j] = coords[j], coords[i]
		}
	}
	return coords
}
