package risk

import (
	"context"
	"math"
	"runtime"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/safewalk/safewalk-cli/internal/graph"
)

// DefaultStepMeters is the sample spacing along edge geometry. Smaller steps
// improve risk-score fidelity on long or curved segments at roughly linear
// runtime cost.
const DefaultStepMeters = 25.0

// Reduction selects how per-sample densities collapse into one edge score.
type Reduction string

const (
	// ReduceMean averages samples. A single hot sample does not dominate a
	// long edge.
	ReduceMean Reduction = "mean"
	// ReduceMax takes the worst sample, biasing routes away from any edge
	// that passes through a dangerous block.
	ReduceMax Reduction = "max"
)

// AssignOptions configures edge risk assignment.
type AssignOptions struct {
	StepMeters  float64   // sample spacing; DefaultStepMeters if zero
	Reduce      Reduction // ReduceMean if empty
	Concurrency int       // parallel edge workers; GOMAXPROCS if zero
	Progress    bool      // render a progress bar
}

// Assign samples the risk surface along every edge's geometry and writes the
// reduced score into Edge.Risk. Each edge is independent, so the map over
// edges runs in parallel; the result is deterministic regardless of worker
// count. The graph is considered frozen for searching once Assign returns.
func Assign(ctx context.Context, g *graph.Graph, s *Surface, opts AssignOptions) error {
	step := opts.StepMeters
	if step == 0 {
		step = DefaultStepMeters
	}
	if step < 0 || math.IsNaN(step) {
		return &InvalidParameterError{Name: "step", Value: step, Reason: "must be positive"}
	}
	reduce := opts.Reduce
	if reduce == "" {
		reduce = ReduceMean
	}
	if reduce != ReduceMean && reduce != ReduceMax {
		return &InvalidParameterError{Name: "reduction", Reason: "must be mean or max"}
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = progressbar.Default(int64(g.EdgeCount()), "assigning edge risk")
	}

	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, e := range g.Edges {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.Risk = edgeScore(e, s, step, reduce)
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	zap.L().Info("assigned edge risk",
		zap.Int("edges", g.EdgeCount()),
		zap.Float64("step_m", step),
		zap.String("reduce", string(reduce)),
		zap.Float64("bandwidth_m", s.Bandwidth()),
	)
	return nil
}

// edgeScore samples the edge geometry every step meters (endpoints always
// included, minimum two samples) and reduces the densities. A zero-length
// edge scores the density at its single point.
func edgeScore(e *graph.Edge, s *Surface, step float64, reduce Reduction) float64 {
	flat := e.Geometry.FlatCoords()
	if e.Length == 0 {
		return s.Density(flat[0], flat[1])
	}

	var sum, max float64
	n := 0
	for _, pt := range samplePoints(flat, e.Length, step) {
		d := s.Density(pt[0], pt[1])
		sum += d
		if d > max {
			max = d
		}
		n++
	}
	if reduce == ReduceMax {
		return max
	}
	return sum / float64(n)
}

// samplePoints walks the polyline returning points at distances 0, step,
// 2*step, ... plus the final endpoint. Steps that land exactly on the
// endpoint are not emitted twice.
func samplePoints(flat []float64, length, step float64) [][2]float64 {
	pts := make([][2]float64, 0, int(length/step)+2)
	for i := 0; float64(i)*step < length; i++ {
		pts = append(pts, interpolateAt(flat, float64(i)*step))
	}
	pts = append(pts, [2]float64{flat[len(flat)-2], flat[len(flat)-1]})
	return pts
}

// interpolateAt returns the point at the given distance along the XY flat
// coordinate polyline, clamped to the final vertex.
func interpolateAt(flat []float64, dist float64) [2]float64 {
	remaining := dist
	for i := 2; i < len(flat); i += 2 {
		x0, y0 := flat[i-2], flat[i-1]
		x1, y1 := flat[i], flat[i+1]
		seg := math.Hypot(x1-x0, y1-y0)
		if remaining <= seg {
			if seg == 0 {
				return [2]float64{x0, y0}
			}
			t := remaining / seg
			return [2]float64{x0 + t*(x1-x0), y0 + t*(y1-y0)}
		}
		remaining -= seg
	}
	return [2]float64{flat[len(flat)-2], flat[len(flat)-1]}
}
