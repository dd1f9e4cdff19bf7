package risk

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultBandwidthMeters is the fallback kernel bandwidth when automatic
// selection degenerates (fewer than two distinct event locations). 150 m is
// roughly a city block and a half.
const DefaultBandwidthMeters = 150.0

// InvalidParameterError reports a parameter outside its valid range, such as
// a non-positive bandwidth.
type InvalidParameterError struct {
	Name   string
	Value  float64
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("risk: invalid %s %g: %s", e.Name, e.Value, e.Reason)
}

// Surface is a fitted 2D Gaussian kernel density estimate over crime event
// locations. It is immutable and safe for concurrent queries. A surface
// fitted to zero events is the degenerate zero surface, not an error: a time
// bucket with no recorded crimes is a valid real-world state.
type Surface struct {
	xs, ys, ws []float64
	sumW       float64
	bandwidth  float64
}

// NewSurface fits a surface with an explicit bandwidth in meters. Events
// with non-positive weight are dropped. Bandwidth must be positive.
func NewSurface(events []Event, bandwidth float64) (*Surface, error) {
	if bandwidth <= 0 || math.IsNaN(bandwidth) || math.IsInf(bandwidth, 0) {
		return nil, &InvalidParameterError{Name: "bandwidth", Value: bandwidth, Reason: "must be positive and finite"}
	}
	s := &Surface{bandwidth: bandwidth}
	for _, e := range events {
		if e.Weight <= 0 || math.IsNaN(e.Weight) {
			continue
		}
		s.xs = append(s.xs, e.X)
		s.ys = append(s.ys, e.Y)
		s.ws = append(s.ws, e.Weight)
	}
	if len(s.ws) > 0 {
		s.sumW = floats.Sum(s.ws)
	}
	return s, nil
}

// NewSurfaceAuto fits a surface selecting the bandwidth by Scott's rule on
// the weighted event spread, falling back to DefaultBandwidthMeters when the
// rule degenerates.
func NewSurfaceAuto(events []Event) (*Surface, error) {
	h := scottBandwidth(events)
	return NewSurface(events, h)
}

// Bandwidth returns the kernel bandwidth in meters.
func (s *Surface) Bandwidth() float64 { return s.bandwidth }

// EventCount returns the number of events the surface was fitted to.
func (s *Surface) EventCount() int { return len(s.ws) }

// Density evaluates the estimate at the planar point (x, y). Always
// non-negative; zero everywhere for an empty surface. Output is normalized
// by the total event weight so relative comparisons between points are
// meaningful; absolute calibration is not guaranteed.
func (s *Surface) Density(x, y float64) float64 {
	if s.sumW == 0 {
		return 0
	}
	h2 := s.bandwidth * s.bandwidth
	var acc float64
	for i := range s.xs {
		dx := x - s.xs[i]
		dy := y - s.ys[i]
		acc += s.ws[i] * math.Exp(-(dx*dx+dy*dy)/(2*h2))
	}
	return acc / (2 * math.Pi * h2 * s.sumW)
}

// Grid evaluates the surface on an nx-by-ny lattice over the given planar
// bounds, row-major from (minX, minY). Used for visualization export only.
func (s *Surface) Grid(minX, minY, maxX, maxY float64, nx, ny int) ([][]float64, error) {
	if nx < 2 || ny < 2 {
		return nil, &InvalidParameterError{Name: "grid size", Value: float64(nx * ny), Reason: "need at least 2 cells per axis"}
	}
	out := make([][]float64, ny)
	for j := 0; j < ny; j++ {
		row := make([]float64, nx)
		y := minY + (maxY-minY)*float64(j)/float64(ny-1)
		for i := 0; i < nx; i++ {
			x := minX + (maxX-minX)*float64(i)/float64(nx-1)
			row[i] = s.Density(x, y)
		}
		out[j] = row
	}
	return out, nil
}

// scottBandwidth applies Scott's rule in two dimensions using the weighted
// standard deviation of the event cloud and the Kish effective sample size.
func scottBandwidth(events []Event) float64 {
	var xs, ys, ws []float64
	for _, e := range events {
		if e.Weight <= 0 || math.IsNaN(e.Weight) {
			continue
		}
		xs = append(xs, e.X)
		ys = append(ys, e.Y)
		ws = append(ws, e.Weight)
	}
	if len(ws) < 2 {
		return DefaultBandwidthMeters
	}

	varX := stat.Variance(xs, ws)
	varY := stat.Variance(ys, ws)
	sigma := math.Sqrt((varX + varY) / 2)
	if sigma <= 0 || math.IsNaN(sigma) {
		return DefaultBandwidthMeters
	}

	sumW := floats.Sum(ws)
	var sumW2 float64
	for _, w := range ws {
		sumW2 += w * w
	}
	nEff := sumW * sumW / sumW2

	// Scott's rule for d=2: h = sigma * n^(-1/(d+4)).
	return sigma * math.Pow(nEff, -1.0/6.0)
}
