package route

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/safewalk/safewalk-cli/internal/graph"
)

// Endpoint is a planar query coordinate with an optional human label (the
// original address, usually).
type Endpoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label,omitempty"`
}

// Pair is one (start, end) query in an evaluation batch.
type Pair struct {
	Name  string   `json:"name,omitempty"`
	Start Endpoint `json:"start"`
	End   Endpoint `json:"end"`
}

// Comparison holds the safest route, the pure-distance baseline, and the
// derived metrics for one pair. Err is set instead of the routes when the
// pair failed; a failed pair never aborts the batch.
type Comparison struct {
	Pair Pair   `json:"pair"`
	Err  string `json:"error,omitempty"`

	Safe *Route `json:"safe,omitempty"`
	Fast *Route `json:"fast,omitempty"`

	DistanceIncreasePct  float64 `json:"distance_increase_pct"`
	RiskReductionPct     float64 `json:"risk_reduction_pct"`
	ExposureReductionPct float64 `json:"exposure_reduction_pct"`
}

// Report is the outcome of an evaluation batch.
type Report struct {
	RunID     string       `json:"run_id"`
	Weights   Weights      `json:"weights"`
	Results   []Comparison `json:"results"`
	Successes int          `json:"successes"`
	Failures  int          `json:"failures"`
}

// EvalOptions configures an evaluation batch.
type EvalOptions struct {
	Route         Options
	SnapMaxMeters float64
	Concurrency   int // parallel pairs; 4 if zero
}

// Evaluate runs the safest-route search and the pure-distance baseline for
// each pair. Pairs are independent: failures (no path, bad endpoint, snap
// too far) are recorded on the pair's result and evaluation continues. Each
// individual search is single-threaded; pairs run in parallel.
func Evaluate(ctx context.Context, g *graph.Graph, pairs []Pair, w Weights, opts EvalOptions) (*Report, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:   uuid.NewString(),
		Weights: w,
		Results: make([]Comparison, len(pairs)),
	}

	workers := opts.Concurrency
	if workers <= 0 {
		workers = 4
	}

	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, pair := range pairs {
		eg.Go(func() error {
			report.Results[i] = evaluatePair(g, pair, w, opts)
			return nil
		})
	}
	_ = eg.Wait()

	for i := range report.Results {
		if report.Results[i].Err == "" {
			report.Successes++
		} else {
			report.Failures++
		}
	}

	zap.L().Info("evaluation complete",
		zap.String("run_id", report.RunID),
		zap.Int("pairs", len(pairs)),
		zap.Int("successes", report.Successes),
		zap.Int("failures", report.Failures),
	)
	return report, nil
}

func evaluatePair(g *graph.Graph, pair Pair, w Weights, opts EvalOptions) Comparison {
	c := Comparison{Pair: pair}

	startID, err := ResolveEndpoint(g, pair.Start.X, pair.Start.Y, opts.SnapMaxMeters)
	if err != nil {
		c.Err = err.Error()
		return c
	}
	endID, err := ResolveEndpoint(g, pair.End.X, pair.End.Y, opts.SnapMaxMeters)
	if err != nil {
		c.Err = err.Error()
		return c
	}

	safe, err := Find(g, startID, endID, w, opts.Route)
	if err != nil {
		c.Err = err.Error()
		return c
	}
	fast, err := Find(g, startID, endID, Weights{Alpha: 1}, opts.Route)
	if err != nil {
		c.Err = err.Error()
		return c
	}

	c.Safe = safe
	c.Fast = fast
	if fast.Length > 0 {
		c.DistanceIncreasePct = (safe.Length - fast.Length) / fast.Length * 100
	}
	if fast.Risk > 0 {
		c.RiskReductionPct = (1 - safe.Risk/fast.Risk) * 100
	}
	fastExp := exposure(g, fast)
	if fastExp > 0 {
		c.ExposureReductionPct = (1 - exposure(g, safe)/fastExp) * 100
	}
	return c
}

// exposure is risk integrated along the route: the sum of each edge's risk
// score weighted by its length.
func exposure(g *graph.Graph, r *Route) float64 {
	var total float64
	for _, ei := range r.EdgeIDs {
		e := g.Edges[ei]
		total += e.Risk * e.Length
	}
	return total
}

// WriteJSON writes the full report.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteCSV writes a flat per-pair summary.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{
		"name", "start", "end", "error",
		"fast_km", "safe_km", "distance_increase_pct",
		"fast_risk", "safe_risk", "risk_reduction_pct", "exposure_reduction_pct",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, c := range r.Results {
		row := []string{
			c.Pair.Name,
			c.Pair.Start.Label,
			c.Pair.End.Label,
			c.Err,
		}
		if c.Err == "" {
			row = append(row,
				fmt.Sprintf("%.3f", c.Fast.Length/1000),
				fmt.Sprintf("%.3f", c.Safe.Length/1000),
				strconv.FormatFloat(c.DistanceIncreasePct, 'f', 2, 64),
				fmt.Sprintf("%.6g", c.Fast.Risk),
				fmt.Sprintf("%.6g", c.Safe.Risk),
				strconv.FormatFloat(c.RiskReductionPct, 'f', 2, 64),
				strconv.FormatFloat(c.ExposureReductionPct, 'f', 2, 64),
			)
		} else {
			row = append(row, "", "", "", "", "", "", "")
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
