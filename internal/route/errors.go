// Package route searches a risk-weighted street graph for the walking path
// minimizing a composite of distance and accumulated risk.
package route

import "fmt"

// InvalidNodeError reports a search endpoint absent from the graph.
type InvalidNodeError struct {
	ID int64
}

func (e *InvalidNodeError) Error() string {
	return fmt.Sprintf("route: node %d not in graph", e.ID)
}

// NoPathError reports that start and end lie in disconnected components.
// Callers can distinguish this from invalid input: the request was
// well-formed, the graph just cannot satisfy it.
type NoPathError struct {
	Start, End int64
}

func (e *NoPathError) Error() string {
	return fmt.Sprintf("route: no path from node %d to node %d", e.Start, e.End)
}

// BudgetExceededError reports that the search hit its expansion cap before
// reaching the destination.
type BudgetExceededError struct {
	Expansions int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("route: search budget exceeded after %d expansions", e.Expansions)
}

// SnapTooFarError reports that the nearest graph node is farther from the
// requested coordinate than the sanity threshold, which usually means a
// geocoding miss or a graph that does not cover the area.
type SnapTooFarError struct {
	Meters float64
	Max    float64
}

func (e *SnapTooFarError) Error() string {
	return fmt.Sprintf("route: nearest node is %.0f m away (max %.0f m); likely geocoding or coverage mismatch", e.Meters, e.Max)
}

// InvalidParameterError reports unusable search weights.
type InvalidParameterError struct {
	Name   string
	Value  float64
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("route: invalid %s %g: %s", e.Name, e.Value, e.Reason)
}
