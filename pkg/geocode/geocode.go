// Package geocode resolves free-form place queries ("Fenway Park, Boston")
// to WGS84 coordinates. Providers cascade in order until one matches, and
// results are cached in SQLite so repeated route queries stay offline.
package geocode

import (
	"context"
)

// Result holds one resolved place.
type Result struct {
	Latitude    float64
	Longitude   float64
	Source      string // "census" or "nominatim"
	DisplayName string // provider's matched label, when it returns one
	Matched     bool
}

// Provider is a single geocoding backend.
type Provider interface {
	Name() string
	// Geocode resolves a free-form query. A miss is (Matched=false, nil),
	// not an error; errors mean the provider itself failed.
	Geocode(ctx context.Context, query string) (*Result, error)
}
