// Package crime loads and persists typed crime events. Tabular records are
// validated here at the ingestion boundary; the routing core only ever sees
// well-formed events.
package crime

import (
	"context"
	"time"
)

// Record is one validated crime event as stored. Coordinates are geographic
// (WGS84); projection onto the risk surface's plane happens when events are
// handed to the estimator.
type Record struct {
	ID         string
	Lat        float64
	Lon        float64
	Weight     float64
	Bucket     string // "HH-HH" time-of-day interval
	Offense    string
	OccurredAt time.Time // zero when the source only carried an interval
}

// Store persists crime records. Implementations exist for SQLite (default)
// and PostgreSQL.
type Store interface {
	Migrate(ctx context.Context) error
	PutRecords(ctx context.Context, records []Record) (int64, error)
	// Records returns events, filtered to one time bucket when bucket is
	// non-empty.
	Records(ctx context.Context, bucket string) ([]Record, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}
