package geocode

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Cache stores geocode results, matches and misses both, in SQLite. Caching
// misses matters: an unmatched query would otherwise hit the provider on
// every route request.
type Cache struct {
	db      *sql.DB
	ttlDays int
}

// NewCache wraps a SQLite handle. ttlDays <= 0 disables expiry.
func NewCache(db *sql.DB, ttlDays int) *Cache {
	return &Cache{db: db, ttlDays: ttlDays}
}

const cacheMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash TEXT PRIMARY KEY,
	latitude     REAL NOT NULL,
	longitude    REAL NOT NULL,
	matched      INTEGER NOT NULL,
	source       TEXT NOT NULL DEFAULT '',
	cached_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// Migrate creates the cache table if it does not exist.
func (c *Cache) Migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, cacheMigration)
	return eris.Wrap(err, "geocode: migrate cache")
}

// cacheKey returns SHA-256 hex of the normalized query.
func cacheKey(query string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

// Lookup returns the cached result for a query, or nil on a cache miss.
func (c *Cache) Lookup(ctx context.Context, query string) (*Result, error) {
	key := cacheKey(query)

	q := `SELECT latitude, longitude, matched, source FROM geocode_cache WHERE address_hash = ?`
	if c.ttlDays > 0 {
		q += fmt.Sprintf(` AND cached_at > datetime('now', '-%d days')`, c.ttlDays)
	}

	var r Result
	var matched int
	err := c.db.QueryRowContext(ctx, q, key).Scan(&r.Latitude, &r.Longitude, &matched, &r.Source)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "geocode: cache lookup")
	}
	r.Matched = matched != 0

	zap.L().Debug("geocode cache hit",
		zap.String("key", key[:12]),
		zap.Bool("matched", r.Matched),
	)
	return &r, nil
}

// Store upserts a result for a query.
func (c *Cache) Store(ctx context.Context, query string, r *Result) error {
	matched := 0
	if r.Matched {
		matched = 1
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (address_hash, latitude, longitude, matched, source, cached_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (address_hash) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			matched = excluded.matched,
			source = excluded.source,
			cached_at = excluded.cached_at`,
		cacheKey(query), r.Latitude, r.Longitude, matched, r.Source,
	)
	return eris.Wrap(err, "geocode: cache store")
}
