package geocode

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestCache(t *testing.T, ttlDays int) *Cache {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cache := NewCache(db, ttlDays)
	require.NoError(t, cache.Migrate(context.Background()))
	return cache
}

func TestCache_StoreAndLookup(t *testing.T) {
	cache := newTestCache(t, 0)
	ctx := context.Background()

	miss, err := cache.Lookup(ctx, "Fenway Park")
	require.NoError(t, err)
	assert.Nil(t, miss)

	stored := &Result{Latitude: 42.3467, Longitude: -71.0972, Source: "nominatim", Matched: true}
	require.NoError(t, cache.Store(ctx, "Fenway Park", stored))

	got, err := cache.Lookup(ctx, "Fenway Park")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 42.3467, got.Latitude)
	assert.Equal(t, "nominatim", got.Source)
	assert.True(t, got.Matched)
}

func TestCache_NormalizesQuery(t *testing.T) {
	cache := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, "Fenway Park", &Result{Matched: true, Latitude: 42.3}))

	// Case and whitespace differences hit the same entry.
	got, err := cache.Lookup(ctx, "  fenway   PARK ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 42.3, got.Latitude)
}

func TestCache_StoresMisses(t *testing.T) {
	cache := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, "xyzzy", &Result{Matched: false}))

	got, err := cache.Lookup(ctx, "xyzzy")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Matched)
}

func TestCache_UpsertReplaces(t *testing.T) {
	cache := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, "q", &Result{Matched: true, Latitude: 1}))
	require.NoError(t, cache.Store(ctx, "q", &Result{Matched: true, Latitude: 2}))

	got, err := cache.Lookup(ctx, "q")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2.0, got.Latitude)
}
