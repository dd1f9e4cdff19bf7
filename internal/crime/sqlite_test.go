package crime

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLite(filepath.Join(t.TempDir(), "crimes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestSQLiteStore_PutAndGet(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	occurred := time.Date(2024, 5, 1, 22, 30, 0, 0, time.UTC)
	records := []Record{
		{ID: "a", Lat: 42.36, Lon: -71.06, Weight: 1, Bucket: "20-24", Offense: "LARCENY", OccurredAt: occurred},
		{ID: "b", Lat: 42.35, Lon: -71.05, Weight: 2, Bucket: "00-04", Offense: "ASSAULT"},
	}
	n, err := store.PutRecords(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := store.Records(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, 42.36, got[0].Lat)
	assert.Equal(t, "LARCENY", got[0].Offense)
	assert.True(t, occurred.Equal(got[0].OccurredAt))
	assert.True(t, got[1].OccurredAt.IsZero())

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStore_BucketFilter(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	_, err := store.PutRecords(ctx, []Record{
		{ID: "night", Lat: 42.36, Lon: -71.06, Weight: 1, Bucket: "20-24"},
		{ID: "morning", Lat: 42.35, Lon: -71.05, Weight: 1, Bucket: "08-12"},
	})
	require.NoError(t, err)

	got, err := store.Records(ctx, "20-24")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "night", got[0].ID)
}

func TestSQLiteStore_UpsertIdempotent(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	rec := Record{ID: "a", Lat: 42.36, Lon: -71.06, Weight: 1, Bucket: "20-24"}
	_, err := store.PutRecords(ctx, []Record{rec})
	require.NoError(t, err)

	// Re-import with an updated weight replaces, never duplicates.
	rec.Weight = 3
	_, err = store.PutRecords(ctx, []Record{rec})
	require.NoError(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := store.Records(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3.0, got[0].Weight)
}

func TestSQLiteStore_EmptyPut(t *testing.T) {
	store := newTestSQLite(t)
	n, err := store.PutRecords(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
