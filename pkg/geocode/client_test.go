package geocode

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name   string
	result *Result
	err    error
	calls  int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	s.calls++
	return s.result, s.err
}

func TestClient_FirstProviderWins(t *testing.T) {
	first := &stubProvider{name: "a", result: &Result{Matched: true, Latitude: 1, Source: "a"}}
	second := &stubProvider{name: "b", result: &Result{Matched: true, Latitude: 2, Source: "b"}}

	c := NewClient([]Provider{first, second})
	result, err := c.Geocode(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Latitude)
	assert.Equal(t, 0, second.calls)
}

func TestClient_CascadesOnError(t *testing.T) {
	first := &stubProvider{name: "a", err: eris.New("down")}
	second := &stubProvider{name: "b", result: &Result{Matched: true, Latitude: 2, Source: "b"}}

	c := NewClient([]Provider{first, second})
	result, err := c.Geocode(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "b", result.Source)
}

func TestClient_CascadesOnMiss(t *testing.T) {
	first := &stubProvider{name: "a", result: &Result{Matched: false, Source: "a"}}
	second := &stubProvider{name: "b", result: &Result{Matched: true, Latitude: 2, Source: "b"}}

	c := NewClient([]Provider{first, second})
	result, err := c.Geocode(context.Background(), "q")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "b", result.Source)
}

func TestClient_AllMiss(t *testing.T) {
	first := &stubProvider{name: "a", result: &Result{Matched: false}}
	second := &stubProvider{name: "b", err: eris.New("down")}

	c := NewClient([]Provider{first, second})
	result, err := c.Geocode(context.Background(), "q")
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestClient_CacheShortCircuits(t *testing.T) {
	cache := newTestCache(t, 0)
	provider := &stubProvider{name: "a", result: &Result{Matched: true, Latitude: 5, Source: "a"}}

	c := NewClient([]Provider{provider}, WithCache(cache))
	ctx := context.Background()

	// First call hits the provider and fills the cache.
	_, err := c.Geocode(ctx, "Fenway Park")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)

	// Second call is served from the cache.
	result, err := c.Geocode(ctx, "Fenway Park")
	require.NoError(t, err)
	assert.Equal(t, 5.0, result.Latitude)
	assert.Equal(t, 1, provider.calls)
}

func TestClient_CachesMisses(t *testing.T) {
	cache := newTestCache(t, 0)
	provider := &stubProvider{name: "a", result: &Result{Matched: false}}

	c := NewClient([]Provider{provider}, WithCache(cache))
	ctx := context.Background()

	_, err := c.Geocode(ctx, "xyzzy")
	require.NoError(t, err)
	result, err := c.Geocode(ctx, "xyzzy")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, 1, provider.calls)
}
