package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatimProvider_Match(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Fenway Park", r.URL.Query().Get("q"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(`[
			{"lat": "42.3467", "lon": "-71.0972", "display_name": "Fenway Park, Boston, MA"}
		]`))
	}))
	defer srv.Close()

	p := NewNominatimProvider(WithNominatimBaseURL(srv.URL))
	result, err := p.Geocode(context.Background(), "Fenway Park")
	require.NoError(t, err)
	require.True(t, result.Matched)
	assert.Equal(t, 42.3467, result.Latitude)
	assert.Equal(t, -71.0972, result.Longitude)
	assert.Equal(t, "nominatim", result.Source)
	assert.Equal(t, "Fenway Park, Boston, MA", result.DisplayName)
}

func TestNominatimProvider_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	p := NewNominatimProvider(WithNominatimBaseURL(srv.URL))
	result, err := p.Geocode(context.Background(), "xyzzy")
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestNominatimProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewNominatimProvider(WithNominatimBaseURL(srv.URL))
	_, err := p.Geocode(context.Background(), "Fenway Park")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestNominatimProvider_BadCoords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"lat": "not-a-number", "lon": "-71.0", "display_name": "x"}]`))
	}))
	defer srv.Close()

	p := NewNominatimProvider(WithNominatimBaseURL(srv.URL))
	_, err := p.Geocode(context.Background(), "Fenway Park")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse lat")
}
