package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCensusProvider_Match(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "700 Boylston St, Boston", r.URL.Query().Get("address"))
		assert.Equal(t, "Public_AR_Current", r.URL.Query().Get("benchmark"))
		w.Write([]byte(`{
			"result": {
				"addressMatches": [
					{
						"coordinates": {"x": -71.0776, "y": 42.3493},
						"matchedAddress": "700 BOYLSTON ST, BOSTON, MA, 02116"
					}
				]
			}
		}`))
	}))
	defer srv.Close()

	p := NewCensusProvider(WithCensusBaseURL(srv.URL))
	result, err := p.Geocode(context.Background(), "700 Boylston St, Boston")
	require.NoError(t, err)
	require.True(t, result.Matched)
	assert.Equal(t, 42.3493, result.Latitude)
	assert.Equal(t, -71.0776, result.Longitude)
	assert.Equal(t, "census", result.Source)
	assert.Equal(t, "700 BOYLSTON ST, BOSTON, MA, 02116", result.DisplayName)
}

func TestCensusProvider_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": {"addressMatches": []}}`))
	}))
	defer srv.Close()

	p := NewCensusProvider(WithCensusBaseURL(srv.URL))
	result, err := p.Geocode(context.Background(), "nowhere at all")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, "census", result.Source)
}

func TestCensusProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewCensusProvider(WithCensusBaseURL(srv.URL))
	_, err := p.Geocode(context.Background(), "700 Boylston St")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestCensusProvider_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	p := NewCensusProvider(WithCensusBaseURL(srv.URL))
	_, err := p.Geocode(context.Background(), "700 Boylston St")
	require.Error(t, err)
}
