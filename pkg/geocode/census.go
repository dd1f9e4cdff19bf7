package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	censusOneLineURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"
	censusBenchmark  = "Public_AR_Current"
)

// CensusProvider geocodes US addresses via the Census Bureau one-line API.
// No API key, generous limits; the preferred first hop for US cities.
type CensusProvider struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// CensusOption configures the CensusProvider.
type CensusOption func(*CensusProvider)

// WithCensusHTTPClient sets a custom HTTP client.
func WithCensusHTTPClient(hc *http.Client) CensusOption {
	return func(p *CensusProvider) { p.httpClient = hc }
}

// WithCensusBaseURL overrides the API endpoint, used by tests.
func WithCensusBaseURL(u string) CensusOption {
	return func(p *CensusProvider) { p.baseURL = u }
}

// WithCensusRateLimit sets the requests-per-second limit.
func WithCensusRateLimit(rps float64) CensusOption {
	return func(p *CensusProvider) {
		p.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// NewCensusProvider creates a CensusProvider.
func NewCensusProvider(opts ...CensusOption) *CensusProvider {
	p := &CensusProvider{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
		baseURL:    censusOneLineURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *CensusProvider) Name() string { return "census" }

type censusResponse struct {
	Result struct {
		AddressMatches []struct {
			Coordinates struct {
				X float64 `json:"x"` // longitude
				Y float64 `json:"y"` // latitude
			} `json:"coordinates"`
			MatchedAddress string `json:"matchedAddress"`
		} `json:"addressMatches"`
	} `json:"result"`
}

// Geocode implements Provider via the one-line address API.
func (p *CensusProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: census rate limit")
	}

	params := url.Values{
		"address":   {query},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census build request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: census returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census read body")
	}

	var parsed censusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "geocode: census parse response")
	}

	if len(parsed.Result.AddressMatches) == 0 {
		return &Result{Matched: false, Source: "census"}, nil
	}

	match := parsed.Result.AddressMatches[0]
	return &Result{
		Latitude:    match.Coordinates.Y,
		Longitude:   match.Coordinates.X,
		Source:      "census",
		DisplayName: match.MatchedAddress,
		Matched:     true,
	}, nil
}
