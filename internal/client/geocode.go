package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kjstillabower/weather-dashboard/internal/geocode"
)

const (
	ProviderGeocode = "geocode"

	defaultGeocodeLimit = 10
)

// GeocodeClient searches an OpenCage-compatible forward geocoding API.
type GeocodeClient struct {
	upstream
	apiKey string
	apiURL string
	limit  int
}

type geocodeResponse struct {
	Results []geocode.Record `json:"results"`
	Status  struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
}

// NewGeocodeClient creates a GeocodeClient. limit <= 0 uses 10 results.
func NewGeocodeClient(apiKey, apiURL string, limit int, opts Options) (*GeocodeClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: geocoding API key is required", ErrInvalidAPIKey)
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("invalid geocoding API URL: %w", err)
	}
	if limit <= 0 {
		limit = defaultGeocodeLimit
	}
	return &GeocodeClient{
		upstream: newUpstream(ProviderGeocode, opts, geocodeMessage),
		apiKey:   apiKey,
		apiURL:   apiURL,
		limit:    limit,
	}, nil
}

func geocodeMessage(body []byte) string {
	var r geocodeResponse
	if json.Unmarshal(body, &r) != nil {
		return ""
	}
	return r.Status.Message
}

// Search returns the raw provider records for query. No match is an empty
// slice, not an error.
func (c *GeocodeClient) Search(ctx context.Context, query string) ([]geocode.Record, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("key", c.apiKey)
	params.Set("limit", strconv.Itoa(c.limit))
	params.Set("no_annotations", "0")
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	body, err := c.get(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp geocodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ProviderError{Provider: c.provider, Err: ErrUpstreamFailure, Message: "parse response", Cause: fmt.Errorf("%w: %v", errParse, err)}
	}
	if resp.Results == nil {
		return []geocode.Record{}, nil
	}
	return resp.Results, nil
}
