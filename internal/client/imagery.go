package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

const ProviderImagery = "imagery"

// ImageClient fetches a random landscape photo from an Unsplash-compatible API.
type ImageClient struct {
	upstream
	accessKey string
	apiURL    string
}

type imageryErrors struct {
	Errors []string `json:"errors"`
}

// NewImageClient creates an ImageClient. apiURL is the API root, without /photos.
func NewImageClient(accessKey, apiURL string, opts Options) (*ImageClient, error) {
	if accessKey == "" {
		return nil, fmt.Errorf("%w: image API access key is required", ErrInvalidAPIKey)
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("invalid image API URL: %w", err)
	}
	return &ImageClient{
		upstream:  newUpstream(ProviderImagery, opts, imageryMessage),
		accessKey: accessKey,
		apiURL:    strings.TrimRight(apiURL, "/"),
	}, nil
}

func imageryMessage(body []byte) string {
	var e imageryErrors
	if json.Unmarshal(body, &e) == nil && len(e.Errors) > 0 {
		return strings.Join(e.Errors, "; ")
	}
	// rate limit rejections come back as plain text
	return strings.TrimSpace(string(body))
}

// Random returns photo metadata for query verbatim.
func (c *ImageClient) Random(ctx context.Context, query string) (models.ImagePayload, error) {
	u, err := url.Parse(c.apiURL + "/photos/random")
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("orientation", "landscape")
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)
	req.Header.Set("Accept-Version", "v1")

	body, err := c.get(ctx, req)
	if err != nil {
		return nil, err
	}

	var probe struct {
		imageryErrors
		URLs map[string]string `json:"urls"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, &ProviderError{Provider: c.provider, Err: ErrUpstreamFailure, Message: "parse response", Cause: fmt.Errorf("%w: %v", errParse, err)}
	}
	if len(probe.Errors) > 0 {
		return nil, &ProviderError{Provider: c.provider, Err: ErrUpstreamFailure, Message: strings.Join(probe.Errors, "; ")}
	}
	return models.ImagePayload(body), nil
}
