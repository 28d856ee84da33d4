package flags

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/pelyams/simpler_recommendation_service/internal/domain"
)

type getFlagResponse struct {
	Flag domain.Flag `json:"flag"`
}

// HTTPFlags asks a remote feature flag service for flag state.
type HTTPFlags struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPFlags(baseURL string, timeout time.Duration) *HTTPFlags {
	return &HTTPFlags{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPFlags) GetFlag(ctx context.Context, name string) (*domain.Flag, error) {
	endpoint := c.baseURL + "/flags/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build flag request: %s", domain.ErrUnavailable, err.Error())
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: flag request failed: %s", domain.ErrUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: flag %q is not defined", domain.ErrNotFound, name)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: flag service returned status %d: %s", domain.ErrUnavailable, resp.StatusCode, string(body))
	}

	var payload getFlagResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode flag response: %s", domain.ErrUnavailable, err.Error())
	}
	return &payload.Flag, nil
}
