package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/pelyams/simpler_recommendation_service/internal/domain"
)

type listProductsResponse struct {
	Products []domain.Product `json:"products"`
}

// HTTPCatalog reads the product catalog from a remote catalog service.
type HTTPCatalog struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPCatalog(baseURL string, timeout time.Duration) *HTTPCatalog {
	return &HTTPCatalog{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPCatalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build catalog request: %s", domain.ErrUnavailable, err.Error())
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog request failed: %s", domain.ErrUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: catalog returned status %d: %s", domain.ErrUnavailable, resp.StatusCode, string(body))
	}

	var payload listProductsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode catalog response: %s", domain.ErrUnavailable, err.Error())
	}
	if payload.Products == nil {
		payload.Products = make([]domain.Product, 0)
	}
	return payload.Products, nil
}
