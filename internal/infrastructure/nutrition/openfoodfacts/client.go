// Package openfoodfacts implements the nutrition lookup against the Open Food Facts search API
package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alchemorsel/intake/internal/domain/nutrition"
	"github.com/alchemorsel/intake/internal/ports/outbound"
	"github.com/alchemorsel/intake/pkg/fetch"
	"go.uber.org/zap"
)

const serviceName = "openfoodfacts"

// Config holds the Open Food Facts settings
type Config struct {
	BaseURL   string
	UserAgent string
}

// Client implements outbound.NutritionSource
type Client struct {
	cfg     Config
	fetcher *fetch.Fetcher
	logger  *zap.Logger
}

var _ outbound.NutritionSource = (*Client)(nil)

// NewClient creates a client; retries and throttling come from the fetcher
func NewClient(cfg Config, fetcher *fetch.Fetcher, logger *zap.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, fetcher: fetcher, logger: logger.Named("openfoodfacts")}
}

type searchResponse struct {
	Count    int             `json:"count"`
	Products []searchProduct `json:"products"`
}

type searchProduct struct {
	ProductName string     `json:"product_name"`
	Nutriments  nutriments `json:"nutriments"`
}

type nutriments struct {
	EnergyKcal *flexFloat `json:"energy-kcal_100g"`
	Proteins   *flexFloat `json:"proteins_100g"`
	Fat        *flexFloat `json:"fat_100g"`
	Carbs      *flexFloat `json:"carbohydrates_100g"`
	Sugars     *flexFloat `json:"sugars_100g"`
	Fiber      *flexFloat `json:"fiber_100g"`
	Salt       *flexFloat `json:"salt_100g"`
}

// flexFloat accepts numbers and numeric strings; the API emits both, and also
// blanks or placeholders for missing values, which stay invalid
type flexFloat struct {
	value float64
	valid bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(strings.Trim(string(b), `"`))
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	f.value, f.valid = v, true
	return nil
}

func (f *flexFloat) ptr() *float64 {
	if f == nil || !f.valid {
		return nil
	}
	v := f.value
	return &v
}

// Search returns up to maxResults products matching term in API order
func (c *Client) Search(ctx context.Context, term string, maxResults int) ([]nutrition.Product, error) {
	q := url.Values{}
	q.Set("search_terms", term)
	q.Set("search_simple", "1")
	q.Set("action", "process")
	q.Set("page_size", strconv.Itoa(maxResults))
	q.Set("json", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/cgi/search.pl?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.fetcher.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &outbound.UpstreamStatusError{Service: serviceName, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	products := make([]nutrition.Product, 0, len(sr.Products))
	for _, p := range sr.Products {
		if len(products) == maxResults {
			break
		}
		products = append(products, nutrition.Product{
			Name: p.ProductName,
			Nutrients: nutrition.Per100g{
				EnergyKcal: p.Nutriments.EnergyKcal.ptr(),
				Protein:    p.Nutriments.Proteins.ptr(),
				Fat:        p.Nutriments.Fat.ptr(),
				Carbs:      p.Nutriments.Carbs.ptr(),
				Sugar:      p.Nutriments.Sugars.ptr(),
				Fiber:      p.Nutriments.Fiber.ptr(),
				Salt:       p.Nutriments.Salt.ptr(),
			},
		})
	}

	c.logger.Debug("Nutrition search completed",
		zap.String("term", term),
		zap.Int("count", sr.Count),
		zap.Int("returned", len(products)))

	return products, nil
}
