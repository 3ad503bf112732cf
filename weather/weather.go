// Package weather calls the external forecast service. Forecasts are
// cosmetic enrichment for generated itineraries; callers treat any
// failure here as an empty result.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"voyago/models"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient() *Client {
	base := os.Getenv("WEATHER_API_URL")
	if base == "" {
		base = "http://localhost:9101"
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{},
	}
}

// Forecast fetches dayCount days of forecast for a city.
func (c *Client) Forecast(ctx context.Context, city string, dayCount int) ([]models.Forecast, error) {
	q := url.Values{}
	q.Set("city", city)
	q.Set("days", strconv.Itoa(dayCount))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/forecast?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build forecast request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast service returned %d", resp.StatusCode)
	}

	var out struct {
		Forecasts []models.Forecast `json:"forecasts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode forecast response: %w", err)
	}
	return out.Forecasts, nil
}
