// Package eventsearch queries the external live-event discovery
// service. Results are optional content; a person confirms which events
// to keep before they enter the itinerary, and failures are soft.
package eventsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"voyago/models"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient() *Client {
	base := os.Getenv("EVENTS_API_URL")
	if base == "" {
		base = "http://localhost:9102"
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{},
	}
}

// Search finds live events across the trip's cities within the stay window.
func (c *Client) Search(ctx context.Context, cities []string, startDate string, nights int) ([]models.LiveEvent, error) {
	payload := map[string]any{
		"cities":     cities,
		"start_date": startDate,
		"nights":     nights,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event search: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/events/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build event search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("event search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("event search returned %d", resp.StatusCode)
	}

	var out struct {
		Events []models.LiveEvent `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode event search response: %w", err)
	}
	return out.Events, nil
}
