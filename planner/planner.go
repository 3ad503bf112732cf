// Package planner calls the AI itinerary-synthesis service, the hard
// dependency of the generation pipeline: it turns a trip plus confirmed
// live events into the day-by-day schedule.
package planner

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
	apiKey  string
	http    *http.Client
}

func NewClient() *Client {
	base := os.Getenv("PLANNER_API_URL")
	if base == "" {
		base = "http://localhost:9103"
	}
	return &Client{
		baseURL: base,
		apiKey:  os.Getenv("PLANNER_API_KEY"),
		http:    &http.Client{},
	}
}

type synthesizeRequest struct {
	Trip   *models.Trip       `json:"trip"`
	Events []models.LiveEvent `json:"events"`
}

// Synthesize produces the ordered day list for the trip. The confirmed
// event set is exactly what the caller approved, possibly empty.
func (c *Client) Synthesize(ctx context.Context, trip *models.Trip, confirmedEvents []models.LiveEvent) ([]models.TripDay, error) {
	body, err := json.Marshal(synthesizeRequest{Trip: trip, Events: confirmedEvents})
	if err != nil {
		return nil, fmt.Errorf("marshal synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/itinerary/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("planner service returned %d", resp.StatusCode)
	}

	var out struct {
		Days []models.TripDay `json:"days"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode synthesis response: %w", err)
	}
	if len(out.Days) == 0 {
		return nil, fmt.Errorf("planner returned no days")
	}
	return out.Days, nil
}
