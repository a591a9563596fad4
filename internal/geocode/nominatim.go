// Package geocode resolves coordinates into addresses via the OpenStreetMap
// Nominatim API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"civicgo/backend/internal/intake"
)

// Client is an HTTP client for a Nominatim-compatible reverse geocoder.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates a geocoder client against baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
}

// ReverseGeocode looks up the address for a coordinate pair. Nominatim puts
// the locality in city, town, or village depending on the place.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (*intake.Location, error) {
	endpoint := fmt.Sprintf("%s/reverse?format=jsonv2&lat=%s&lon=%s",
		c.baseURL,
		url.QueryEscape(fmt.Sprintf("%f", lat)),
		url.QueryEscape(fmt.Sprintf("%f", lng)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "civicgo-backend")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: reverse lookup returned status %d", resp.StatusCode)
	}

	var rev reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&rev); err != nil {
		return nil, err
	}

	city := rev.Address.City
	if city == "" {
		city = rev.Address.Town
	}
	if city == "" {
		city = rev.Address.Village
	}

	region := rev.Address.State
	if region == "" {
		region = rev.Address.Country
	}

	return &intake.Location{
		Address: rev.DisplayName,
		City:    city,
		Region:  region,
	}, nil
}
