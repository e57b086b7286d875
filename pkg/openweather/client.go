// Package openweather provides a minimal OpenWeatherMap current-weather
// client.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the OpenWeatherMap API endpoint.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

// Observation is one current-weather reading.
type Observation struct {
	// Condition is the coarse condition group ("Clear", "Rain", ...).
	Condition string
	// Description is the finer-grained condition text.
	Description string
	// TempC is the temperature in degrees Celsius.
	TempC float64
	// City echoes the resolved location name.
	City string
}

// Client fetches current weather for a fixed city.
type Client struct {
	APIKey  string
	City    string
	Country string

	// BaseURL overrides the API endpoint (used in tests).
	BaseURL string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// apiResponse mirrors the subset of the API payload we read.
type apiResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Name string `json:"name"`
	Cod  int    `json:"cod"`
}

// Current fetches the current weather observation.
func (c *Client) Current(ctx context.Context) (*Observation, error) {
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	query := url.Values{}
	query.Set("q", c.City+","+c.Country)
	query.Set("appid", c.APIKey)
	query.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/weather?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build weather request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather request returned status %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}
	if len(payload.Weather) == 0 {
		return nil, fmt.Errorf("weather response missing condition")
	}

	return &Observation{
		Condition:   payload.Weather[0].Main,
		Description: payload.Weather[0].Description,
		TempC:       payload.Main.Temp,
		City:        payload.Name,
	}, nil
}
