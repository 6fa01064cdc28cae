package aqi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client reads city readings from the WAQI feed API.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

type feedResponse struct {
	Status string `json:"status"`
	Data   struct {
		AQI json.Number `json:"aqi"`
	} `json:"data"`
}

// Fetch returns the current AQI for a city. ok is false when the feed
// answered but has no reading for the city.
func (c *Client) Fetch(ctx context.Context, city string) (aqi int, ok bool, err error) {
	u := fmt.Sprintf("%s/%s/?token=%s", c.BaseURL, url.PathEscape(city), url.QueryEscape(c.Token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, false, fmt.Errorf("waqi: status %d for %s", resp.StatusCode, city)
	}

	var fr feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return 0, false, err
	}
	if fr.Status != "ok" {
		return 0, false, nil
	}
	// The feed sometimes reports "-" instead of a number.
	n, err := fr.Data.AQI.Int64()
	if err != nil {
		return 0, false, nil
	}
	return int(n), true, nil
}
