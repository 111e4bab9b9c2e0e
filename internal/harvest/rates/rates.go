// Package rates resolves the USD conversion rate used to normalize listing
// prices. A stale-but-sane fallback beats a dead harvest, so failures here
// never propagate.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	DefaultEndpoint = "https://open.er-api.com/v6/latest/USD"
	DefaultCurrency = "JPY"
	DefaultFallback = 150.0
)

type Options struct {
	Endpoint string
	Currency string
	Fallback float64
	Timeout  time.Duration // default 5s
}

type Client struct {
	hc       *http.Client
	endpoint string
	currency string
	fallback float64
}

func New(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Currency == "" {
		opts.Currency = DefaultCurrency
	}
	if opts.Fallback <= 0 {
		opts.Fallback = DefaultFallback
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Client{
		hc:       &http.Client{Timeout: opts.Timeout},
		endpoint: opts.Endpoint,
		currency: opts.Currency,
		fallback: opts.Fallback,
	}
}

type quoteResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// Rate fetches the current rate with a single short request. On any failure
// (timeout, bad status, malformed payload, missing field) it returns the
// fixed fallback together with the error that forced it, so the caller can
// log the shortfall and keep going.
func (c *Client) Rate(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return c.fallback, err
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return c.fallback, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return c.fallback, fmt.Errorf("quote status %d", res.StatusCode)
	}

	var qr quoteResponse
	if err := json.NewDecoder(res.Body).Decode(&qr); err != nil {
		return c.fallback, fmt.Errorf("quote decode: %w", err)
	}

	r, ok := qr.Rates[c.currency]
	if !ok || r <= 0 {
		return c.fallback, fmt.Errorf("quote missing %s rate", c.currency)
	}
	return r, nil
}
