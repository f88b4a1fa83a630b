// Package ziptax is an HTTP client for the zip-tax.com address-to-rate API.
package ziptax

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

const (
	defaultEndpoint = "https://api.zip-tax.com/request/v40"
	maxAttempts     = 3
	retryDelay      = time.Second
)

// Client looks up jurisdiction tax data for an address.
type Client struct {
	endpoint   string
	apiKey     string
	httpc      *http.Client
	retryDelay time.Duration
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithRetryDelay overrides the fixed delay between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// New creates a Client with the given API key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		endpoint:   defaultEndpoint,
		apiKey:     apiKey,
		httpc:      &http.Client{Timeout: 10 * time.Second},
		retryDelay: retryDelay,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup resolves the jurisdiction for an address. When the full-address
// query fails and a postal code is present, it retries with the postal code
// alone before surfacing the original error.
func (c *Client) Lookup(ctx context.Context, addr model.Address) (*model.TaxJurisdiction, error) {
	lookup, err := c.call(ctx, formatAddress(addr))
	if err == nil {
		return lookup, nil
	}

	if addr.PostalCode != "" {
		if lookup, zipErr := c.call(ctx, addr.PostalCode); zipErr == nil {
			return lookup, nil
		}
	}

	return nil, err
}

// call issues the request with up to maxAttempts tries, a fixed delay apart.
func (c *Client) call(ctx context.Context, address string) (*model.TaxJurisdiction, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		lookup, err := c.doRequest(ctx, address)
		if err == nil {
			return lookup, nil
		}
		lastErr = err
		c.log.Warn().Err(err).Int("attempt", attempt).Str("address", address).
			Msg("tax lookup failed")
	}
	return nil, fmt.Errorf("tax lookup after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) doRequest(ctx context.Context, address string) (*model.TaxJurisdiction, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("address", address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling tax API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tax API returned status %d", resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding tax API response: %w", err)
	}

	return body.jurisdiction()
}

// response is the wire format of the v40 API.
type response struct {
	Version string   `json:"version"`
	RCode   int      `json:"rCode"`
	Results []result `json:"results"`
}

type result struct {
	GeoPostalCode string  `json:"geoPostalCode"`
	GeoCity       string  `json:"geoCity"`
	GeoCounty     string  `json:"geoCounty"`
	GeoState      string  `json:"geoState"`
	TaxSales      float64 `json:"taxSales"`
	TaxUse        float64 `json:"taxUse"`
	TxbService    string  `json:"txbService"` // "Y" or "N"
	TxbFreight    string  `json:"txbFreight"` // "Y" or "N"
}

// rCode 100 is the API's success code.
const rCodeSuccess = 100

func (r response) jurisdiction() (*model.TaxJurisdiction, error) {
	if r.RCode != rCodeSuccess {
		return nil, fmt.Errorf("tax API rCode %d", r.RCode)
	}
	if len(r.Results) == 0 {
		return nil, fmt.Errorf("tax API returned no results")
	}

	first := r.Results[0]
	return &model.TaxJurisdiction{
		Region:          first.GeoState,
		City:            first.GeoCity,
		County:          first.GeoCounty,
		PostalCode:      first.GeoPostalCode,
		SalesTaxRate:    decimal.NewFromFloat(first.TaxSales),
		ServicesTaxable: strings.EqualFold(first.TxbService, "Y"),
		FreightTaxable:  strings.EqualFold(first.TxbFreight, "Y"),
	}, nil
}

func formatAddress(addr model.Address) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{addr.Street, addr.City, addr.State, addr.PostalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
