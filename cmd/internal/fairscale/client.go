// Package fairscale is the client for the external reputation-scoring
// service. Whether a lookup failure is fatal depends on the caller: a gated
// drop must surface it, an ungated drop may degrade the score to zero.
package fairscale

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultBaseURL is the production scoring endpoint.
	DefaultBaseURL = "https://api2.fairscale.xyz"

	defaultTimeout = 5 * time.Second
)

// ErrAPIKeyMissing is returned when constructing a client without a key.
var ErrAPIKeyMissing = errors.New("fairscale: api key missing")

// Result is a wallet's score at lookup time.
type Result struct {
	Score   uint16
	Address string
}

// Client queries FairScale scores over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the scoring endpoint (tests, staging).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// New constructs a Client. The API key is required; scoring without
// authentication is not a mode this service has.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type scoreResponse struct {
	FairScore uint16 `json:"fair_score"`
}

// Score fetches the wallet's current score. An unknown wallet (404) scores 0;
// any other non-2xx response is an error for the caller to interpret.
func (c *Client) Score(ctx context.Context, walletAddress string) (Result, error) {
	u := fmt.Sprintf("%s/fairScore?wallet=%s", c.baseURL, url.QueryEscape(walletAddress))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("fairkey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = res.Body.Close() }()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return Result{Score: 0, Address: walletAddress}, nil
	case res.StatusCode < 200 || res.StatusCode > 299:
		return Result{}, fmt.Errorf("fairscale: unexpected status %d", res.StatusCode)
	}

	var body scoreResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("fairscale: decode response: %w", err)
	}
	return Result{Score: body.FairScore, Address: walletAddress}, nil
}
