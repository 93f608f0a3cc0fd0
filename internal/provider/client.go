// Package provider fetches XML exports from the telephony provider's API
// and keeps the store up to date.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sweeney/callboard/internal/phone"
)

// Client calls the provider's simple API with basic auth.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL replaces the https://{host}/api/simple base.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a Client for the API at host.
func NewClient(host, username, password string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  "https://" + host + "/api/simple",
		username: username,
		password: password,
		http:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches path with the given query parameters and returns the body.
// Non-2xx responses are errors.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + "/" + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: %s", path, resp.Status)
	}
	return body, nil
}

// Dial asks the exchange to ring from and connect it to to. The API
// answers "1" when the call was placed.
func (c *Client) Dial(ctx context.Context, from, to int64) error {
	if from == 0 || to == 0 {
		return fmt.Errorf("dial needs both numbers, got %d and %d", from, to)
	}
	body, err := c.Get(ctx, "Dial", url.Values{
		"from": {phone.E164(from)},
		"to":   {phone.E164(to)},
	})
	if err != nil {
		return err
	}
	if reply := strings.TrimSpace(string(body)); reply != "1" {
		return fmt.Errorf("dial %s to %s rejected: %q", phone.E164(from), phone.E164(to), reply)
	}
	return nil
}
