package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"finadvisor/internal/provider"
)

const (
	baseURL    = "https://www.alphavantage.co/query"
	sourceName = "Alpha Vantage"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=alphavantage_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the Alpha Vantage query API.
type Client struct {
	// baseURL is the query endpoint.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query carries the api key and is merged into every request.
	query url.Values
}

// Option is a configuration option for the Alpha Vantage client.
type Option func(*Client)

// WithBaseURL sets the query endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewClient creates a new Alpha Vantage client. An empty key is sent as
// the public "demo" key.
func NewClient(key string, options ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
	}
	if strings.TrimSpace(key) == "" {
		key = "demo"
	}
	c.query.Set("apikey", key)
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) Name() string { return sourceName }

// get performs a GET for the given API function and returns the decoded
// top-level object. In-band notices are mapped to provider errors.
func (c *Client) get(ctx context.Context, function string, params url.Values) (map[string]json.RawMessage, error) {
	query := maps.Clone(c.query)
	query.Set("function", function)
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("%s: %w", function, provider.ErrRateLimited)
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", function, provider.ErrNotFound)
	default:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return nil, fmt.Errorf("%s: unexpected status code %d: %s", function, res.StatusCode, string(b))
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", function, err)
	}

	// Quota and premium notices come back as 200 with a single message field.
	for _, key := range []string{"Note", "Information"} {
		if msg, ok := body[key]; ok {
			return nil, fmt.Errorf("%s: %s: %w", function, unquote(msg), provider.ErrRateLimited)
		}
	}
	if msg, ok := body["Error Message"]; ok {
		return nil, fmt.Errorf("%s: %s: %w", function, unquote(msg), provider.ErrNotFound)
	}
	return body, nil
}

// section decodes a keyed object of string fields, such as "Global Quote".
func section(body map[string]json.RawMessage, key string) (map[string]string, error) {
	raw, ok := body[key]
	if !ok {
		return nil, fmt.Errorf("missing %q: %w", key, provider.ErrNotFound)
	}
	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decoding %q: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty %q: %w", key, provider.ErrNotFound)
	}
	return fields, nil
}

func unquote(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw)
	}
	return s
}

// parseFloat64 parses numeric fields that may carry a trailing '%' or a
// placeholder such as "None" or "-". Unparseable input yields 0.
func parseFloat64(s string) float64 {
	v, _ := parseFloat64Strict(s)
	return v
}

func parseFloat64Strict(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	switch s {
	case "", "None", "null", "-":
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseInt64(s string) int64 {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if f, ok := parseFloat64Strict(s); ok {
		return int64(f)
	}
	return 0
}
