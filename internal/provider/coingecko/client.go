package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"finadvisor/internal/provider"
)

const (
	baseURL    = "https://api.coingecko.com/api/v3"
	sourceName = "CoinGecko"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=coingecko_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the public CoinGecko API. No key is required.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	header     http.Header
}

type Option func(*Client)

// WithBaseURL sets the API root, e.g. https://api.coingecko.com/api/v3.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

func NewClient(options ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) Name() string { return sourceName }

// Prices fetches USD and INR prices, the 24h USD change and the USD market
// cap of the given coin ids in a single /simple/price call. Coins unknown to
// CoinGecko are absent from the result.
func (c *Client) Prices(ctx context.Context, ids []string) (map[string]provider.CryptoEntry, error) {
	clean := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		clean = append(clean, id)
	}
	if len(clean) == 0 {
		return nil, fmt.Errorf("no coin ids: %w", provider.ErrNotFound)
	}

	query := url.Values{}
	query.Set("ids", strings.Join(clean, ","))
	query.Set("vs_currencies", "usd,inr")
	query.Set("include_24hr_change", "true")
	query.Set("include_market_cap", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+query.Encode(), http.NoBody)
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
		return nil, provider.ErrRateLimited
	default:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return nil, fmt.Errorf("unexpected status code %d: %s", res.StatusCode, string(b))
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding simple price response: %w", err)
	}
	if raw, ok := body["status"]; ok {
		var status struct {
			ErrorCode    int    `json:"error_code"`
			ErrorMessage string `json:"error_message"`
		}
		if err := json.Unmarshal(raw, &status); err == nil && status.ErrorCode != 0 {
			if status.ErrorCode == http.StatusTooManyRequests {
				return nil, fmt.Errorf("%s: %w", status.ErrorMessage, provider.ErrRateLimited)
			}
			return nil, fmt.Errorf("provider error: code=%d msg=%q", status.ErrorCode, status.ErrorMessage)
		}
	}

	out := make(map[string]provider.CryptoEntry, len(body))
	for id, raw := range body {
		// {"usd": 67187.33, "usd_market_cap": 1.31e12, "usd_24h_change": 3.63, "inr": 5.6e6, ...}
		var fields map[string]*float64
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", id, err)
		}
		out[id] = provider.CryptoEntry{
			Name:      DisplayName(id),
			PriceUSD:  value(fields, "usd"),
			PriceINR:  value(fields, "inr"),
			Change24h: value(fields, "usd_24h_change"),
			MarketCap: value(fields, "usd_market_cap"),
			Source:    sourceName,
		}
	}
	return out, nil
}

func value(fields map[string]*float64, key string) float64 {
	if v := fields[key]; v != nil {
		return *v
	}
	return 0
}

// DisplayName turns a coin id into a title, e.g. "shiba-inu" -> "Shiba Inu".
func DisplayName(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	prevLetter := false
	for _, r := range strings.ReplaceAll(id, "-", " ") {
		switch {
		case unicode.IsLetter(r) && prevLetter:
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = unicode.IsLetter(r)
	}
	return b.String()
}
