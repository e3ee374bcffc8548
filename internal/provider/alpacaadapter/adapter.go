// Package alpacaadapter serves equity quotes from Alpaca market data
// snapshots as an alternative to Alpha Vantage.
package alpacaadapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"finadvisor/internal/provider"
)

// SnapshotGetter is the subset of *marketdata.Client used by the adapter.
type SnapshotGetter interface {
	GetSnapshot(symbol string, req marketdata.GetSnapshotRequest) (*marketdata.Snapshot, error)
}

type Config struct {
	Name      string // display name, default: Alpaca
	APIKey    string
	APISecret string
	BaseURL   string
	Feed      marketdata.Feed // default: iex
	// HTTPClient carries the request timeout; when nil one is built from Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration // default: 10s
}

type Adapter struct {
	cfg    Config
	client SnapshotGetter
}

var _ provider.QuoteSource = (*Adapter)(nil)

// New builds an adapter backed by a real marketdata client. The SDK's
// retries are disabled; a failed snapshot is reported once.
func New(cfg Config) *Adapter {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:     cfg.APIKey,
		APISecret:  cfg.APISecret,
		BaseURL:    cfg.BaseURL,
		RetryLimit: -1, // 0 selects the SDK default of 10
		HTTPClient: httpClient,
	})
	return NewWithClient(cfg, client)
}

func NewWithClient(cfg Config, client SnapshotGetter) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "Alpaca"
	}
	if cfg.Feed == "" {
		cfg.Feed = marketdata.IEX
	}
	return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Name() string { return a.cfg.Name }

type snapshotResult struct {
	snap *marketdata.Snapshot
	err  error
}

// Quote returns the latest trade price with the change measured against the
// previous daily close. The SDK call takes no context, so it runs in its own
// goroutine and Quote returns as soon as ctx is done; the HTTP client timeout
// bounds the abandoned call.
func (a *Adapter) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return provider.Quote{}, provider.ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return provider.Quote{}, err
	}

	done := make(chan snapshotResult, 1)
	go func() {
		snap, err := a.client.GetSnapshot(symbol, marketdata.GetSnapshotRequest{Feed: a.cfg.Feed})
		done <- snapshotResult{snap: snap, err: err}
	}()

	var res snapshotResult
	select {
	case <-ctx.Done():
		return provider.Quote{}, fmt.Errorf("alpaca snapshot %s: %w", symbol, ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return provider.Quote{}, fmt.Errorf("alpaca snapshot %s: %w", symbol, res.err)
	}
	q, ok := FromSnapshot(symbol, res.snap)
	if !ok {
		return provider.Quote{}, fmt.Errorf("alpaca snapshot %s: %w", symbol, provider.ErrNotFound)
	}
	q.Source = a.cfg.Name
	return q, nil
}

// FromSnapshot converts an Alpaca snapshot to a Quote. The price comes from
// the latest trade, falling back to the daily bar close; without either the
// snapshot is unusable.
func FromSnapshot(symbol string, snap *marketdata.Snapshot) (provider.Quote, bool) {
	if snap == nil {
		return provider.Quote{}, false
	}
	q := provider.Quote{Symbol: symbol}
	switch {
	case snap.LatestTrade != nil && snap.LatestTrade.Price > 0:
		q.Price = snap.LatestTrade.Price
		q.LatestTradingDay = snap.LatestTrade.Timestamp.UTC().Format("2006-01-02")
	case snap.DailyBar != nil && snap.DailyBar.Close > 0:
		q.Price = snap.DailyBar.Close
	default:
		return provider.Quote{}, false
	}
	if snap.DailyBar != nil {
		q.Volume = int64(snap.DailyBar.Volume)
		if q.LatestTradingDay == "" {
			q.LatestTradingDay = snap.DailyBar.Timestamp.UTC().Format("2006-01-02")
		}
	}
	if snap.PrevDailyBar != nil && snap.PrevDailyBar.Close > 0 {
		prev := snap.PrevDailyBar.Close
		q.Change = q.Price - prev
		q.ChangePercent = q.Change / prev * 100
	}
	return q, true
}
