package provider

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by sources when the upstream answered but had no
// data for the requested symbol, coin or currency pair.
var ErrNotFound = errors.New("not found")

// ErrRateLimited is returned when the upstream signals that the caller's
// quota is exhausted (HTTP 429 or an in-band notice).
var ErrRateLimited = errors.New("rate limited")

// Quote is the normalized equities quote shape returned by every equities source.
type Quote struct {
	Symbol           string  `json:"symbol"`
	Price            float64 `json:"price"`
	Change           float64 `json:"change"`
	ChangePercent    float64 `json:"change_percent"`
	Volume           int64   `json:"volume"`
	LatestTradingDay string  `json:"latest_trading_day"`
	Source           string  `json:"source"`
}

// CryptoEntry is the normalized price record of a single coin.
type CryptoEntry struct {
	Name      string  `json:"name"`
	PriceUSD  float64 `json:"price_usd"`
	PriceINR  float64 `json:"price_inr"`
	Change24h float64 `json:"change_24h"`
	MarketCap float64 `json:"market_cap"`
	Source    string  `json:"source"`
}

// ForexRate is the normalized exchange rate of one currency pair.
type ForexRate struct {
	FromCurrency  string  `json:"from_currency"`
	ToCurrency    string  `json:"to_currency"`
	ExchangeRate  float64 `json:"exchange_rate"`
	LastRefreshed string  `json:"last_refreshed"`
	Source        string  `json:"source"`
}

// Snapshot is a point-in-time view assembled from all sources. Any of the
// maps may be empty when the corresponding source failed.
type Snapshot struct {
	Stocks      map[string]Quote       `json:"stocks"`
	Crypto      map[string]CryptoEntry `json:"crypto"`
	Forex       map[string]ForexRate   `json:"forex"`
	LastUpdated time.Time              `json:"last_updated"`
}

// NewSnapshot returns a snapshot with empty, non-nil maps.
func NewSnapshot() Snapshot {
	return Snapshot{
		Stocks: map[string]Quote{},
		Crypto: map[string]CryptoEntry{},
		Forex:  map[string]ForexRate{},
	}
}

// PairKey is the snapshot key of a currency pair, e.g. "USD_INR".
func PairKey(from, to string) string { return from + "_" + to }

type QuoteSource interface {
	Name() string
	Quote(ctx context.Context, symbol string) (Quote, error)
}

type CryptoSource interface {
	Name() string
	Prices(ctx context.Context, ids []string) (map[string]CryptoEntry, error)
}

type FXSource interface {
	Name() string
	Rate(ctx context.Context, from, to string) (ForexRate, error)
}
