// Package gateway exposes the market data providers behind one fail-closed
// interface. Every query yields either a usable record or nothing; provider
// errors are logged and never reach the caller.
package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"finadvisor/internal/provider"
)

var (
	DefaultPopularSymbols = []string{"AAPL", "GOOGL", "MSFT", "TSLA", "AMZN"}
	DefaultCoins          = []string{"bitcoin", "ethereum", "binancecoin", "cardano", "solana"}
)

const (
	DefaultForexFrom = "USD"
	DefaultForexTo   = "INR"
)

type Config struct {
	PopularSymbols     []string
	SnapshotStockLimit int
	DefaultCoins       []string
	ForexFrom          string
	ForexTo            string
	// RequestTimeout bounds each upstream call; <= 0 leaves only the caller's deadline.
	RequestTimeout time.Duration
}

type Gateway struct {
	cfg    Config
	quotes provider.QuoteSource
	crypto provider.CryptoSource
	fx     provider.FXSource
	log    zerolog.Logger
	now    func() time.Time
}

func New(cfg Config, quotes provider.QuoteSource, crypto provider.CryptoSource, fx provider.FXSource, log zerolog.Logger) *Gateway {
	if len(cfg.PopularSymbols) == 0 {
		cfg.PopularSymbols = DefaultPopularSymbols
	}
	if len(cfg.DefaultCoins) == 0 {
		cfg.DefaultCoins = DefaultCoins
	}
	if cfg.ForexFrom == "" {
		cfg.ForexFrom = DefaultForexFrom
	}
	if cfg.ForexTo == "" {
		cfg.ForexTo = DefaultForexTo
	}
	if cfg.SnapshotStockLimit < 0 {
		cfg.SnapshotStockLimit = 0
	}
	return &Gateway{
		cfg:    cfg,
		quotes: quotes,
		crypto: crypto,
		fx:     fx,
		log:    log.With().Str("component", "gateway").Logger(),
		now:    time.Now,
	}
}

func (g *Gateway) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.RequestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.cfg.RequestTimeout)
}

func (g *Gateway) warn(err error, source, op string) *zerolog.Event {
	lvl := g.log.Warn()
	if errors.Is(err, provider.ErrRateLimited) {
		lvl = lvl.Bool("rate_limited", true)
	}
	return lvl.Err(err).Str("source", source).Str("op", op)
}

// Quote returns the latest quote for symbol, or false when the provider
// fails, rate-limits, or returns an unusable payload.
func (g *Gateway) Quote(ctx context.Context, symbol string) (provider.Quote, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return provider.Quote{}, false
	}
	ctx, cancel := g.bound(ctx)
	defer cancel()

	q, err := g.quotes.Quote(ctx, symbol)
	if err != nil {
		g.warn(err, g.quotes.Name(), "quote").Str("symbol", symbol).Msg("quote unavailable")
		return provider.Quote{}, false
	}
	return q, true
}

// CryptoPrices returns prices keyed by coin id. Nil or empty ids select the
// default coins. Failure yields an empty map.
func (g *Gateway) CryptoPrices(ctx context.Context, ids []string) map[string]provider.CryptoEntry {
	if len(ids) == 0 {
		ids = g.cfg.DefaultCoins
	}
	ctx, cancel := g.bound(ctx)
	defer cancel()

	prices, err := g.crypto.Prices(ctx, ids)
	if err != nil {
		g.warn(err, g.crypto.Name(), "crypto").Strs("ids", ids).Msg("crypto prices unavailable")
		return map[string]provider.CryptoEntry{}
	}
	if prices == nil {
		prices = map[string]provider.CryptoEntry{}
	}
	return prices
}

// ForexRate returns the from→to rate. Empty currencies default to USD and INR.
func (g *Gateway) ForexRate(ctx context.Context, from, to string) (provider.ForexRate, bool) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" {
		from = DefaultForexFrom
	}
	if to == "" {
		to = DefaultForexTo
	}
	ctx, cancel := g.bound(ctx)
	defer cancel()

	rate, err := g.fx.Rate(ctx, from, to)
	if err != nil {
		g.warn(err, g.fx.Name(), "forex").Str("pair", provider.PairKey(from, to)).Msg("forex rate unavailable")
		return provider.ForexRate{}, false
	}
	return rate, true
}

// Snapshot assembles quotes for the first SnapshotStockLimit popular
// symbols, the default coins and the configured forex pair. The calls run
// one after another; a failed call leaves its section empty.
func (g *Gateway) Snapshot(ctx context.Context) provider.Snapshot {
	snap := provider.NewSnapshot()

	symbols := g.cfg.PopularSymbols
	if g.cfg.SnapshotStockLimit < len(symbols) {
		symbols = symbols[:g.cfg.SnapshotStockLimit]
	}
	for _, s := range symbols {
		if ctx.Err() != nil {
			break
		}
		if q, ok := g.Quote(ctx, s); ok {
			snap.Stocks[strings.ToUpper(s)] = q
		}
	}

	if ctx.Err() == nil {
		snap.Crypto = g.CryptoPrices(ctx, nil)
	}

	if ctx.Err() == nil {
		if rate, ok := g.ForexRate(ctx, g.cfg.ForexFrom, g.cfg.ForexTo); ok {
			snap.Forex[provider.PairKey(strings.ToUpper(g.cfg.ForexFrom), strings.ToUpper(g.cfg.ForexTo))] = rate
		}
	}

	snap.LastUpdated = g.now().UTC()
	g.log.Debug().
		Int("stocks", len(snap.Stocks)).
		Int("crypto", len(snap.Crypto)).
		Int("forex", len(snap.Forex)).
		Msg("snapshot assembled")
	return snap
}
