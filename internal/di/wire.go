// Package di wires configuration into the market data sources, the gateway
// and the recommendation engine shared by the server and the CLI.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"finadvisor/internal/advisor"
	"finadvisor/internal/config"
	"finadvisor/internal/gateway"
	"finadvisor/internal/httpx"
	"finadvisor/internal/provider"
	"finadvisor/internal/provider/alpacaadapter"
	"finadvisor/internal/provider/alphavantage"
	"finadvisor/internal/provider/cache"
	"finadvisor/internal/provider/coingecko"
)

type Container struct {
	Quotes provider.QuoteSource
	Crypto provider.CryptoSource
	FX     provider.FXSource

	Gateway *gateway.Gateway
	Engine  *advisor.Engine

	closers []func() error
}

// Close releases connections opened by Wire.
func (c *Container) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

// Wire builds the sources, optionally wrapped in a cache, and the gateway and
// engine on top of them.
func Wire(cfg config.Config, log zerolog.Logger) (*Container, error) {
	timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second
	httpClient := httpx.New(timeout)

	if cfg.AlphaVantage.APIKey == config.DemoAPIKey {
		log.Warn().Msg("ALPHA_VANTAGE_API_KEY not set; using the demo key, most symbols will be unavailable")
	}
	av := alphavantage.NewClient(
		cfg.AlphaVantage.APIKey,
		alphavantage.WithBaseURL(cfg.AlphaVantage.Endpoint),
		alphavantage.WithHTTPClient(httpClient),
	)
	cg := coingecko.NewClient(
		coingecko.WithBaseURL(cfg.CoinGecko.Endpoint),
		coingecko.WithHTTPClient(httpClient),
	)

	c := &Container{Quotes: av, Crypto: cg, FX: av}

	if cfg.Alpaca.Enabled {
		if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
			log.Warn().Msg("alpaca.enabled=true but ALPACA_API_KEY/ALPACA_API_SECRET not set; keeping Alpha Vantage for equities")
		} else {
			c.Quotes = alpacaadapter.New(alpacaadapter.Config{
				APIKey:     cfg.Alpaca.APIKey,
				APISecret:  cfg.Alpaca.APISecret,
				BaseURL:    cfg.Alpaca.BaseURL,
				HTTPClient: httpClient.HTTP,
				Timeout:    timeout,
			})
		}
	}

	if cfg.Cache.TTLSeconds > 0 {
		store, err := c.newStore(cfg.Cache)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		opts := cache.Options{
			Store:        store,
			TTL:          time.Duration(cfg.Cache.TTLSeconds) * time.Second,
			FetchTimeout: timeout,
			Logger:       log.With().Str("component", "cache").Logger(),
		}
		c.Quotes = cache.NewQuotes(c.Quotes, opts)
		c.Crypto = cache.NewCrypto(c.Crypto, opts)
		c.FX = cache.NewRates(c.FX, opts)
	}

	c.Gateway = gateway.New(gateway.Config{
		PopularSymbols:     cfg.Market.PopularSymbols,
		SnapshotStockLimit: cfg.Market.SnapshotStockLimit,
		DefaultCoins:       cfg.Market.DefaultCoins,
		ForexFrom:          cfg.Market.ForexFrom,
		ForexTo:            cfg.Market.ForexTo,
		RequestTimeout:     timeout,
	}, c.Quotes, c.Crypto, c.FX, log)
	c.Engine = advisor.NewEngine(c.Gateway, log)

	log.Info().
		Str("equities", c.Quotes.Name()).
		Str("crypto", c.Crypto.Name()).
		Str("forex", c.FX.Name()).
		Int("cache_ttl_sec", cfg.Cache.TTLSeconds).
		Msg("market data sources wired")
	return c, nil
}

func (c *Container) newStore(cfg config.Cache) (cache.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return cache.NewMemoryStore(cfg.MaxItems), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis cache at %s: %w", cfg.RedisAddr, err)
		}
		c.closers = append(c.closers, client.Close)
		return cache.NewRedisStore(client, "finadvisor:"), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
