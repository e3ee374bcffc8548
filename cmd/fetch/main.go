// Command fetch runs a single market data or advice operation against the
// configured providers and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"finadvisor/internal/advisor"
	"finadvisor/internal/config"
	"finadvisor/internal/di"
	"finadvisor/internal/logger"
	"finadvisor/internal/provider"
)

type market interface {
	Quote(ctx context.Context, symbol string) (provider.Quote, bool)
	CryptoPrices(ctx context.Context, ids []string) map[string]provider.CryptoEntry
	ForexRate(ctx context.Context, from, to string) (provider.ForexRate, bool)
	Snapshot(ctx context.Context) provider.Snapshot
}

type recommender interface {
	Recommend(ctx context.Context, profile string, amount float64) advisor.Recommendation
}

type options struct {
	op      string
	symbol  string
	coins   string
	from    string
	to      string
	profile string
	amount  float64
	income  float64
}

var errNoData = errors.New("no data (provider failure or API limit reached)")

func main() {
	var o options
	var configPath string
	var timeout int

	flag.StringVar(&o.op, "op", "snapshot", "quote | crypto | forex | snapshot | advice | budget")
	flag.StringVar(&o.symbol, "symbol", "AAPL", "equity symbol for -op quote")
	flag.StringVar(&o.coins, "coins", "", "comma-separated coin ids for -op crypto (default coins when empty)")
	flag.StringVar(&o.from, "from", "USD", "base currency for -op forex")
	flag.StringVar(&o.to, "to", "INR", "quote currency for -op forex")
	flag.StringVar(&o.profile, "profile", "moderate", "risk profile for -op advice")
	flag.Float64Var(&o.amount, "amount", 10000, "investment amount for -op advice")
	flag.Float64Var(&o.income, "income", 50000, "monthly income for -op budget")
	flag.IntVar(&timeout, "timeout", 0, "request timeout seconds (overrides config)")
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json or config.yaml (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if timeout > 0 {
		cfg.Server.RequestTimeoutSec = timeout
	}

	// logs go to stderr so stdout stays valid JSON
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: true, Out: os.Stderr})
	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("wiring")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	err = run(ctx, o, container.Gateway, container.Engine, os.Stdout)
	cancel()
	_ = container.Close()
	if err != nil {
		log.Error().Err(err).Str("op", o.op).Msg("fetch failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, m market, r recommender, out io.Writer) error {
	var result any
	switch o.op {
	case "quote":
		q, ok := m.Quote(ctx, o.symbol)
		if !ok {
			return fmt.Errorf("quote %s: %w", o.symbol, errNoData)
		}
		result = q
	case "crypto":
		var ids []string
		if o.coins != "" {
			ids = config.SplitCSV(o.coins)
		}
		result = m.CryptoPrices(ctx, ids)
	case "forex":
		rate, ok := m.ForexRate(ctx, o.from, o.to)
		if !ok {
			return fmt.Errorf("forex %s: %w", provider.PairKey(o.from, o.to), errNoData)
		}
		result = rate
	case "snapshot":
		result = m.Snapshot(ctx)
	case "advice":
		if o.amount <= 0 {
			return fmt.Errorf("invalid investment amount %v", o.amount)
		}
		result = r.Recommend(ctx, o.profile, o.amount)
	case "budget":
		if o.income <= 0 {
			return fmt.Errorf("invalid monthly income %v", o.income)
		}
		result = advisor.Budget(o.income)
	default:
		return fmt.Errorf("unknown op %q", o.op)
	}

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
