// Package advisor holds the finance rules of the service: risk-tiered
// investment allocation with market insights, the 50/30/20 budget and the
// fixed financial tips.
package advisor

import (
	"context"

	"github.com/rs/zerolog"

	"finadvisor/internal/provider"
)

// SnapshotSource supplies a fresh market snapshot. *gateway.Gateway
// satisfies it.
type SnapshotSource interface {
	Snapshot(ctx context.Context) provider.Snapshot
}

type Recommendation struct {
	RiskProfile      string            `json:"risk_profile"`
	InvestmentAmount float64           `json:"investment_amount"`
	Allocations      []Allocation      `json:"allocations"`
	MarketInsights   []string          `json:"market_insights"`
	MarketData       provider.Snapshot `json:"market_data"`
}

type Engine struct {
	market SnapshotSource
	log    zerolog.Logger
}

func NewEngine(market SnapshotSource, log zerolog.Logger) *Engine {
	return &Engine{market: market, log: log.With().Str("component", "advisor").Logger()}
}

// Recommend builds the allocation for profile and annotates it with insights
// from a freshly fetched snapshot. amount must be positive; callers validate
// it. The profile is echoed back as supplied.
func (e *Engine) Recommend(ctx context.Context, profile string, amount float64) Recommendation {
	tier := ParseRiskProfile(profile)
	allocations := Allocate(tier, amount)

	snap := e.market.Snapshot(ctx)
	insights := Insights(snap)

	e.log.Debug().
		Str("risk_profile", profile).
		Str("tier", string(tier)).
		Float64("amount", amount).
		Int("insights", len(insights)).
		Msg("recommendation built")

	return Recommendation{
		RiskProfile:      profile,
		InvestmentAmount: amount,
		Allocations:      allocations,
		MarketInsights:   insights,
		MarketData:       snap,
	}
}
