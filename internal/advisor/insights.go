package advisor

import (
	"fmt"
	"sort"

	"finadvisor/internal/provider"
)

const (
	bitcoinMoveThreshold = 5.0
	stockRallyThreshold  = 3.0
	weakRupeeThreshold   = 85.0

	StableMarketsInsight = "Markets are relatively stable today. Stick to your long-term investment strategy."
)

// Insights derives advice lines from a snapshot. Rules are evaluated in a
// fixed order: bitcoin, then stocks by symbol, then USD/INR. All thresholds
// are strict. When no rule fires the result is StableMarketsInsight alone.
func Insights(snap provider.Snapshot) []string {
	var out []string

	if btc, ok := snap.Crypto["bitcoin"]; ok {
		switch {
		case btc.Change24h > bitcoinMoveThreshold:
			out = append(out, fmt.Sprintf("Bitcoin is up significantly today (+%.1f%%). Consider taking profits if you're overexposed to crypto.", btc.Change24h))
		case btc.Change24h < -bitcoinMoveThreshold:
			out = append(out, fmt.Sprintf("Bitcoin is down significantly today (%.1f%%). This might be a good buying opportunity for long-term investors.", btc.Change24h))
		}
	}

	symbols := make([]string, 0, len(snap.Stocks))
	for s := range snap.Stocks {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	for _, s := range symbols {
		if pct := snap.Stocks[s].ChangePercent; pct > stockRallyThreshold {
			out = append(out, fmt.Sprintf("%s is performing well today (+%.1f%%). Monitor for potential profit-taking opportunities.", s, pct))
		}
	}

	if fx, ok := snap.Forex[provider.PairKey("USD", "INR")]; ok && fx.ExchangeRate > weakRupeeThreshold {
		out = append(out, fmt.Sprintf("USD/INR is at %.2f. Consider international diversification as rupee is weakening.", fx.ExchangeRate))
	}

	if len(out) == 0 {
		out = append(out, StableMarketsInsight)
	}
	return out
}
