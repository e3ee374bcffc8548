package advisor

import (
	"strings"

	"github.com/shopspring/decimal"
)

type RiskProfile string

const (
	Conservative RiskProfile = "conservative"
	Moderate     RiskProfile = "moderate"
	Aggressive   RiskProfile = "aggressive"
)

// ParseRiskProfile matches case-insensitively. Anything other than
// conservative or moderate, including the empty string, is aggressive.
func ParseRiskProfile(s string) RiskProfile {
	switch RiskProfile(strings.ToLower(strings.TrimSpace(s))) {
	case Conservative:
		return Conservative
	case Moderate:
		return Moderate
	default:
		return Aggressive
	}
}

type Allocation struct {
	AssetClass string  `json:"asset_class"`
	Percentage int     `json:"percentage"`
	Amount     float64 `json:"amount"`
}

type share struct {
	assetClass string
	percentage int64
}

var tiers = map[RiskProfile][]share{
	Conservative: {
		{"Fixed Deposits/Bonds", 60},
		{"Large Cap Stocks", 25},
		{"Gold/Commodities", 10},
		{"Cash/Emergency Fund", 5},
	},
	Moderate: {
		{"Large Cap Stocks", 40},
		{"Mid Cap Stocks", 20},
		{"Fixed Deposits/Bonds", 25},
		{"Gold/Commodities", 10},
		{"Cryptocurrency", 5},
	},
	Aggressive: {
		{"Large Cap Stocks", 30},
		{"Mid/Small Cap Stocks", 35},
		{"Cryptocurrency", 15},
		{"International Stocks", 10},
		{"Fixed Deposits/Bonds", 10},
	},
}

var hundred = decimal.NewFromInt(100)

// Allocate splits amount across the asset classes of the profile's tier,
// in table order.
func Allocate(profile RiskProfile, amount float64) []Allocation {
	rows, ok := tiers[profile]
	if !ok {
		rows = tiers[Aggressive]
	}
	total := decimal.NewFromFloat(amount)
	out := make([]Allocation, 0, len(rows))
	for _, r := range rows {
		out = append(out, Allocation{
			AssetClass: r.assetClass,
			Percentage: int(r.percentage),
			Amount:     total.Mul(decimal.NewFromInt(r.percentage)).Div(hundred).InexactFloat64(),
		})
	}
	return out
}
