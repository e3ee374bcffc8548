package alphavantage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFloat64(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"123.45", 123.45},
		{"0", 0},
		{"None", 0},
		{"", 0},
		{"null", 0},
		{"-", 0},
		{"50.5%", 50.5},
		{"-2.3100%", -2.31},
		{"invalid", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseFloat64(tt.input))
		})
	}
}

func TestParseInt64(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"12345", 12345},
		{"0", 0},
		{"None", 0},
		{"", 0},
		{"1.5E10", 15000000000},
		{"123.45", 123},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseInt64(tt.input))
		})
	}
}

func TestParseGlobalQuote_FallsBackToRequestedSymbol(t *testing.T) {
	q, err := parseGlobalQuote("MSFT", map[string]string{"05. price": "410.5"})
	assert.NoError(t, err)
	assert.Equal(t, "MSFT", q.Symbol)
	assert.Equal(t, 410.5, q.Price)
	assert.Zero(t, q.Volume)
	assert.Empty(t, q.LatestTradingDay)
}

func TestParseExchangeRate_KeepsRequestedCodesWhenAbsent(t *testing.T) {
	r, err := parseExchangeRate("EUR", "JPY", map[string]string{"5. Exchange Rate": "161.2"})
	assert.NoError(t, err)
	assert.Equal(t, "EUR", r.FromCurrency)
	assert.Equal(t, "JPY", r.ToCurrency)
	assert.Equal(t, 161.2, r.ExchangeRate)
}
