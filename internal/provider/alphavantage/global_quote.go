package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"finadvisor/internal/provider"
)

// Quote fetches the GLOBAL_QUOTE of a single symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return provider.Quote{}, fmt.Errorf("empty symbol: %w", provider.ErrNotFound)
	}
	body, err := c.get(ctx, "GLOBAL_QUOTE", url.Values{"symbol": {symbol}})
	if err != nil {
		return provider.Quote{}, err
	}
	fields, err := section(body, "Global Quote")
	if err != nil {
		return provider.Quote{}, fmt.Errorf("%s: %w", symbol, err)
	}
	return parseGlobalQuote(symbol, fields)
}

// parseGlobalQuote maps the numbered Alpha Vantage fields. Only the price is
// mandatory; the remaining fields default to zero values.
//
//	{
//	  "01. symbol": "IBM",
//	  "05. price": "186.20",
//	  "06. volume": "3456789",
//	  "07. latest trading day": "2024-01-15",
//	  "09. change": "1.20",
//	  "10. change percent": "0.65%"
//	}
func parseGlobalQuote(requested string, fields map[string]string) (provider.Quote, error) {
	price, ok := parseFloat64Strict(fields["05. price"])
	if !ok {
		return provider.Quote{}, fmt.Errorf("%s: missing price: %w", requested, provider.ErrNotFound)
	}
	symbol := strings.TrimSpace(fields["01. symbol"])
	if symbol == "" {
		symbol = requested
	}
	return provider.Quote{
		Symbol:           symbol,
		Price:            price,
		Change:           parseFloat64(fields["09. change"]),
		ChangePercent:    parseFloat64(fields["10. change percent"]),
		Volume:           parseInt64(fields["06. volume"]),
		LatestTradingDay: strings.TrimSpace(fields["07. latest trading day"]),
		Source:           sourceName,
	}, nil
}
