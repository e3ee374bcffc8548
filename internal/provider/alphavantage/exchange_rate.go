package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"finadvisor/internal/provider"
)

// Rate fetches the realtime CURRENCY_EXCHANGE_RATE of a currency pair.
func (c *Client) Rate(ctx context.Context, from, to string) (provider.ForexRate, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	body, err := c.get(ctx, "CURRENCY_EXCHANGE_RATE", url.Values{
		"from_currency": {from},
		"to_currency":   {to},
	})
	if err != nil {
		return provider.ForexRate{}, err
	}
	fields, err := section(body, "Realtime Currency Exchange Rate")
	if err != nil {
		return provider.ForexRate{}, fmt.Errorf("%s->%s: %w", from, to, err)
	}
	return parseExchangeRate(from, to, fields)
}

func parseExchangeRate(from, to string, fields map[string]string) (provider.ForexRate, error) {
	rate, ok := parseFloat64Strict(fields["5. Exchange Rate"])
	if !ok {
		return provider.ForexRate{}, fmt.Errorf("%s->%s: missing exchange rate: %w", from, to, provider.ErrNotFound)
	}
	if v := strings.TrimSpace(fields["1. From_Currency Code"]); v != "" {
		from = v
	}
	if v := strings.TrimSpace(fields["3. To_Currency Code"]); v != "" {
		to = v
	}
	return provider.ForexRate{
		FromCurrency:  from,
		ToCurrency:    to,
		ExchangeRate:  rate,
		LastRefreshed: strings.TrimSpace(fields["6. Last Refreshed"]),
		Source:        sourceName,
	}, nil
}
