package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ducminhle1904/crypto-trading-assistant/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-assistant/pkg/types"
)

// wireIntervals maps common interval names to Bybit's V5 interval codes.
var wireIntervals = map[string]string{
	"1m":  "1",
	"3m":  "3",
	"5m":  "5",
	"15m": "15",
	"30m": "30",
	"1h":  "60",
	"2h":  "120",
	"4h":  "240",
	"6h":  "360",
	"12h": "720",
	"1d":  "D",
	"1w":  "W",
	"1M":  "M",
}

// GetCurrentPrice implements exchange.Exchange using the tickers endpoint.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	wire, err := wireSymbol(symbol)
	if err != nil {
		return 0, err
	}

	params := map[string]interface{}{
		"category": c.category,
		"symbol":   wire,
	}

	result, err := c.callWithRetry(ctx, func() (interface{}, error) {
		return c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("get current price for %s: %w", symbol, err)
	}

	var ticker struct {
		List []struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	}
	if err := remarshal(result, &ticker); err != nil {
		return 0, fmt.Errorf("parse ticker for %s: %w", symbol, err)
	}
	if len(ticker.List) == 0 {
		return 0, &exchange.ExchangeError{
			Code:    exchange.ErrCodePriceUnavailable,
			Message: fmt.Sprintf("no ticker data for %s", symbol),
		}
	}

	return parseFloat64(ticker.List[0].LastPrice), nil
}

// GetKlines implements exchange.Exchange. Bybit returns bars newest first;
// they are reversed here so callers always see chronological order.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error) {
	wire, err := wireSymbol(symbol)
	if err != nil {
		return nil, err
	}

	wireInterval, ok := wireIntervals[interval]
	if !ok {
		return nil, &exchange.ExchangeError{
			Code:    exchange.ErrCodeAPIFailure,
			Message: fmt.Sprintf("unsupported kline interval %q", interval),
		}
	}

	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}

	params := map[string]interface{}{
		"category": c.category,
		"symbol":   wire,
		"interval": wireInterval,
		"limit":    limit,
	}

	result, err := c.callWithRetry(ctx, func() (interface{}, error) {
		return c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("get klines for %s: %w", symbol, err)
	}

	var klineResult struct {
		List [][]string `json:"list"`
	}
	if err := remarshal(result, &klineResult); err != nil {
		return nil, fmt.Errorf("parse klines for %s: %w", symbol, err)
	}

	// Wire format per bar: [startTime, open, high, low, close, volume, turnover].
	bars := make([]types.OHLCV, 0, len(klineResult.List))
	for i := len(klineResult.List) - 1; i >= 0; i-- {
		item := klineResult.List[i]
		if len(item) < 6 {
			continue
		}
		bars = append(bars, types.OHLCV{
			Timestamp: time.UnixMilli(parseInt64(item[0])),
			Open:      parseFloat64(item[1]),
			High:      parseFloat64(item[2]),
			Low:       parseFloat64(item[3]),
			Close:     parseFloat64(item[4]),
			Volume:    parseFloat64(item[5]),
		})
	}

	return bars, nil
}

// remarshal round-trips a decoded result payload into a typed struct.
func remarshal(result interface{}, out interface{}) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
