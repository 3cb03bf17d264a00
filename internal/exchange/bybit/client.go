// Package bybit adapts the Bybit V5 unified trading API to the
// exchange.Exchange interface. Symbols cross this boundary in BASE/QUOTE
// form and are flattened to Bybit's concatenated form on the wire.
package bybit

import (
	"strings"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/ducminhle1904/crypto-trading-assistant/internal/exchange"
)

// Config holds the credentials and environment for a Bybit client.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool   // Bybit demo trading environment
	Category  string // "spot" or "linear"; defaults to spot
}

// Client implements exchange.Exchange against Bybit.
type Client struct {
	httpClient *bybit_api.Client
	category   string
	testnet    bool
	demo       bool
	retry      RetryConfig
}

// NewClient creates a Bybit client for the configured environment.
func NewClient(cfg Config) *Client {
	var baseURL string
	switch {
	case cfg.Demo:
		baseURL = "https://api-demo.bybit.com"
	case cfg.Testnet:
		baseURL = bybit_api.TESTNET
	default:
		baseURL = bybit_api.MAINNET
	}

	category := cfg.Category
	if category == "" {
		category = "spot"
	}

	return &Client{
		httpClient: bybit_api.NewBybitHttpClient(
			cfg.APIKey,
			cfg.APISecret,
			bybit_api.WithBaseURL(baseURL),
		),
		category: category,
		testnet:  cfg.Testnet,
		demo:     cfg.Demo,
		retry:    DefaultRetryConfig(),
	}
}

// GetName implements exchange.Exchange.
func (c *Client) GetName() string { return "bybit" }

// Environment returns which Bybit environment the client talks to.
func (c *Client) Environment() string {
	switch {
	case c.demo:
		return "demo"
	case c.testnet:
		return "testnet"
	default:
		return "mainnet"
	}
}

// Close implements exchange.Exchange. The underlying HTTP client holds no
// persistent connections that need teardown.
func (c *Client) Close() error { return nil }

// wireSymbol converts BASE/QUOTE to Bybit's concatenated symbol form.
func wireSymbol(symbol string) (string, error) {
	parts := strings.Split(symbol, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", &exchange.ExchangeError{
			Code:    exchange.ErrCodeInvalidSymbol,
			Message: "symbol " + symbol + " is not in BASE/QUOTE form",
		}
	}
	return parts[0] + parts[1], nil
}
