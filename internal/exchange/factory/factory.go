// Package factory constructs trading venues from configuration, so the
// rest of the system depends only on the exchange.Exchange interface and
// switching live<->paper is a config change.
package factory

import (
	"fmt"
	"strings"

	"github.com/ducminhle1904/crypto-trading-assistant/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/exchange/bybit"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/exchange/paper"
)

// Config selects and configures a venue.
type Config struct {
	Venue string        `json:"venue"` // "paper" or "bybit"
	Bybit *bybit.Config `json:"bybit,omitempty"`
	Paper *paper.Config `json:"paper,omitempty"`
}

// SupportedVenues lists the venue names New accepts.
func SupportedVenues() []string {
	return []string{"paper", "bybit"}
}

// New creates the venue named in the config.
func New(cfg Config) (exchange.Exchange, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Venue)) {
	case "paper", "":
		var paperCfg paper.Config
		if cfg.Paper != nil {
			paperCfg = *cfg.Paper
		}
		return paper.NewVenue(paperCfg), nil

	case "bybit":
		if cfg.Bybit == nil || cfg.Bybit.APIKey == "" || cfg.Bybit.APISecret == "" {
			return nil, &exchange.ExchangeError{
				Code:    exchange.ErrCodeUnsupportedVenue,
				Message: "bybit venue requires api key and secret",
			}
		}
		return bybit.NewClient(*cfg.Bybit), nil

	default:
		return nil, &exchange.ExchangeError{
			Code:    exchange.ErrCodeUnsupportedVenue,
			Message: fmt.Sprintf("venue %q is not supported", cfg.Venue),
			Details: "supported venues: " + strings.Join(SupportedVenues(), ", "),
		}
	}
}
