// Package data loads historical candle series for backtesting.
package data

import (
	"fmt"

	"github.com/ducminhle1904/crypto-trading-assistant/pkg/types"
)

// Provider loads a candle series from a named source.
type Provider interface {
	// LoadBars loads the series and guarantees it is valid and in
	// chronological order.
	LoadBars(source string) ([]types.OHLCV, error)

	// GetName returns the name of the provider.
	GetName() string
}

// ValidateBars checks price sanity and chronological ordering. It is the
// shared gate every provider runs loaded data through.
func ValidateBars(bars []types.OHLCV) error {
	if len(bars) == 0 {
		return fmt.Errorf("no bars loaded")
	}

	for i, bar := range bars {
		if bar.Open <= 0 || bar.High <= 0 || bar.Low <= 0 || bar.Close <= 0 {
			return fmt.Errorf("invalid bar at index %d: prices must be positive", i)
		}
		if bar.High < bar.Low {
			return fmt.Errorf("invalid bar at index %d: high %.4f below low %.4f", i, bar.High, bar.Low)
		}
		if bar.High < bar.Open || bar.High < bar.Close {
			return fmt.Errorf("invalid bar at index %d: high %.4f below open/close", i, bar.High)
		}
		if bar.Low > bar.Open || bar.Low > bar.Close {
			return fmt.Errorf("invalid bar at index %d: low %.4f above open/close", i, bar.Low)
		}
		if i > 0 && !bar.Timestamp.After(bars[i-1].Timestamp) {
			return fmt.Errorf("invalid bar at index %d: timestamps must be strictly increasing", i)
		}
	}
	return nil
}
