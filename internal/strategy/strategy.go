// Package strategy turns indicator series into trade signals. Strategies
// are pure: the whole bar sequence goes in, one aligned signal series
// comes out, so a backtest run is reproducible by construction.
package strategy

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/crypto-trading-assistant/internal/indicators"
	"github.com/ducminhle1904/crypto-trading-assistant/pkg/types"
)

// Signal is the decision for one bar.
type Signal int

const (
	SignalHold Signal = iota
	SignalBuy
	SignalSell
)

func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Strategy produces one signal per input bar.
type Strategy interface {
	GetName() string
	Signals(bars []types.OHLCV) ([]Signal, error)
}

// Rule names a signal rule implemented by RuleStrategy.
type Rule string

const (
	RuleSMACrossover Rule = "sma_crossover"
	RuleRSI          Rule = "rsi"
	RuleMACD         Rule = "macd"
)

// Config selects and parameterizes a rule. Zero values fall back to the
// conventional defaults for that rule.
type Config struct {
	Rule       Rule    `json:"rule"`
	FastPeriod int     `json:"fast_period"` // SMA crossover fast window, MACD fast EMA
	SlowPeriod int     `json:"slow_period"` // SMA crossover slow window, MACD slow EMA
	Period     int     `json:"period"`      // RSI lookback
	Oversold   float64 `json:"oversold"`    // RSI buy threshold
	Overbought float64 `json:"overbought"`  // RSI sell threshold
	Signal     int     `json:"signal"`      // MACD signal EMA
}

// RuleStrategy implements the rule named in its config.
type RuleStrategy struct {
	cfg Config
}

// NewRuleStrategy creates a strategy for the configured rule.
func NewRuleStrategy(cfg Config) (*RuleStrategy, error) {
	switch cfg.Rule {
	case RuleSMACrossover, RuleRSI, RuleMACD:
	case "":
		cfg.Rule = RuleSMACrossover
	default:
		return nil, fmt.Errorf("unknown strategy rule %q", cfg.Rule)
	}

	if cfg.FastPeriod == 0 {
		cfg.FastPeriod = 12
	}
	if cfg.SlowPeriod == 0 {
		cfg.SlowPeriod = 26
	}
	if cfg.Period == 0 {
		cfg.Period = 14
	}
	if cfg.Oversold == 0 {
		cfg.Oversold = 30
	}
	if cfg.Overbought == 0 {
		cfg.Overbought = 70
	}
	if cfg.Signal == 0 {
		cfg.Signal = 9
	}
	if cfg.FastPeriod >= cfg.SlowPeriod {
		return nil, fmt.Errorf("fast period %d must be shorter than slow period %d", cfg.FastPeriod, cfg.SlowPeriod)
	}

	return &RuleStrategy{cfg: cfg}, nil
}

// GetName implements Strategy.
func (s *RuleStrategy) GetName() string { return string(s.cfg.Rule) }

// Signals implements Strategy.
func (s *RuleStrategy) Signals(bars []types.OHLCV) ([]Signal, error) {
	closes := indicators.Closes(bars)

	switch s.cfg.Rule {
	case RuleRSI:
		return s.rsiSignals(closes)
	case RuleMACD:
		return s.macdSignals(closes)
	default:
		return s.crossoverSignals(closes)
	}
}

// crossoverSignals fires a buy when the fast SMA crosses above the slow
// SMA and a sell on the opposite cross. Only the crossing bar signals.
func (s *RuleStrategy) crossoverSignals(closes []float64) ([]Signal, error) {
	fast, err := indicators.SMA(closes, s.cfg.FastPeriod)
	if err != nil {
		return nil, err
	}
	slow, err := indicators.SMA(closes, s.cfg.SlowPeriod)
	if err != nil {
		return nil, err
	}
	return crossSignals(fast, slow), nil
}

// rsiSignals fires a buy on entry into oversold territory and a sell on
// entry into overbought territory.
func (s *RuleStrategy) rsiSignals(closes []float64) ([]Signal, error) {
	rsi, err := indicators.RSI(closes, s.cfg.Period)
	if err != nil {
		return nil, err
	}

	out := make([]Signal, len(closes))
	for i := 1; i < len(rsi); i++ {
		if math.IsNaN(rsi[i]) || math.IsNaN(rsi[i-1]) {
			continue
		}
		switch {
		case rsi[i] < s.cfg.Oversold && rsi[i-1] >= s.cfg.Oversold:
			out[i] = SignalBuy
		case rsi[i] > s.cfg.Overbought && rsi[i-1] <= s.cfg.Overbought:
			out[i] = SignalSell
		}
	}
	return out, nil
}

// macdSignals fires on MACD line crossings of its signal line.
func (s *RuleStrategy) macdSignals(closes []float64) ([]Signal, error) {
	macd, err := indicators.MACD(closes, s.cfg.FastPeriod, s.cfg.SlowPeriod, s.cfg.Signal)
	if err != nil {
		return nil, err
	}
	return crossSignals(macd.MACD, macd.Signal), nil
}

func crossSignals(fast, slow []float64) []Signal {
	out := make([]Signal, len(fast))
	for i := 1; i < len(fast); i++ {
		if math.IsNaN(fast[i]) || math.IsNaN(slow[i]) || math.IsNaN(fast[i-1]) || math.IsNaN(slow[i-1]) {
			continue
		}
		above, wasAbove := fast[i] > slow[i], fast[i-1] > slow[i-1]
		switch {
		case above && !wasAbove:
			out[i] = SignalBuy
		case !above && wasAbove:
			out[i] = SignalSell
		}
	}
	return out
}
