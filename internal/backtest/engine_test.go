package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-trading-assistant/internal/risk"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/strategy"
	"github.com/ducminhle1904/crypto-trading-assistant/pkg/types"
)

// scriptedStrategy replays a fixed signal sequence, padding with holds.
type scriptedStrategy struct {
	signals []strategy.Signal
}

func (s *scriptedStrategy) GetName() string { return "scripted" }

func (s *scriptedStrategy) Signals(bars []types.OHLCV) ([]strategy.Signal, error) {
	out := make([]strategy.Signal, len(bars))
	copy(out, s.signals)
	return out, nil
}

func flatBars(n int, price float64) []types.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.OHLCV, n)
	for i := range bars {
		bars[i] = types.OHLCV{
			Open: price, High: price, Low: price, Close: price, Volume: 1000,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
		}
	}
	return bars
}

// frictionless zeroes commission and slippage so fills are exact.
func frictionless() Config {
	return Config{InitialBalance: 10000, Commission: -1, Slippage: -1, StopLossPct: 0.02, TakeProfitPct: 0.04}
}

// TestRun_StopLossExitsIntraBar tests the bar-low stop check
func TestRun_StopLossExitsIntraBar(t *testing.T) {
	bars := flatBars(6, 100)
	bars[3].Low = 97.5 // pierces the 2% stop at 98

	engine, err := NewEngine(frictionless(), &scriptedStrategy{
		signals: []strategy.Signal{0, 0, strategy.SignalBuy},
	})
	require.NoError(t, err)

	result, err := engine.Run(bars)

	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, EntryReasonSignal, trade.EntryReason)
	assert.Equal(t, ExitReasonStopLoss, trade.ExitReason)
	assert.Equal(t, 98.0, trade.ExitPrice)
	// Cap binds: 10% of 10000 at entry 100 is 10 units, losing 2 each.
	assert.InDelta(t, -20.0, trade.PnL, 1e-9)
	assert.InDelta(t, 9980.0, result.EndBalance, 1e-9)
}

// TestRun_TakeProfitExitsIntraBar tests the bar-high target check
func TestRun_TakeProfitExitsIntraBar(t *testing.T) {
	bars := flatBars(6, 100)
	bars[3].High = 105 // clears the 4% target at 104

	engine, err := NewEngine(frictionless(), &scriptedStrategy{
		signals: []strategy.Signal{0, 0, strategy.SignalBuy},
	})
	require.NoError(t, err)

	result, err := engine.Run(bars)

	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, ExitReasonTakeProfit, trade.ExitReason)
	assert.InDelta(t, 40.0, trade.PnL, 1e-9)
	assert.InDelta(t, 10040.0, result.EndBalance, 1e-9)
}

// TestRun_StopCheckedBeforeTarget tests the conservative intra-bar ordering
func TestRun_StopCheckedBeforeTarget(t *testing.T) {
	bars := flatBars(6, 100)
	bars[3].Low = 97.5
	bars[3].High = 105 // both levels inside one bar

	engine, err := NewEngine(frictionless(), &scriptedStrategy{
		signals: []strategy.Signal{0, 0, strategy.SignalBuy},
	})
	require.NoError(t, err)

	result, err := engine.Run(bars)

	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, ExitReasonStopLoss, result.Trades[0].ExitReason)
}

// TestRun_SellSignalExit tests exits on opposing signals
func TestRun_SellSignalExit(t *testing.T) {
	bars := flatBars(6, 100)
	bars[4].Close = 101
	bars[4].High = 101

	engine, err := NewEngine(frictionless(), &scriptedStrategy{
		signals: []strategy.Signal{0, 0, strategy.SignalBuy, 0, strategy.SignalSell},
	})
	require.NoError(t, err)

	result, err := engine.Run(bars)

	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, ExitReasonSignal, trade.ExitReason)
	assert.Equal(t, 101.0, trade.ExitPrice)
}

// TestRun_OpenPositionClosedAtEnd tests the final-bar flatten
func TestRun_OpenPositionClosedAtEnd(t *testing.T) {
	bars := flatBars(5, 100)

	engine, err := NewEngine(frictionless(), &scriptedStrategy{
		signals: []strategy.Signal{0, 0, 0, strategy.SignalBuy},
	})
	require.NoError(t, err)

	result, err := engine.Run(bars)

	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, ExitReasonEnd, result.Trades[0].ExitReason)
	assert.InDelta(t, 10000.0, result.EndBalance, 1e-9)
}

// TestRun_WarmupBlocksEarlyEntries tests the warmup window
func TestRun_WarmupBlocksEarlyEntries(t *testing.T) {
	bars := flatBars(10, 100)
	cfg := frictionless()
	cfg.WarmupBars = 5

	engine, err := NewEngine(cfg, &scriptedStrategy{
		signals: []strategy.Signal{0, strategy.SignalBuy},
	})
	require.NoError(t, err)

	result, err := engine.Run(bars)

	require.NoError(t, err)
	assert.Empty(t, result.Trades)
	assert.Equal(t, 10000.0, result.EndBalance)
}

// TestRun_OneEquityPointPerBar tests equity curve alignment
func TestRun_OneEquityPointPerBar(t *testing.T) {
	bars := flatBars(8, 100)

	engine, err := NewEngine(frictionless(), &scriptedStrategy{
		signals: []strategy.Signal{0, 0, strategy.SignalBuy},
	})
	require.NoError(t, err)

	result, err := engine.Run(bars)

	require.NoError(t, err)
	assert.Len(t, result.Equity, len(bars))
	for i, point := range result.Equity {
		assert.Equal(t, bars[i].Timestamp, point.Timestamp)
	}
}

// TestRun_FlatSeriesProducesNoTradesAndZeroSharpe tests a zero-variance
// price series end to end through a real strategy
func TestRun_FlatSeriesProducesNoTradesAndZeroSharpe(t *testing.T) {
	bars := flatBars(80, 50)
	strat, err := strategy.NewRuleStrategy(strategy.Config{Rule: strategy.RuleMACD})
	require.NoError(t, err)

	engine, err := NewEngine(Config{InitialBalance: 10000}, strat)
	require.NoError(t, err)

	result, err := engine.Run(bars)

	require.NoError(t, err)
	assert.Empty(t, result.Trades)
	assert.Equal(t, 0.0, result.Metrics.SharpeRatio)
	assert.Equal(t, 0.0, result.Metrics.MaxDrawdown)
	assert.Equal(t, 10000.0, result.EndBalance)
}

// TestRun_Deterministic tests that identical inputs reproduce identical results
func TestRun_Deterministic(t *testing.T) {
	bars := flatBars(50, 100)
	for i := range bars {
		price := 100.0 + float64(i%7) - float64(i%3)
		bars[i].Open, bars[i].Close = price, price
		bars[i].High, bars[i].Low = price+2, price-2
	}
	signals := make([]strategy.Signal, 50)
	for i := 5; i < 50; i += 9 {
		signals[i] = strategy.SignalBuy
		signals[i+4] = strategy.SignalSell
	}

	run := func() *Result {
		engine, err := NewEngine(frictionless(), &scriptedStrategy{signals: signals})
		require.NoError(t, err)
		result, err := engine.Run(bars)
		require.NoError(t, err)
		return result
	}

	assert.Equal(t, run(), run())
}

// TestRun_RejectsEmptyAndUnorderedBars tests load validation
func TestRun_RejectsEmptyAndUnorderedBars(t *testing.T) {
	engine, err := NewEngine(frictionless(), &scriptedStrategy{})
	require.NoError(t, err)

	_, err = engine.Run(nil)
	assert.Error(t, err)

	bars := flatBars(3, 100)
	bars[2].Timestamp = bars[0].Timestamp.Add(-time.Hour)
	_, err = engine.Run(bars)
	assert.Error(t, err)
}

// TestNewEngine_RejectsBadLimits tests fail-fast construction
func TestNewEngine_RejectsBadLimits(t *testing.T) {
	cfg := frictionless()
	cfg.Limits = risk.DefaultLimits()
	cfg.Limits.MaxOpenPositions = -1

	_, err := NewEngine(cfg, &scriptedStrategy{})

	assert.Error(t, err)
}
