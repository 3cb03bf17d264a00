// Package backtest replays historical bars through the same risk and
// sizing rules the live execution path uses, producing trades, an equity
// curve, and performance metrics. A run is deterministic: identical bars,
// config, and strategy reproduce an identical result.
package backtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/ducminhle1904/crypto-trading-assistant/internal/indicators"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/risk"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/strategy"
	"github.com/ducminhle1904/crypto-trading-assistant/pkg/types"
)

const (
	// DefaultCommission is 0.1% per simulated fill.
	DefaultCommission = 0.001
	// DefaultSlippage is 0.05% adverse price adjustment per simulated fill.
	DefaultSlippage = 0.0005
)

// Entry and exit reasons recorded on closed trades. Entries only ever
// come from a strategy buy signal.
const (
	EntryReasonSignal = "signal"

	ExitReasonStopLoss   = "stop_loss"
	ExitReasonTakeProfit = "take_profit"
	ExitReasonSignal     = "signal"
	ExitReasonEnd        = "backtest_end"
)

// Config parameterizes one backtest run. Zero values fall back to the
// documented defaults; a negative Commission or Slippage means zero.
type Config struct {
	InitialBalance float64
	Commission     float64
	Slippage       float64
	Limits         risk.Limits // zero value uses risk.DefaultLimits
	RiskPct        float64     // zero uses the limit set's per-trade maximum
	StopLossPct    float64     // zero uses the limit set's default
	TakeProfitPct  float64
	WarmupBars     int // bars skipped before the first entry is allowed
}

// Trade is one closed simulated position. Trades are immutable once
// recorded.
type Trade struct {
	EntryTime   time.Time
	ExitTime    time.Time
	EntryPrice  float64
	ExitPrice   float64
	Quantity    float64
	Commission  float64
	PnL         float64
	EntryReason string
	ExitReason  string
}

// EquityPoint is the portfolio value after one bar.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// Result is the immutable outcome of one run.
type Result struct {
	StartBalance float64
	EndBalance   float64
	TotalReturn  float64
	Trades       []Trade
	Equity       []EquityPoint
	Metrics      Metrics
}

// runState tracks the run's position in the fixed pipeline. States are
// never skipped or reordered.
type runState int

const (
	stateLoaded runState = iota
	stateIndicatorsComputed
	stateSignalsGenerated
	stateSimulated
	stateMetricsComputed
)

// Engine runs backtests. Each engine owns its own risk manager so
// concurrent runs with different parameters share no mutable state.
type Engine struct {
	cfg   Config
	risk  *risk.Manager
	strat strategy.Strategy
	state runState
}

// NewEngine creates an engine for the given config and strategy. Malformed
// risk limits fail here, before any data is touched.
func NewEngine(cfg Config, strat strategy.Strategy) (*Engine, error) {
	if strat == nil {
		return nil, errors.New("strategy is required")
	}
	if cfg.InitialBalance == 0 {
		cfg.InitialBalance = 10000
	}
	if cfg.InitialBalance < 0 {
		return nil, fmt.Errorf("initial balance must be positive, got %.2f", cfg.InitialBalance)
	}
	if cfg.Commission == 0 {
		cfg.Commission = DefaultCommission
	} else if cfg.Commission < 0 {
		cfg.Commission = 0
	}
	if cfg.Slippage == 0 {
		cfg.Slippage = DefaultSlippage
	} else if cfg.Slippage < 0 {
		cfg.Slippage = 0
	}
	if cfg.Limits == (risk.Limits{}) {
		cfg.Limits = risk.DefaultLimits()
	}

	manager, err := risk.NewManager(cfg.Limits)
	if err != nil {
		return nil, err
	}

	return &Engine{cfg: cfg, risk: manager, strat: strat}, nil
}

// Run replays the bar sequence through the pipeline
// loaded -> indicatorsComputed -> signalsGenerated -> simulated ->
// metricsComputed and returns the result.
func (e *Engine) Run(bars []types.OHLCV) (*Result, error) {
	if err := e.load(bars); err != nil {
		return nil, err
	}

	closes := e.computeIndicators(bars)

	signals, err := e.generateSignals(bars)
	if err != nil {
		return nil, err
	}

	result := e.simulate(bars, closes, signals)
	e.computeMetrics(result)
	return result, nil
}

// load validates the bar sequence. Bars must be chronological.
func (e *Engine) load(bars []types.OHLCV) error {
	if len(bars) == 0 {
		return errors.New("no bars to backtest")
	}
	for i := 1; i < len(bars); i++ {
		if bars[i].Timestamp.Before(bars[i-1].Timestamp) {
			return fmt.Errorf("bars out of order at index %d", i)
		}
	}
	e.state = stateLoaded
	return nil
}

// computeIndicators builds the price series the signal pass consumes. The
// whole series is prepared up front rather than bar-by-bar.
func (e *Engine) computeIndicators(bars []types.OHLCV) []float64 {
	closes := indicators.Closes(bars)
	e.state = stateIndicatorsComputed
	return closes
}

func (e *Engine) generateSignals(bars []types.OHLCV) ([]strategy.Signal, error) {
	if e.state != stateIndicatorsComputed {
		return nil, fmt.Errorf("signals requested in state %d", e.state)
	}
	signals, err := e.strat.Signals(bars)
	if err != nil {
		return nil, fmt.Errorf("generate signals: %w", err)
	}
	if len(signals) != len(bars) {
		return nil, fmt.Errorf("strategy produced %d signals for %d bars", len(signals), len(bars))
	}
	e.state = stateSignalsGenerated
	return signals, nil
}

// openPosition is the engine's single long position while simulating.
type openPosition struct {
	quantity   float64
	entryPrice float64
	stopPrice  float64
	takeProfit float64
	entryTime  time.Time
	commission float64
}

// simulate walks bars chronologically. Entries are sized through the risk
// manager exactly as the live path sizes them; fills carry adverse
// slippage and commission. Stops and targets are evaluated intra-bar
// against the bar's low and high, stop first.
func (e *Engine) simulate(bars []types.OHLCV, closes []float64, signals []strategy.Signal) *Result {
	result := &Result{
		StartBalance: e.cfg.InitialBalance,
		Equity:       make([]EquityPoint, 0, len(bars)),
	}

	balance := e.cfg.InitialBalance
	var pos *openPosition

	for i, bar := range bars {
		if pos != nil {
			if exit, price, reason := e.exitCheck(pos, bar, signals[i]); exit {
				balance += e.closePosition(result, pos, bar.Timestamp, price, reason)
				pos = nil
			}
		}

		if pos == nil && i >= e.cfg.WarmupBars && signals[i] == strategy.SignalBuy {
			if opened, spent := e.tryOpen(bar.Timestamp, closes[i], balance); opened != nil {
				pos = opened
				balance -= spent
			}
		}

		equity := balance
		if pos != nil {
			equity += pos.quantity * closes[i]
		}
		result.Equity = append(result.Equity, EquityPoint{Timestamp: bar.Timestamp, Equity: equity})
	}

	// An open position at the end of data is closed at the final close so
	// the result never carries unrealized state.
	if pos != nil {
		last := bars[len(bars)-1]
		balance += e.closePosition(result, pos, last.Timestamp, e.sellFill(closes[len(closes)-1]), ExitReasonEnd)
		result.Equity[len(result.Equity)-1].Equity = balance
	}

	result.EndBalance = balance
	result.TotalReturn = (balance - result.StartBalance) / result.StartBalance
	e.state = stateSimulated
	return result
}

// exitCheck decides whether the position leaves on this bar. The stop is
// checked before the target: when both prices fall inside one bar the
// conservative assumption is that the stop hit first.
func (e *Engine) exitCheck(pos *openPosition, bar types.OHLCV, signal strategy.Signal) (bool, float64, string) {
	if bar.Low <= pos.stopPrice {
		return true, e.sellFill(pos.stopPrice), ExitReasonStopLoss
	}
	if bar.High >= pos.takeProfit {
		return true, e.sellFill(pos.takeProfit), ExitReasonTakeProfit
	}
	if signal == strategy.SignalSell {
		return true, e.sellFill(bar.Close), ExitReasonSignal
	}
	return false, 0, ""
}

// tryOpen sizes and opens a position at this bar's close. A sizing
// rejection or insufficient balance means no trade, silently: rejections
// are expected and frequent during a run.
func (e *Engine) tryOpen(entryTime time.Time, closePrice, portfolioValue float64) (*openPosition, float64) {
	entry := closePrice * (1 + e.cfg.Slippage)
	stop := e.risk.CalculateStopLoss(entry, risk.SideBuy, e.cfg.StopLossPct)
	target := e.risk.CalculateTakeProfit(entry, risk.SideBuy, e.cfg.TakeProfitPct)

	sizing := e.risk.CalculatePositionSize(risk.SizingRequest{
		EntryPrice:      entry,
		StopLossPrice:   stop,
		TakeProfitPrice: target,
		PortfolioValue:  portfolioValue,
		RiskPct:         e.cfg.RiskPct,
	})
	if !sizing.Approved {
		return nil, 0
	}

	cost := sizing.Quantity * entry
	commission := cost * e.cfg.Commission
	if cost+commission > portfolioValue {
		return nil, 0
	}

	return &openPosition{
		quantity:   sizing.Quantity,
		entryPrice: entry,
		stopPrice:  stop,
		takeProfit: target,
		entryTime:  entryTime,
		commission: commission,
	}, cost + commission
}

// closePosition records the trade and returns the sale proceeds.
func (e *Engine) closePosition(result *Result, pos *openPosition, exitTime time.Time, exitPrice float64, reason string) float64 {
	proceeds := pos.quantity * exitPrice
	exitCommission := proceeds * e.cfg.Commission
	totalCommission := pos.commission + exitCommission

	result.Trades = append(result.Trades, Trade{
		EntryTime:   pos.entryTime,
		ExitTime:    exitTime,
		EntryPrice:  pos.entryPrice,
		ExitPrice:   exitPrice,
		Quantity:    pos.quantity,
		Commission:  totalCommission,
		PnL:         (exitPrice-pos.entryPrice)*pos.quantity - totalCommission,
		EntryReason: EntryReasonSignal,
		ExitReason:  reason,
	})

	return proceeds - exitCommission
}

func (e *Engine) sellFill(price float64) float64 {
	return price * (1 - e.cfg.Slippage)
}

func (e *Engine) computeMetrics(result *Result) {
	result.Metrics = ComputeMetrics(result.Trades, result.Equity, result.StartBalance)
	e.state = stateMetricsComputed
}
