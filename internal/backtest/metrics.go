package backtest

import (
	"math"
	"time"
)

// Metrics are the performance statistics of one run. Every field of a run
// with no trades and a flat equity curve is zero, never NaN; the one
// sentinel is ProfitFactor, which reads +Inf when there are profits and
// no losses.
type Metrics struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	ProfitFactor  float64
	Expectancy    float64 // mean PnL per trade
	SharpeRatio   float64 // per-period, zero risk-free rate
	SortinoRatio  float64
	CalmarRatio   float64
	MaxDrawdown   float64 // largest peak-to-trough decline, as a fraction
	BestTrade     float64
	WorstTrade    float64
	AvgDuration   time.Duration
}

// ComputeMetrics is a pure function over the trade list and equity curve.
// Computing it twice over the same inputs yields identical statistics.
func ComputeMetrics(trades []Trade, equity []EquityPoint, startBalance float64) Metrics {
	m := Metrics{}

	m.TotalTrades = len(trades)
	grossProfit, grossLoss := 0.0, 0.0
	totalPnL := 0.0
	var totalDuration time.Duration
	for i, trade := range trades {
		totalPnL += trade.PnL
		totalDuration += trade.ExitTime.Sub(trade.EntryTime)
		if trade.PnL > 0 {
			m.WinningTrades++
			grossProfit += trade.PnL
		} else {
			m.LosingTrades++
			grossLoss += -trade.PnL
		}
		if i == 0 || trade.PnL > m.BestTrade {
			m.BestTrade = trade.PnL
		}
		if i == 0 || trade.PnL < m.WorstTrade {
			m.WorstTrade = trade.PnL
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
		m.Expectancy = totalPnL / float64(m.TotalTrades)
		m.AvgDuration = totalDuration / time.Duration(m.TotalTrades)
	}

	switch {
	case grossLoss > 0:
		m.ProfitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		m.ProfitFactor = math.Inf(1)
	}

	returns := periodReturns(equity)
	m.SharpeRatio = sharpe(returns)
	m.SortinoRatio = sortino(returns)
	m.MaxDrawdown = maxDrawdown(equity)
	m.CalmarRatio = calmar(equity, startBalance, m.MaxDrawdown)

	return m
}

// periodReturns converts the equity curve into per-period simple returns.
func periodReturns(equity []EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1].Equity == 0 {
			continue
		}
		returns = append(returns, (equity[i].Equity-equity[i-1].Equity)/equity[i-1].Equity)
	}
	return returns
}

// sharpe is the mean per-period return over its standard deviation. A
// flat or empty series reads zero.
func sharpe(returns []float64) float64 {
	mean, stdDev := meanStdDev(returns)
	if stdDev < 1e-12 {
		return 0
	}
	return mean / stdDev
}

// sortino penalizes only downside deviation. With no losing periods it
// reads zero rather than infinity, matching the flat-series convention.
func sortino(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	downside := 0.0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}
	downside = math.Sqrt(downside / float64(len(returns)))
	if downside < 1e-12 {
		return 0
	}
	return mean / downside
}

// maxDrawdown is the largest peak-to-trough decline over the curve,
// tracked with a running peak in one pass.
func maxDrawdown(equity []EquityPoint) float64 {
	maxDD := 0.0
	peak := 0.0
	for _, point := range equity {
		if point.Equity > peak {
			peak = point.Equity
		}
		if peak > 0 {
			if dd := (peak - point.Equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// calmar is the annualized return over the max drawdown, zero when either
// leg is degenerate.
func calmar(equity []EquityPoint, startBalance, maxDD float64) float64 {
	if maxDD < 1e-12 || startBalance <= 0 || len(equity) < 2 {
		return 0
	}

	duration := equity[len(equity)-1].Timestamp.Sub(equity[0].Timestamp)
	if duration <= 0 {
		return 0
	}

	totalReturn := (equity[len(equity)-1].Equity - startBalance) / startBalance
	years := duration.Hours() / (24 * 365)
	annualized := math.Pow(1+totalReturn, 1/years) - 1
	return annualized / maxDD
}

func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}
