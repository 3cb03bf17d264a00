package reporting

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ducminhle1904/crypto-trading-assistant/internal/backtest"
)

// jsonReport is the serialized shape of a backtest result. ProfitFactor
// is a string because +Inf is a legal value and JSON has no encoding
// for it.
type jsonReport struct {
	StartBalance float64           `json:"start_balance"`
	EndBalance   float64           `json:"end_balance"`
	TotalReturn  float64           `json:"total_return"`
	Metrics      jsonMetrics       `json:"metrics"`
	Trades       []jsonTrade       `json:"trades"`
	Equity       []jsonEquityPoint `json:"equity"`
}

type jsonMetrics struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	ProfitFactor  string  `json:"profit_factor"`
	Expectancy    float64 `json:"expectancy"`
	SharpeRatio   float64 `json:"sharpe_ratio"`
	SortinoRatio  float64 `json:"sortino_ratio"`
	CalmarRatio   float64 `json:"calmar_ratio"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	BestTrade     float64 `json:"best_trade"`
	WorstTrade    float64 `json:"worst_trade"`
	AvgDurationMS int64   `json:"avg_duration_ms"`
}

type jsonTrade struct {
	EntryTime   time.Time `json:"entry_time"`
	ExitTime    time.Time `json:"exit_time"`
	EntryPrice  float64   `json:"entry_price"`
	ExitPrice   float64   `json:"exit_price"`
	Quantity    float64   `json:"quantity"`
	Commission  float64   `json:"commission"`
	PnL         float64   `json:"pnl"`
	EntryReason string    `json:"entry_reason"`
	ExitReason  string    `json:"exit_reason"`
}

type jsonEquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}

// WriteJSON writes the result to path as indented JSON, creating parent
// directories as needed.
func WriteJSON(result *backtest.Result, path string) error {
	report := toJSONReport(result)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func toJSONReport(result *backtest.Result) jsonReport {
	m := result.Metrics

	report := jsonReport{
		StartBalance: result.StartBalance,
		EndBalance:   result.EndBalance,
		TotalReturn:  result.TotalReturn,
		Metrics: jsonMetrics{
			TotalTrades:   m.TotalTrades,
			WinningTrades: m.WinningTrades,
			LosingTrades:  m.LosingTrades,
			WinRate:       m.WinRate,
			ProfitFactor:  formatProfitFactorJSON(m.ProfitFactor),
			Expectancy:    m.Expectancy,
			SharpeRatio:   m.SharpeRatio,
			SortinoRatio:  m.SortinoRatio,
			CalmarRatio:   m.CalmarRatio,
			MaxDrawdown:   m.MaxDrawdown,
			BestTrade:     m.BestTrade,
			WorstTrade:    m.WorstTrade,
			AvgDurationMS: m.AvgDuration.Milliseconds(),
		},
		Trades: make([]jsonTrade, 0, len(result.Trades)),
		Equity: make([]jsonEquityPoint, 0, len(result.Equity)),
	}

	for _, trade := range result.Trades {
		report.Trades = append(report.Trades, jsonTrade{
			EntryTime:   trade.EntryTime,
			ExitTime:    trade.ExitTime,
			EntryPrice:  trade.EntryPrice,
			ExitPrice:   trade.ExitPrice,
			Quantity:    trade.Quantity,
			Commission:  trade.Commission,
			PnL:         trade.PnL,
			EntryReason: trade.EntryReason,
			ExitReason:  trade.ExitReason,
		})
	}
	for _, point := range result.Equity {
		report.Equity = append(report.Equity, jsonEquityPoint{
			Timestamp: point.Timestamp,
			Equity:    point.Equity,
		})
	}
	return report
}

func formatProfitFactorJSON(pf float64) string {
	if math.IsInf(pf, 1) {
		return "inf"
	}
	return strconv.FormatFloat(pf, 'f', -1, 64)
}
