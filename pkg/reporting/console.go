// Package reporting renders backtest results to the console, JSON files,
// and Excel workbooks.
package reporting

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/crypto-trading-assistant/internal/backtest"
)

// WriteConsole renders the result as a summary table to w.
func WriteConsole(w io.Writer, result *backtest.Result) {
	m := result.Metrics

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("BACKTEST RESULTS")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"💰 Initial Balance", fmt.Sprintf("$%.2f", result.StartBalance)},
		{"💰 Final Balance", fmt.Sprintf("$%.2f", result.EndBalance)},
		{"📈 Total Return", fmt.Sprintf("%.2f%%", result.TotalReturn*100)},
		{"📉 Max Drawdown", fmt.Sprintf("%.2f%%", m.MaxDrawdown*100)},
	})

	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{"📊 Sharpe Ratio", fmt.Sprintf("%.2f", m.SharpeRatio)},
		{"📊 Sortino Ratio", fmt.Sprintf("%.2f", m.SortinoRatio)},
		{"📊 Calmar Ratio", fmt.Sprintf("%.2f", m.CalmarRatio)},
		{"💹 Profit Factor", formatProfitFactor(m.ProfitFactor)},
	})

	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{"🔄 Total Trades", fmt.Sprintf("%d", m.TotalTrades)},
		{"✅ Winning Trades", fmt.Sprintf("%d (%.1f%%)", m.WinningTrades, m.WinRate*100)},
		{"❌ Losing Trades", fmt.Sprintf("%d", m.LosingTrades)},
		{"🎯 Expectancy", fmt.Sprintf("$%.2f", m.Expectancy)},
		{"🏆 Best Trade", fmt.Sprintf("$%.2f", m.BestTrade)},
		{"💀 Worst Trade", fmt.Sprintf("$%.2f", m.WorstTrade)},
		{"⏱  Avg Duration", formatDuration(m.AvgDuration)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 30, Align: text.AlignLeft},
	})

	t.Render()
}

// WriteTradesConsole renders the individual trades to w.
func WriteTradesConsole(w io.Writer, result *backtest.Result) {
	if len(result.Trades) == 0 {
		fmt.Fprintln(w, "No trades executed.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("TRADES")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Entry", "Exit", "Entry Price", "Exit Price", "Qty", "PnL", "Reason"})

	for i, trade := range result.Trades {
		t.AppendRow(table.Row{
			i + 1,
			trade.EntryTime.Format("2006-01-02 15:04"),
			trade.ExitTime.Format("2006-01-02 15:04"),
			fmt.Sprintf("%.4f", trade.EntryPrice),
			fmt.Sprintf("%.4f", trade.ExitPrice),
			fmt.Sprintf("%.6f", trade.Quantity),
			fmt.Sprintf("%.2f", trade.PnL),
			trade.ExitReason,
		})
	}

	t.Render()
}

func formatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "∞"
	}
	return fmt.Sprintf("%.2f", pf)
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.Round(time.Minute).String()
}
