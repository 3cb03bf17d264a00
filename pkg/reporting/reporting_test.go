package reporting

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/crypto-trading-assistant/internal/backtest"
)

func sampleResult() *backtest.Result {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []backtest.Trade{
		{
			EntryTime:   start,
			ExitTime:    start.Add(3 * time.Hour),
			EntryPrice:  100,
			ExitPrice:   104,
			Quantity:    10,
			Commission:  2.04,
			PnL:         37.96,
			EntryReason: backtest.EntryReasonSignal,
			ExitReason:  backtest.ExitReasonTakeProfit,
		},
		{
			EntryTime:   start.Add(6 * time.Hour),
			ExitTime:    start.Add(8 * time.Hour),
			EntryPrice:  104,
			ExitPrice:   102,
			Quantity:    10,
			Commission:  2.06,
			PnL:         -22.06,
			EntryReason: backtest.EntryReasonSignal,
			ExitReason:  backtest.ExitReasonStopLoss,
		},
	}
	equity := []backtest.EquityPoint{
		{Timestamp: start, Equity: 10000},
		{Timestamp: start.Add(3 * time.Hour), Equity: 10037.96},
		{Timestamp: start.Add(8 * time.Hour), Equity: 10015.90},
	}
	return &backtest.Result{
		StartBalance: 10000,
		EndBalance:   10015.90,
		TotalReturn:  0.00159,
		Trades:       trades,
		Equity:       equity,
		Metrics:      backtest.ComputeMetrics(trades, equity, 10000),
	}
}

// TestWriteConsole_RendersSummary tests the summary table output
func TestWriteConsole_RendersSummary(t *testing.T) {
	var buf bytes.Buffer

	WriteConsole(&buf, sampleResult())

	out := buf.String()
	assert.Contains(t, out, "BACKTEST RESULTS")
	assert.Contains(t, out, "$10000.00")
	assert.Contains(t, out, "$10015.90")
	assert.Contains(t, out, "Total Trades")
}

// TestWriteTradesConsole_ListsEveryTrade tests the per-trade table
func TestWriteTradesConsole_ListsEveryTrade(t *testing.T) {
	var buf bytes.Buffer

	WriteTradesConsole(&buf, sampleResult())

	out := buf.String()
	assert.Contains(t, out, "take_profit")
	assert.Contains(t, out, "stop_loss")
}

// TestWriteTradesConsole_EmptyResult tests the no-trades message
func TestWriteTradesConsole_EmptyResult(t *testing.T) {
	var buf bytes.Buffer

	WriteTradesConsole(&buf, &backtest.Result{})

	assert.Contains(t, buf.String(), "No trades")
}

// TestWriteJSON_RoundTrips tests that the JSON report parses back with
// the same headline numbers
func TestWriteJSON_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "result.json")

	require.NoError(t, WriteJSON(sampleResult(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 10000.0, report["start_balance"])

	metrics := report["metrics"].(map[string]interface{})
	assert.Equal(t, 2.0, metrics["total_trades"])
	assert.Equal(t, 0.5, metrics["win_rate"])

	trades := report["trades"].([]interface{})
	assert.Len(t, trades, 2)
}

// TestWriteJSON_InfiniteProfitFactor tests the +Inf sentinel encoding
func TestWriteJSON_InfiniteProfitFactor(t *testing.T) {
	result := sampleResult()
	result.Metrics.ProfitFactor = math.Inf(1)
	path := filepath.Join(t.TempDir(), "result.json")

	require.NoError(t, WriteJSON(result, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"profit_factor": "inf"`)
}

// TestWriteExcel_CreatesThreeSheets tests the workbook layout
func TestWriteExcel_CreatesThreeSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "result.xlsx")

	require.NoError(t, WriteExcel(sampleResult(), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.ElementsMatch(t, []string{"Summary", "Trades", "Equity"}, fx.GetSheetList())

	value, err := fx.GetCellValue("Summary", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Initial Balance", value)

	reason, err := fx.GetCellValue("Trades", "J2")
	require.NoError(t, err)
	assert.Equal(t, "take_profit", reason)
}
