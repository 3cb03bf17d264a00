package reporting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/crypto-trading-assistant/internal/backtest"
)

type excelStyles struct {
	header   int
	currency int
	percent  int
}

// WriteExcel writes the result to an .xlsx workbook with Summary, Trades
// and Equity sheets, creating parent directories as needed.
func WriteExcel(result *backtest.Result, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const summarySheet = "Summary"
	const tradesSheet = "Trades"
	const equitySheet = "Equity"

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	if _, err := fx.NewSheet(tradesSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(equitySheet); err != nil {
		return err
	}

	styles, err := createStyles(fx)
	if err != nil {
		return err
	}

	if err := writeSummarySheet(fx, summarySheet, result, styles); err != nil {
		return err
	}
	if err := writeTradesSheet(fx, tradesSheet, result, styles); err != nil {
		return err
	}
	if err := writeEquitySheet(fx, equitySheet, result); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func createStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	styles.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return styles, err
	}

	styles.currency, err = fx.NewStyle(&excelize.Style{NumFmt: 7})
	if err != nil {
		return styles, err
	}

	styles.percent, err = fx.NewStyle(&excelize.Style{NumFmt: 9})
	if err != nil {
		return styles, err
	}

	return styles, nil
}

func writeSummarySheet(fx *excelize.File, sheet string, result *backtest.Result, styles excelStyles) error {
	m := result.Metrics

	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Initial Balance", result.StartBalance, styles.currency},
		{"Final Balance", result.EndBalance, styles.currency},
		{"Total Return", result.TotalReturn, styles.percent},
		{"Max Drawdown", m.MaxDrawdown, styles.percent},
		{"Sharpe Ratio", m.SharpeRatio, 0},
		{"Sortino Ratio", m.SortinoRatio, 0},
		{"Calmar Ratio", m.CalmarRatio, 0},
		{"Profit Factor", excelProfitFactor(m.ProfitFactor), 0},
		{"Total Trades", m.TotalTrades, 0},
		{"Winning Trades", m.WinningTrades, 0},
		{"Losing Trades", m.LosingTrades, 0},
		{"Win Rate", m.WinRate, styles.percent},
		{"Expectancy", m.Expectancy, styles.currency},
		{"Best Trade", m.BestTrade, styles.currency},
		{"Worst Trade", m.WorstTrade, styles.currency},
		{"Avg Trade Duration", formatDuration(m.AvgDuration), 0},
	}

	if err := fx.SetCellValue(sheet, "A1", "Metric"); err != nil {
		return err
	}
	if err := fx.SetCellValue(sheet, "B1", "Value"); err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", "B1", styles.header); err != nil {
		return err
	}

	for i, row := range rows {
		labelCell := fmt.Sprintf("A%d", i+2)
		valueCell := fmt.Sprintf("B%d", i+2)
		if err := fx.SetCellValue(sheet, labelCell, row.label); err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, valueCell, row.value); err != nil {
			return err
		}
		if row.style != 0 {
			if err := fx.SetCellStyle(sheet, valueCell, valueCell, row.style); err != nil {
				return err
			}
		}
	}

	return fx.SetColWidth(sheet, "A", "B", 22)
}

func writeTradesSheet(fx *excelize.File, sheet string, result *backtest.Result, styles excelStyles) error {
	headers := []string{"#", "Entry Time", "Exit Time", "Entry Price", "Exit Price", "Quantity", "Commission", "PnL", "Entry Reason", "Exit Reason"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := fx.SetCellStyle(sheet, "A1", lastHeader, styles.header); err != nil {
		return err
	}

	for i, trade := range result.Trades {
		row := i + 2
		values := []interface{}{
			i + 1,
			trade.EntryTime.Format("2006-01-02 15:04:05"),
			trade.ExitTime.Format("2006-01-02 15:04:05"),
			trade.EntryPrice,
			trade.ExitPrice,
			trade.Quantity,
			trade.Commission,
			trade.PnL,
			trade.EntryReason,
			trade.ExitReason,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := fx.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	return fx.SetColWidth(sheet, "B", "C", 20)
}

func writeEquitySheet(fx *excelize.File, sheet string, result *backtest.Result) error {
	if err := fx.SetCellValue(sheet, "A1", "Timestamp"); err != nil {
		return err
	}
	if err := fx.SetCellValue(sheet, "B1", "Equity"); err != nil {
		return err
	}

	for i, point := range result.Equity {
		row := i + 2
		if err := fx.SetCellValue(sheet, fmt.Sprintf("A%d", row), point.Timestamp.Format("2006-01-02 15:04:05")); err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, fmt.Sprintf("B%d", row), point.Equity); err != nil {
			return err
		}
	}

	return fx.SetColWidth(sheet, "A", "A", 20)
}

// excelProfitFactor keeps +Inf out of the workbook; Excel has no cell
// representation for it.
func excelProfitFactor(pf float64) interface{} {
	if math.IsInf(pf, 1) {
		return "inf"
	}
	return pf
}
