package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ducminhle1904/crypto-trading-assistant/internal/backtest"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/strategy"
	"github.com/ducminhle1904/crypto-trading-assistant/pkg/config"
	"github.com/ducminhle1904/crypto-trading-assistant/pkg/data"
	"github.com/ducminhle1904/crypto-trading-assistant/pkg/reporting"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file (JSON)")
		dataFile   = flag.String("data", "", "CSV data file - overrides config")
		rule       = flag.String("rule", "", "Strategy rule (sma_crossover, rsi, macd) - overrides config")
		balance    = flag.Float64("balance", 0, "Initial balance - overrides config")
		outputDir  = flag.String("output", "results", "Output directory for reports")
		writeJSON  = flag.Bool("json", false, "Write JSON report")
		writeExcel = flag.Bool("excel", false, "Write Excel report")
		showTrades = flag.Bool("trades", false, "Print the individual trades")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dataFile != "" {
		cfg.Backtest.DataFile = *dataFile
	}
	if *rule != "" {
		cfg.Strategy.Rule = strategy.Rule(*rule)
	}
	if *balance > 0 {
		cfg.Backtest.InitialBalance = *balance
	}
	if cfg.Backtest.DataFile == "" {
		log.Fatal("Please specify a data file with -data or in the config")
	}

	strat, err := strategy.NewRuleStrategy(cfg.Strategy)
	if err != nil {
		log.Fatalf("Failed to create strategy: %v", err)
	}

	engine, err := backtest.NewEngine(backtest.Config{
		InitialBalance: cfg.Backtest.InitialBalance,
		Commission:     cfg.Backtest.Commission,
		Slippage:       cfg.Backtest.Slippage,
		Limits:         cfg.Risk,
		RiskPct:        cfg.Backtest.RiskPct,
		StopLossPct:    cfg.Backtest.StopLossPct,
		TakeProfitPct:  cfg.Backtest.TakeProfitPct,
		WarmupBars:     cfg.Backtest.WarmupBars,
	}, strat)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	fmt.Printf("📂 Loading %s...\n", cfg.Backtest.DataFile)
	bars, err := data.NewCSVProvider().LoadBars(cfg.Backtest.DataFile)
	if err != nil {
		log.Fatalf("Failed to load data: %v", err)
	}
	fmt.Printf("📊 Running %s over %d bars...\n", strat.GetName(), len(bars))

	result, err := engine.Run(bars)
	if err != nil {
		log.Fatalf("Backtest failed: %v", err)
	}

	reporting.WriteConsole(os.Stdout, result)
	if *showTrades {
		reporting.WriteTradesConsole(os.Stdout, result)
	}

	base := reportBaseName(cfg.Backtest.DataFile, string(cfg.Strategy.Rule))
	if *writeJSON {
		path := filepath.Join(*outputDir, base+".json")
		if err := reporting.WriteJSON(result, path); err != nil {
			log.Fatalf("Failed to write JSON report: %v", err)
		}
		fmt.Printf("💾 JSON report: %s\n", path)
	}
	if *writeExcel {
		path := filepath.Join(*outputDir, base+".xlsx")
		if err := reporting.WriteExcel(result, path); err != nil {
			log.Fatalf("Failed to write Excel report: %v", err)
		}
		fmt.Printf("💾 Excel report: %s\n", path)
	}
}

// reportBaseName derives a report file stem from the data file and rule,
// e.g. btc_1h + sma_crossover -> btc_1h_sma_crossover.
func reportBaseName(dataFile, rule string) string {
	stem := strings.TrimSuffix(filepath.Base(dataFile), filepath.Ext(dataFile))
	return stem + "_" + rule
}
