package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"

	"github.com/ducminhle1904/crypto-trading-assistant/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/exchange/factory"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/logger"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/monitoring"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/risk"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/trading"
	"github.com/ducminhle1904/crypto-trading-assistant/pkg/config"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file (JSON)")
		venueName  = flag.String("venue", "", "Trading venue (paper, bybit) - overrides config")
		symbol     = flag.String("symbol", "", "Trading pair (e.g. BTC/USDT) - overrides config")
		envFile    = flag.String("env", ".env", "Environment file path")
		demo       = flag.Bool("demo", false, "Run the paper-venue demo flow and exit")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load %s: %v", *envFile, err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *venueName != "" {
		cfg.Exchange.Venue = *venueName
	}
	if *symbol != "" {
		cfg.Exchange.Symbol = *symbol
	}

	fmt.Println("🚀 Trading Assistant Starting...")

	venue, err := factory.New(cfg.VenueConfig())
	if err != nil {
		log.Fatalf("Failed to create venue: %v", err)
	}
	defer venue.Close()

	riskManager, err := risk.NewManager(cfg.Risk)
	if err != nil {
		log.Fatalf("Failed to create risk manager: %v", err)
	}

	sessionLog, err := logger.New("assistant")
	if err != nil {
		log.Fatalf("Failed to create session logger: %v", err)
	}
	defer sessionLog.Close()

	service := trading.NewService(venue, riskManager, saveOrder(sessionLog), sessionLog)

	printStartupInfo(cfg, venue)

	health := monitoring.NewHealthChecker()
	health.SetConnected(true)
	if cfg.Monitoring.Enabled {
		go func() {
			addr := cfg.Monitoring.ListenAddr
			fmt.Printf("📡 Metrics on http://localhost%s/metrics\n", addr)
			if err := http.ListenAndServe(addr, monitoring.NewServeMux(health)); err != nil {
				log.Printf("Monitoring server stopped: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *demo {
		if err := runDemo(ctx, cfg, venue, service, health); err != nil {
			log.Fatalf("Demo failed: %v", err)
		}
		return
	}

	fmt.Println("✅ Assistant ready. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\n🛑 Shutting down...")
	sessionLog.Info("shutdown requested")
}

// saveOrder is the persistence callback: orders are journaled to the
// session log.
func saveOrder(sessionLog *logger.Logger) trading.SaveFunc {
	return func(order *exchange.Order) error {
		sessionLog.Trade("order %s %s %s %s qty=%.8f price=%.8f status=%s",
			order.ID, order.Symbol, order.Side, order.Type, order.Quantity, order.Price, order.Status)
		return nil
	}
}

func printStartupInfo(cfg *config.Config, venue exchange.Exchange) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("ASSISTANT CONFIGURATION")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🏪 Venue", venue.GetName()},
		{"📊 Symbol", cfg.Exchange.Symbol},
		{"🛡  Max Position Size", fmt.Sprintf("%.1f%%", cfg.Risk.MaxPositionSizePct*100)},
		{"🛡  Risk Per Trade", fmt.Sprintf("%.1f%%", cfg.Risk.MaxPortfolioRiskPct*100)},
		{"🛡  Max Exposure", fmt.Sprintf("%.1f%%", cfg.Risk.MaxTotalExposurePct*100)},
		{"🛡  Max Open Positions", fmt.Sprintf("%d", cfg.Risk.MaxOpenPositions)},
	})

	t.Render()
	fmt.Println()
}
