package main

import (
	"context"
	"fmt"

	"github.com/ducminhle1904/crypto-trading-assistant/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/exchange/paper"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/monitoring"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/trading"
	"github.com/ducminhle1904/crypto-trading-assistant/pkg/config"
)

// runDemo walks one smart order through its full lifecycle on the paper
// venue: price feed, risk-sized entry, protective orders, a price move
// that triggers the take-profit, and a final portfolio summary.
func runDemo(ctx context.Context, cfg *config.Config, venue exchange.Exchange, service *trading.Service, health *monitoring.HealthChecker) error {
	paperVenue, ok := venue.(*paper.Venue)
	if !ok {
		return fmt.Errorf("demo flow requires the paper venue, got %s", venue.GetName())
	}
	symbol := cfg.Exchange.Symbol

	fmt.Println("▶ Demo: seeding market price")
	paperVenue.SetMarketPrice(symbol, 50000)
	monitoring.UpdatePrice(symbol, 50000)
	health.RecordPrice(50000)

	value, err := service.GetPortfolioValue(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("▶ Demo: portfolio value $%.2f\n", value)
	monitoring.UpdatePortfolioValue(value)

	fmt.Println("▶ Demo: placing smart buy order")
	order, err := service.CreateSmartOrder(ctx, trading.SmartOrderRequest{
		Symbol: symbol,
		Side:   exchange.OrderSideBuy,
	})
	if err != nil {
		return fmt.Errorf("smart order failed: %w", err)
	}
	monitoring.RecordOrder(symbol, string(order.Side), string(order.Type), order.Quantity)
	health.RecordOrder()
	fmt.Printf("  filled %s qty=%.6f price=%.2f stop=%s target=%s\n",
		order.ID, order.Quantity, order.Price, order.StopLossOrderID, order.TakeProfitOrderID)

	fmt.Println("▶ Demo: price rises, take-profit triggers")
	paperVenue.SetMarketPrice(symbol, 52500)
	monitoring.UpdatePrice(symbol, 52500)

	positions, err := service.GetPositions(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("▶ Demo: %d open position(s) after the move\n", len(positions))
	monitoring.UpdateOpenPositions(len(positions))
	for _, pos := range positions {
		fmt.Printf("  %s qty=%.6f entry=%.2f pnl=%.2f\n",
			pos.Symbol, pos.Quantity, pos.EntryPrice, pos.UnrealizedPnL)
	}

	result, err := service.CloseAllPositions(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("▶ Demo: closed %d remaining position(s)\n", len(result.Closed))

	value, err = service.GetPortfolioValue(ctx)
	if err != nil {
		return err
	}
	monitoring.UpdatePortfolioValue(value)
	fmt.Printf("✅ Demo complete. Final portfolio value $%.2f\n", value)
	return nil
}
