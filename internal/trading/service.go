// Package trading orchestrates the order lifecycle: risk validation,
// placement of primary and protective orders, persistence, portfolio
// valuation, and emergency liquidation. All venue access goes through the
// exchange.Exchange interface so live and paper sessions share one code
// path.
package trading

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/ducminhle1904/crypto-trading-assistant/internal/errors"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/logger"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/risk"
)

// SaveFunc persists an order after an exchange-side effect completed. It
// must tolerate failure: the exchange action is irreversible and is never
// rolled back because the local record could not be written.
type SaveFunc func(order *exchange.Order) error

// OrderRequest describes one order to create. The zero value of
// SkipValidation means the trade is risk-validated before placement.
type OrderRequest struct {
	Symbol         string
	Side           exchange.OrderSide
	Type           exchange.OrderType
	Quantity       float64
	Price          float64 // limit price, required for limit orders
	StopLoss       float64 // optional protective stop price
	TakeProfit     float64 // optional protective target price
	SkipValidation bool
}

// Service is the order execution service for one portfolio. A mutex
// serializes validation and placement per instance so concurrent orders
// cannot race the same risk limits; independent portfolios use independent
// services and stay lock-free.
type Service struct {
	ex   exchange.Exchange
	risk *risk.Manager
	save SaveFunc
	log  *logger.Logger

	mu     sync.Mutex
	orders map[string]*exchange.Order // orders this service placed
}

// NewService creates an execution service over the given venue. The save
// callback may be nil when the caller keeps no local records.
func NewService(ex exchange.Exchange, riskManager *risk.Manager, save SaveFunc, log *logger.Logger) *Service {
	return &Service{
		ex:     ex,
		risk:   riskManager,
		save:   save,
		log:    log,
		orders: make(map[string]*exchange.Order),
	}
}

// CreateOrder validates, places, links, and persists one order.
//
// Validation completes before any exchange-mutating call; a rejection is
// returned as a validation error and the venue is never contacted. When
// the primary order succeeds but a protective order fails, the error
// carries the primary order's ID so the caller can cancel or retry it;
// the primary is never silently dropped. A persistence failure is logged
// and does not undo the placement.
func (s *Service) CreateOrder(ctx context.Context, req OrderRequest) (*exchange.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !req.SkipValidation {
		if err := s.validate(ctx, req); err != nil {
			return nil, err
		}
	}

	order, err := s.placePrimary(ctx, req)
	if err != nil {
		return nil, apperrors.NewExchangeError("trading", "create_order", err)
	}
	s.log.Trade("placed %s %s order %s: %.8f %s @ %.2f",
		order.Side, order.Type, order.ID, order.Quantity, order.Symbol, order.Price)

	protectiveErr := s.placeProtective(ctx, req, order)
	s.track(order)
	s.persist(order)
	if protectiveErr != nil {
		return order, protectiveErr
	}
	return order, nil
}

// SmartOrderRequest describes a size-for-me order: the service derives
// stop and target prices from the current price and sizes the position
// through the risk manager.
type SmartOrderRequest struct {
	Symbol        string
	Side          exchange.OrderSide
	RiskPct       float64 // zero uses the configured per-trade maximum
	StopLossPct   float64 // zero uses the configured default
	TakeProfitPct float64
}

// CreateSmartOrder is the only path that determines order size
// automatically. It rejects before contacting the exchange when the
// derived risk/reward ratio falls below the configured minimum.
func (s *Service) CreateSmartOrder(ctx context.Context, req SmartOrderRequest) (*exchange.Order, error) {
	price, err := s.ex.GetCurrentPrice(ctx, req.Symbol)
	if err != nil {
		return nil, apperrors.NewExchangeError("trading", "create_smart_order", err)
	}

	riskSide := risk.SideBuy
	if req.Side == exchange.OrderSideSell {
		riskSide = risk.SideSell
	}
	stopLoss := s.risk.CalculateStopLoss(price, riskSide, req.StopLossPct)
	takeProfit := s.risk.CalculateTakeProfit(price, riskSide, req.TakeProfitPct)

	portfolioValue, err := s.GetPortfolioValue(ctx)
	if err != nil {
		return nil, err
	}

	sizing := s.risk.CalculatePositionSize(risk.SizingRequest{
		EntryPrice:      price,
		StopLossPrice:   stopLoss,
		TakeProfitPrice: takeProfit,
		PortfolioValue:  portfolioValue,
		RiskPct:         req.RiskPct,
	})
	if !sizing.Approved {
		s.log.Risk("smart order for %s rejected: %s", req.Symbol, sizing.RejectionReason)
		return nil, apperrors.NewValidationError("trading", "create_smart_order", sizing.RejectionReason)
	}

	return s.CreateOrder(ctx, OrderRequest{
		Symbol:     req.Symbol,
		Side:       req.Side,
		Type:       exchange.OrderTypeMarket,
		Quantity:   sizing.Quantity,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	})
}

// GetPortfolioValue sums all balances in the stablecoin unit. Stablecoins
// count at face value; every other asset converts at current price. A
// price lookup failure for one asset is logged and that asset contributes
// zero. Partial valuation beats no valuation.
func (s *Service) GetPortfolioValue(ctx context.Context) (float64, error) {
	balances, err := s.ex.GetBalance(ctx)
	if err != nil {
		return 0, apperrors.NewExchangeError("trading", "get_portfolio_value", err)
	}

	total := 0.0
	for asset, amount := range balances {
		if amount <= 0 {
			continue
		}
		if exchange.IsStablecoin(asset) {
			total += amount
			continue
		}
		price, err := s.ex.GetCurrentPrice(ctx, asset+"/USDT")
		if err != nil {
			s.log.Warn("portfolio valuation: no price for %s, counting as zero: %v", asset, err)
			continue
		}
		total += amount * price
	}
	return total, nil
}

// PositionCloseError records one failed leg of an emergency flatten.
type PositionCloseError struct {
	Symbol string
	Err    error
}

func (e PositionCloseError) Error() string {
	return fmt.Sprintf("close %s: %v", e.Symbol, e.Err)
}

func (e PositionCloseError) Unwrap() error { return e.Err }

// CloseAllResult aggregates the outcome of an emergency flatten.
type CloseAllResult struct {
	Closed []*exchange.Order
	Errors []PositionCloseError
}

// CloseAllPositions issues an opposite-side market order for every open
// position with risk validation bypassed: the intent is capital
// preservation, not new risk. A failure on one position is collected and
// the remaining positions are still attempted.
func (s *Service) CloseAllPositions(ctx context.Context) (CloseAllResult, error) {
	positions, err := s.ex.GetOpenPositions(ctx)
	if err != nil {
		return CloseAllResult{}, apperrors.NewExchangeError("trading", "close_all_positions", err)
	}

	var result CloseAllResult
	for _, pos := range positions {
		order, err := s.CreateOrder(ctx, OrderRequest{
			Symbol:         pos.Symbol,
			Side:           pos.Side.Opposite(),
			Type:           exchange.OrderTypeMarket,
			Quantity:       pos.Quantity,
			SkipValidation: true,
		})
		if err != nil {
			s.log.Error("emergency close failed for %s: %v", pos.Symbol, err)
			result.Errors = append(result.Errors, PositionCloseError{Symbol: pos.Symbol, Err: err})
			continue
		}
		s.log.Trade("emergency closed %s: %.8f @ %.2f", pos.Symbol, order.Quantity, order.Price)
		result.Closed = append(result.Closed, order)
	}
	return result, nil
}

// GetOrders returns orders this service placed, newest last, optionally
// filtered by status. Open orders are refreshed from the venue first so
// resting orders that filled or were cancelled venue-side report their
// real status.
func (s *Service) GetOrders(ctx context.Context, status exchange.OrderStatus) ([]*exchange.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshOpenOrders(ctx); err != nil {
		return nil, err
	}

	var out []*exchange.Order
	for _, order := range s.orders {
		if status != "" && order.Status != status {
			continue
		}
		copied := *order
		out = append(out, &copied)
	}
	return out, nil
}

// CancelOrder cancels an order this service placed, then explicitly
// cancels its linked protective orders. Children are never cancelled
// implicitly by the venue.
func (s *Service) CancelOrder(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return apperrors.NewValidationError("trading", "cancel_order",
			fmt.Sprintf("order %s was not placed by this service", orderID))
	}

	if err := s.ex.CancelOrder(ctx, orderID, order.Symbol); err != nil {
		return apperrors.NewExchangeError("trading", "cancel_order", err)
	}
	order.Status = exchange.OrderStatusCancelled
	s.persist(order)
	s.log.Trade("cancelled order %s (%s)", orderID, order.Symbol)

	for _, childID := range []string{order.StopLossOrderID, order.TakeProfitOrderID} {
		if childID == "" {
			continue
		}
		child, tracked := s.orders[childID]
		if tracked && child.Status.IsTerminal() {
			continue
		}
		if err := s.ex.CancelOrder(ctx, childID, order.Symbol); err != nil {
			s.log.Error("cancel protective order %s for %s: %v", childID, orderID, err)
			continue
		}
		if tracked {
			child.Status = exchange.OrderStatusCancelled
			s.persist(child)
		}
	}
	return nil
}

// GetPositions returns the venue's open positions with refreshed current
// prices and unrealized P&L.
func (s *Service) GetPositions(ctx context.Context) ([]*exchange.Position, error) {
	positions, err := s.ex.GetOpenPositions(ctx)
	if err != nil {
		return nil, apperrors.NewExchangeError("trading", "get_positions", err)
	}
	return positions, nil
}

// validate gates one order behind the risk manager. Caller holds the lock.
func (s *Service) validate(ctx context.Context, req OrderRequest) error {
	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return err
	}

	entryPrice := req.Price
	if entryPrice == 0 {
		entryPrice, err = s.ex.GetCurrentPrice(ctx, req.Symbol)
		if err != nil {
			return apperrors.NewExchangeError("trading", "create_order", err)
		}
	}

	approved, reason := s.risk.ValidateTrade(risk.TradeRequest{
		EntryPrice:      entryPrice,
		StopLossPrice:   req.StopLoss,
		TakeProfitPrice: req.TakeProfit,
		Quantity:        req.Quantity,
		Snapshot:        snapshot,
	})
	if !approved {
		s.log.Risk("order for %s rejected: %s", req.Symbol, reason)
		return apperrors.NewValidationError("trading", "create_order", reason)
	}
	return nil
}

// snapshot assembles the portfolio view validation runs against. The view
// is consistent for the duration of the locked section; concurrent
// CreateOrder calls on this service cannot race the same limits.
func (s *Service) snapshot(ctx context.Context) (risk.PortfolioSnapshot, error) {
	portfolioValue, err := s.GetPortfolioValue(ctx)
	if err != nil {
		return risk.PortfolioSnapshot{}, err
	}

	positions, err := s.ex.GetOpenPositions(ctx)
	if err != nil {
		return risk.PortfolioSnapshot{}, apperrors.NewExchangeError("trading", "create_order", err)
	}

	exposure := 0.0
	for _, pos := range positions {
		exposure += pos.Quantity * pos.CurrentPrice
	}

	balances, err := s.ex.GetBalance(ctx)
	if err != nil {
		return risk.PortfolioSnapshot{}, apperrors.NewExchangeError("trading", "create_order", err)
	}
	available := 0.0
	for asset, amount := range balances {
		if exchange.IsStablecoin(asset) {
			available += amount
		}
	}

	return risk.PortfolioSnapshot{
		PortfolioValue:   portfolioValue,
		AvailableBalance: available,
		OpenPositions:    len(positions),
		TotalExposure:    exposure,
	}, nil
}

func (s *Service) placePrimary(ctx context.Context, req OrderRequest) (*exchange.Order, error) {
	switch req.Type {
	case exchange.OrderTypeLimit:
		return s.ex.PlaceLimitOrder(ctx, req.Symbol, req.Side, req.Price, req.Quantity)
	default:
		return s.ex.PlaceMarketOrder(ctx, req.Symbol, req.Side, req.Quantity)
	}
}

// placeProtective places the linked stop-loss and take-profit orders on
// the opposite side of the primary. Caller holds the lock.
func (s *Service) placeProtective(ctx context.Context, req OrderRequest, primary *exchange.Order) error {
	exitSide := req.Side.Opposite()

	if req.StopLoss > 0 {
		stop, err := s.ex.PlaceStopLossOrder(ctx, req.Symbol, exitSide, req.StopLoss, req.Quantity)
		if err != nil {
			return &ProtectiveOrderError{PrimaryOrderID: primary.ID, Kind: exchange.OrderTypeStopLoss, Err: err}
		}
		stop.ParentOrderID = primary.ID
		primary.StopLossOrderID = stop.ID
		s.track(stop)
		s.persist(stop)
	}

	if req.TakeProfit > 0 {
		target, err := s.ex.PlaceTakeProfitOrder(ctx, req.Symbol, exitSide, req.TakeProfit, req.Quantity)
		if err != nil {
			return &ProtectiveOrderError{PrimaryOrderID: primary.ID, Kind: exchange.OrderTypeTakeProfit, Err: err}
		}
		target.ParentOrderID = primary.ID
		primary.TakeProfitOrderID = target.ID
		s.track(target)
		s.persist(target)
	}

	return nil
}

// refreshOpenOrders reconciles locally tracked open orders against the
// venue. Caller holds the lock.
func (s *Service) refreshOpenOrders(ctx context.Context) error {
	venueOpen, err := s.ex.GetOpenOrders(ctx, "")
	if err != nil {
		return apperrors.NewExchangeError("trading", "get_orders", err)
	}
	stillOpen := make(map[string]bool, len(venueOpen))
	for _, order := range venueOpen {
		stillOpen[order.ID] = true
	}

	for _, order := range s.orders {
		if order.Status == exchange.OrderStatusOpen && !stillOpen[order.ID] {
			// Gone from the venue's open set: it filled or was
			// cancelled out-of-band. Filled is the usual case.
			order.Status = exchange.OrderStatusFilled
			s.persist(order)
		}
	}
	return nil
}

func (s *Service) track(order *exchange.Order) {
	copied := *order
	s.orders[order.ID] = &copied
}

// persist writes the order through the save callback. Failures are logged
// and never propagate: the exchange-side effect already happened.
func (s *Service) persist(order *exchange.Order) {
	if s.save == nil {
		return
	}
	if err := s.save(order); err != nil {
		perr := apperrors.NewPersistenceError("trading", "save_order", err)
		s.log.Error("persist order %s: %v", order.ID, perr)
	}
}
