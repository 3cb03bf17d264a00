// Package paper implements a simulated venue for paper trading and
// backtesting. Fills are deterministic: commission and slippage are fixed
// rates, slippage always moves the fill price against the taker, and
// market prices change only when the caller sets them. Re-running the same
// call sequence reproduces the same fills.
package paper

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ducminhle1904/crypto-trading-assistant/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-assistant/pkg/types"
)

const (
	// DefaultCommissionRate is 0.1% per fill.
	DefaultCommissionRate = 0.001
	// DefaultSlippageRate is 0.05% adverse price adjustment per fill.
	DefaultSlippageRate = 0.0005
)

// Config holds the simulation parameters for a paper venue.
type Config struct {
	InitialBalance map[string]float64
	CommissionRate float64 // <0 means zero; 0 means default
	SlippageRate   float64
}

type holding struct {
	quantity float64
	avgEntry float64
}

// Venue is an in-memory simulated exchange. Safe for concurrent use.
type Venue struct {
	mu         sync.Mutex
	balances   map[string]float64
	orders     map[string]*exchange.Order
	orderSeq   int
	prices     map[string]float64
	holdings   map[string]*holding // base asset -> open quantity and avg entry
	commission float64
	slippage   float64
	now        func() time.Time
}

// NewVenue creates a paper venue. A nil or empty initial balance starts
// with 10,000 USDT, matching the usual paper-trading default.
func NewVenue(cfg Config) *Venue {
	balances := make(map[string]float64)
	if len(cfg.InitialBalance) == 0 {
		balances["USDT"] = 10000
	} else {
		for asset, amount := range cfg.InitialBalance {
			balances[asset] = amount
		}
	}

	commission := cfg.CommissionRate
	if commission == 0 {
		commission = DefaultCommissionRate
	} else if commission < 0 {
		commission = 0
	}
	slippage := cfg.SlippageRate
	if slippage == 0 {
		slippage = DefaultSlippageRate
	} else if slippage < 0 {
		slippage = 0
	}

	return &Venue{
		balances:   balances,
		orders:     make(map[string]*exchange.Order),
		orderSeq:   1000,
		prices:     make(map[string]float64),
		holdings:   make(map[string]*holding),
		commission: commission,
		slippage:   slippage,
		now:        time.Now,
	}
}

// GetName implements exchange.Exchange.
func (v *Venue) GetName() string { return "paper" }

// SetMarketPrice sets the current price for a symbol and triggers any
// pending stop-loss, take-profit, or limit orders the new price makes
// executable. This is the only way prices move on a paper venue.
func (v *Venue) SetMarketPrice(symbol string, price float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.prices[symbol] = price
	v.triggerPendingOrders(symbol, price)
}

// GetCurrentPrice implements exchange.Exchange. Unknown symbols are an
// error rather than a made-up price; callers degrade explicitly.
func (v *Venue) GetCurrentPrice(_ context.Context, symbol string) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	price, ok := v.prices[symbol]
	if !ok {
		return 0, &exchange.ExchangeError{
			Code:    exchange.ErrCodePriceUnavailable,
			Message: fmt.Sprintf("no market price set for %s", symbol),
		}
	}
	return price, nil
}

// GetKlines implements exchange.Exchange. The paper venue has no history;
// historical bars come from a data provider instead.
func (v *Venue) GetKlines(_ context.Context, symbol, _ string, _ int) ([]types.OHLCV, error) {
	return nil, &exchange.ExchangeError{
		Code:    exchange.ErrCodeAPIFailure,
		Message: fmt.Sprintf("paper venue holds no historical bars for %s", symbol),
	}
}

// GetBalance implements exchange.Exchange, returning non-zero balances only.
func (v *Venue) GetBalance(_ context.Context) (map[string]float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]float64, len(v.balances))
	for asset, amount := range v.balances {
		if amount > 0 {
			out[asset] = amount
		}
	}
	return out, nil
}

// PlaceMarketOrder implements exchange.Exchange. The fill price is the
// current market price adjusted adversely by the slippage rate; commission
// is charged on the fill value in the quote asset.
func (v *Venue) PlaceMarketOrder(_ context.Context, symbol string, side exchange.OrderSide, quantity float64) (*exchange.Order, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	price, ok := v.prices[symbol]
	if !ok {
		return nil, &exchange.ExchangeError{
			Code:    exchange.ErrCodePriceUnavailable,
			Message: fmt.Sprintf("no market price set for %s", symbol),
		}
	}

	fillPrice := price
	if side == exchange.OrderSideBuy {
		fillPrice = price * (1 + v.slippage)
	} else {
		fillPrice = price * (1 - v.slippage)
	}

	order, err := v.fill(symbol, side, exchange.OrderTypeMarket, fillPrice, quantity)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// PlaceLimitOrder implements exchange.Exchange. Marketable limit orders
// fill immediately at the limit price; the rest stay open until the market
// price crosses the limit.
func (v *Venue) PlaceLimitOrder(_ context.Context, symbol string, side exchange.OrderSide, price, quantity float64) (*exchange.Order, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	market, ok := v.prices[symbol]
	if ok && limitMarketable(side, price, market) {
		return v.fill(symbol, side, exchange.OrderTypeLimit, price, quantity)
	}
	return v.pend(symbol, side, exchange.OrderTypeLimit, price, quantity), nil
}

// PlaceStopLossOrder implements exchange.Exchange. Stop orders rest open
// until the market price reaches the stop, then fill at the stop price.
func (v *Venue) PlaceStopLossOrder(_ context.Context, symbol string, side exchange.OrderSide, stopPrice, quantity float64) (*exchange.Order, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pend(symbol, side, exchange.OrderTypeStopLoss, stopPrice, quantity), nil
}

// PlaceTakeProfitOrder implements exchange.Exchange.
func (v *Venue) PlaceTakeProfitOrder(_ context.Context, symbol string, side exchange.OrderSide, limitPrice, quantity float64) (*exchange.Order, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pend(symbol, side, exchange.OrderTypeTakeProfit, limitPrice, quantity), nil
}

// CancelOrder implements exchange.Exchange.
func (v *Venue) CancelOrder(_ context.Context, orderID, _ string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	order, ok := v.orders[orderID]
	if !ok {
		return exchange.NewOrderNotFoundError(orderID)
	}
	if order.Status != exchange.OrderStatusOpen {
		return &exchange.ExchangeError{
			Code:    exchange.ErrCodeOrderNotOpen,
			Message: fmt.Sprintf("order %s is %s, not open", orderID, order.Status),
		}
	}
	order.Status = exchange.OrderStatusCancelled
	order.UpdatedAt = v.now()
	return nil
}

// GetOpenOrders implements exchange.Exchange. An empty symbol matches all.
func (v *Venue) GetOpenOrders(_ context.Context, symbol string) ([]*exchange.Order, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var open []*exchange.Order
	for _, order := range v.orders {
		if order.Status != exchange.OrderStatusOpen {
			continue
		}
		if symbol != "" && order.Symbol != symbol {
			continue
		}
		copied := *order
		open = append(open, &copied)
	}
	return open, nil
}

// GetOpenPositions implements exchange.Exchange. Positions are derived from
// non-stablecoin holdings; current price and unrealized P&L are refreshed
// from the latest market price when one is known.
func (v *Venue) GetOpenPositions(_ context.Context) ([]*exchange.Position, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var positions []*exchange.Position
	for asset, h := range v.holdings {
		if h.quantity <= 0 || exchange.IsStablecoin(asset) {
			continue
		}
		symbol := asset + "/USDT"
		pos := &exchange.Position{
			Symbol:     symbol,
			Side:       exchange.OrderSideBuy,
			Quantity:   h.quantity,
			EntryPrice: h.avgEntry,
		}
		if price, ok := v.prices[symbol]; ok {
			pos.CurrentPrice = price
			pos.UnrealizedPnL = (price - h.avgEntry) * h.quantity
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

// Close implements exchange.Exchange.
func (v *Venue) Close() error { return nil }

// fill executes an order at the given price, adjusting balances and the
// holdings ledger. Caller holds the lock.
func (v *Venue) fill(symbol string, side exchange.OrderSide, orderType exchange.OrderType, fillPrice, quantity float64) (*exchange.Order, error) {
	base, quote, err := splitSymbol(symbol)
	if err != nil {
		return nil, err
	}

	cost := quantity * fillPrice
	commission := cost * v.commission

	if side == exchange.OrderSideBuy {
		total := cost + commission
		if v.balances[quote] < total {
			return nil, exchange.NewInsufficientBalanceError(quote, total, v.balances[quote])
		}
		v.balances[quote] -= total
		v.balances[base] += quantity

		h := v.holdings[base]
		if h == nil {
			h = &holding{}
			v.holdings[base] = h
		}
		newQty := h.quantity + quantity
		h.avgEntry = (h.avgEntry*h.quantity + fillPrice*quantity) / newQty
		h.quantity = newQty
	} else {
		if v.balances[base] < quantity {
			return nil, exchange.NewInsufficientBalanceError(base, quantity, v.balances[base])
		}
		v.balances[base] -= quantity
		v.balances[quote] += cost - commission

		if h := v.holdings[base]; h != nil {
			h.quantity -= quantity
			if h.quantity <= 1e-12 {
				delete(v.holdings, base)
			}
		}
	}

	now := v.now()
	order := &exchange.Order{
		ID:        v.nextID(),
		Symbol:    symbol,
		Side:      side,
		Type:      orderType,
		Quantity:  quantity,
		Price:     fillPrice,
		Filled:    quantity,
		Status:    exchange.OrderStatusFilled,
		Fee:       commission,
		FeeAsset:  quote,
		CreatedAt: now,
		UpdatedAt: now,
	}
	v.orders[order.ID] = order

	copied := *order
	return &copied, nil
}

// pend records an order as open without touching balances. Caller holds
// the lock.
func (v *Venue) pend(symbol string, side exchange.OrderSide, orderType exchange.OrderType, price, quantity float64) *exchange.Order {
	now := v.now()
	order := &exchange.Order{
		ID:        v.nextID(),
		Symbol:    symbol,
		Side:      side,
		Type:      orderType,
		Quantity:  quantity,
		Price:     price,
		Status:    exchange.OrderStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	v.orders[order.ID] = order

	copied := *order
	return &copied
}

// triggerPendingOrders fills open orders the new price makes executable.
// Protective orders fill at their order price, never better, so simulated
// fills stay conservative. Caller holds the lock.
func (v *Venue) triggerPendingOrders(symbol string, price float64) {
	// Map iteration order is random. Fills happen in placement order so
	// that when the balance covers only some of the triggered orders, the
	// same ones fill on every run.
	var triggered []*exchange.Order
	for _, order := range v.orders {
		if order.Status != exchange.OrderStatusOpen || order.Symbol != symbol {
			continue
		}

		hit := false
		switch order.Type {
		case exchange.OrderTypeStopLoss:
			if order.Side == exchange.OrderSideSell {
				hit = price <= order.Price
			} else {
				hit = price >= order.Price
			}
		case exchange.OrderTypeTakeProfit, exchange.OrderTypeLimit:
			hit = limitMarketable(order.Side, order.Price, price)
		}
		if hit {
			triggered = append(triggered, order)
		}
	}

	sort.Slice(triggered, func(i, j int) bool {
		a, _ := strconv.Atoi(triggered[i].ID)
		b, _ := strconv.Atoi(triggered[j].ID)
		return a < b
	})

	for _, order := range triggered {
		filled, err := v.fill(symbol, order.Side, order.Type, order.Price, order.Quantity)
		if err != nil {
			// Insufficient balance, e.g. the holding was already
			// flattened. Reject rather than leave the order armed.
			order.Status = exchange.OrderStatusRejected
			order.UpdatedAt = v.now()
			continue
		}
		order.Status = exchange.OrderStatusFilled
		order.Filled = order.Quantity
		order.Fee = filled.Fee
		order.FeeAsset = filled.FeeAsset
		order.UpdatedAt = v.now()
		// The fill bookkeeping order is redundant with this one.
		delete(v.orders, filled.ID)
	}
}

func (v *Venue) nextID() string {
	v.orderSeq++
	return strconv.Itoa(v.orderSeq)
}

func limitMarketable(side exchange.OrderSide, limit, market float64) bool {
	if side == exchange.OrderSideBuy {
		return limit >= market
	}
	return limit <= market
}

func splitSymbol(symbol string) (base, quote string, err error) {
	parts := strings.Split(symbol, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &exchange.ExchangeError{
			Code:    exchange.ErrCodeInvalidSymbol,
			Message: fmt.Sprintf("symbol %q is not in BASE/QUOTE form", symbol),
		}
	}
	return parts[0], parts[1], nil
}
