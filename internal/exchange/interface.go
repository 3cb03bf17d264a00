package exchange

import (
	"context"
	"time"

	"github.com/ducminhle1904/crypto-trading-assistant/pkg/types"
)

// Exchange is the venue capability set shared by the live adapter and the
// simulated (paper) venue. Callers depend only on this interface so
// switching live<->paper requires no orchestration change. Each venue's
// adapter is the sole mutator of that venue's order state: callers read
// balances and positions through it and never keep a second copy.
type Exchange interface {
	GetName() string

	// Market data
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error)

	// Account
	GetBalance(ctx context.Context) (map[string]float64, error)

	// Trading
	PlaceMarketOrder(ctx context.Context, symbol string, side OrderSide, quantity float64) (*Order, error)
	PlaceLimitOrder(ctx context.Context, symbol string, side OrderSide, price, quantity float64) (*Order, error)
	PlaceStopLossOrder(ctx context.Context, symbol string, side OrderSide, stopPrice, quantity float64) (*Order, error)
	PlaceTakeProfitOrder(ctx context.Context, symbol string, side OrderSide, limitPrice, quantity float64) (*Order, error)
	CancelOrder(ctx context.Context, orderID, symbol string) error
	GetOpenOrders(ctx context.Context, symbol string) ([]*Order, error)
	GetOpenPositions(ctx context.Context) ([]*Position, error)

	Close() error
}

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Opposite returns the offsetting side, used when flattening positions.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderType distinguishes order kinds on the wire.
type OrderType string

const (
	OrderTypeMarket     OrderType = "market"
	OrderTypeLimit      OrderType = "limit"
	OrderTypeStopLoss   OrderType = "stop_loss"
	OrderTypeTakeProfit OrderType = "take_profit"
)

// OrderStatus models the order lifecycle:
//
//	pending -> open -> {filled | cancelled | rejected}
//
// A filled market order transitions directly pending -> filled.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// IsTerminal reports whether the status admits no further transition.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled || s == OrderStatusRejected
}

// Order is a single venue order. Protective children (stop-loss,
// take-profit) are independent orders linked through ParentOrderID;
// cancelling or filling the parent does not cascade to children; the
// execution service does that explicitly.
type Order struct {
	ID       string
	Symbol   string
	Side     OrderSide
	Type     OrderType
	Quantity float64
	Price    float64 // limit or stop price; fill price for filled market orders
	Filled   float64
	Status   OrderStatus
	Fee      float64
	FeeAsset string

	ParentOrderID     string // set on protective children
	StopLossOrderID   string // set on the parent once the child is placed
	TakeProfitOrderID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// stableAssets are quote assets valued at face value during portfolio
// valuation.
var stableAssets = map[string]bool{
	"USDT": true,
	"USDC": true,
	"DAI":  true,
}

// IsStablecoin reports whether the asset counts at face value in the
// portfolio's quote unit.
func IsStablecoin(asset string) bool {
	return stableAssets[asset]
}

// Position is an open holding at a venue. CurrentPrice and UnrealizedPnL
// are refreshed on read, not stored.
type Position struct {
	Symbol        string
	Side          OrderSide
	Quantity      float64
	EntryPrice    float64
	CurrentPrice  float64
	UnrealizedPnL float64
}
