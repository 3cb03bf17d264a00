package bybit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ducminhle1904/crypto-trading-assistant/internal/exchange"
)

// orderResult is the subset of Bybit's order payload the adapter reads.
type orderResult struct {
	OrderID      string `json:"orderId"`
	Symbol       string `json:"symbol"`
	Side         string `json:"side"`
	OrderType    string `json:"orderType"`
	Qty          string `json:"qty"`
	Price        string `json:"price"`
	TriggerPrice string `json:"triggerPrice"`
	OrderStatus  string `json:"orderStatus"`
	CumExecQty   string `json:"cumExecQty"`
	AvgPrice     string `json:"avgPrice"`
	CumExecFee   string `json:"cumExecFee"`
	FeeCurrency  string `json:"feeCurrency"`
	CreatedTime  string `json:"createdTime"`
	UpdatedTime  string `json:"updatedTime"`
}

// PlaceMarketOrder implements exchange.Exchange.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, side exchange.OrderSide, quantity float64) (*exchange.Order, error) {
	return c.placeOrder(ctx, symbol, side, exchange.OrderTypeMarket, map[string]interface{}{
		"orderType": "Market",
		"qty":       formatQty(quantity),
	})
}

// PlaceLimitOrder implements exchange.Exchange. Orders rest good till
// cancelled.
func (c *Client) PlaceLimitOrder(ctx context.Context, symbol string, side exchange.OrderSide, price, quantity float64) (*exchange.Order, error) {
	return c.placeOrder(ctx, symbol, side, exchange.OrderTypeLimit, map[string]interface{}{
		"orderType":   "Limit",
		"qty":         formatQty(quantity),
		"price":       formatPrice(price),
		"timeInForce": "GTC",
	})
}

// PlaceStopLossOrder implements exchange.Exchange as a conditional market
// order that triggers at the stop price.
func (c *Client) PlaceStopLossOrder(ctx context.Context, symbol string, side exchange.OrderSide, stopPrice, quantity float64) (*exchange.Order, error) {
	params := map[string]interface{}{
		"orderType":    "Market",
		"qty":          formatQty(quantity),
		"triggerPrice": formatPrice(stopPrice),
	}
	if c.category == "spot" {
		params["orderFilter"] = "StopOrder"
	} else {
		params["reduceOnly"] = true
		params["triggerDirection"] = triggerDirection(side)
	}
	return c.placeOrder(ctx, symbol, side, exchange.OrderTypeStopLoss, params)
}

// PlaceTakeProfitOrder implements exchange.Exchange as a resting limit
// order at the target price.
func (c *Client) PlaceTakeProfitOrder(ctx context.Context, symbol string, side exchange.OrderSide, limitPrice, quantity float64) (*exchange.Order, error) {
	params := map[string]interface{}{
		"orderType":   "Limit",
		"qty":         formatQty(quantity),
		"price":       formatPrice(limitPrice),
		"timeInForce": "GTC",
	}
	if c.category != "spot" {
		params["reduceOnly"] = true
	}
	return c.placeOrder(ctx, symbol, side, exchange.OrderTypeTakeProfit, params)
}

func (c *Client) placeOrder(ctx context.Context, symbol string, side exchange.OrderSide, orderType exchange.OrderType, extra map[string]interface{}) (*exchange.Order, error) {
	wire, err := wireSymbol(symbol)
	if err != nil {
		return nil, err
	}

	params := map[string]interface{}{
		"category": c.category,
		"symbol":   wire,
		"side":     wireSide(side),
	}
	for k, v := range extra {
		params[k] = v
	}

	result, err := c.callWithRetry(ctx, func() (interface{}, error) {
		return c.httpClient.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("place %s order for %s: %w", orderType, symbol, err)
	}

	var placed orderResult
	if err := remarshal(result, &placed); err != nil {
		return nil, fmt.Errorf("parse order response for %s: %w", symbol, err)
	}

	order := toOrder(placed, symbol)
	order.Side = side
	order.Type = orderType
	// The placement ack carries no status; a market order is treated as
	// filled, everything else as resting, until the next order query.
	if order.Status == "" {
		if orderType == exchange.OrderTypeMarket {
			order.Status = exchange.OrderStatusFilled
		} else {
			order.Status = exchange.OrderStatusOpen
		}
	}
	return order, nil
}

// CancelOrder implements exchange.Exchange.
func (c *Client) CancelOrder(ctx context.Context, orderID, symbol string) error {
	wire, err := wireSymbol(symbol)
	if err != nil {
		return err
	}

	params := map[string]interface{}{
		"category": c.category,
		"symbol":   wire,
		"orderId":  orderID,
	}

	if _, err := c.callWithRetry(ctx, func() (interface{}, error) {
		return c.httpClient.NewUtaBybitServiceWithParams(params).CancelOrder(ctx)
	}); err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return nil
}

// GetOpenOrders implements exchange.Exchange. An empty symbol matches all
// open orders in the client's category.
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]*exchange.Order, error) {
	params := map[string]interface{}{
		"category": c.category,
	}
	if symbol != "" {
		wire, err := wireSymbol(symbol)
		if err != nil {
			return nil, err
		}
		params["symbol"] = wire
	}

	result, err := c.callWithRetry(ctx, func() (interface{}, error) {
		return c.httpClient.NewUtaBybitServiceWithParams(params).GetOpenOrders(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("get open orders: %w", err)
	}

	var list struct {
		List []orderResult `json:"list"`
	}
	if err := remarshal(result, &list); err != nil {
		return nil, fmt.Errorf("parse open orders: %w", err)
	}

	orders := make([]*exchange.Order, 0, len(list.List))
	for _, item := range list.List {
		orders = append(orders, toOrder(item, displaySymbol(item.Symbol, symbol)))
	}
	return orders, nil
}

// GetOpenPositions implements exchange.Exchange. Spot accounts have no
// position list; callers derive spot exposure from balances instead.
func (c *Client) GetOpenPositions(ctx context.Context) ([]*exchange.Position, error) {
	if c.category == "spot" {
		return nil, nil
	}

	params := map[string]interface{}{
		"category":   c.category,
		"settleCoin": "USDT",
	}

	result, err := c.callWithRetry(ctx, func() (interface{}, error) {
		return c.httpClient.NewUtaBybitServiceWithParams(params).GetPositionList(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	var list struct {
		List []struct {
			Symbol        string `json:"symbol"`
			Side          string `json:"side"`
			Size          string `json:"size"`
			AvgPrice      string `json:"avgPrice"`
			MarkPrice     string `json:"markPrice"`
			UnrealisedPnl string `json:"unrealisedPnl"`
		} `json:"list"`
	}
	if err := remarshal(result, &list); err != nil {
		return nil, fmt.Errorf("parse positions: %w", err)
	}

	var positions []*exchange.Position
	for _, item := range list.List {
		size := parseFloat64(item.Size)
		if size == 0 {
			continue
		}
		positions = append(positions, &exchange.Position{
			Symbol:        displaySymbol(item.Symbol, ""),
			Side:          fromWireSide(item.Side),
			Quantity:      size,
			EntryPrice:    parseFloat64(item.AvgPrice),
			CurrentPrice:  parseFloat64(item.MarkPrice),
			UnrealizedPnL: parseFloat64(item.UnrealisedPnl),
		})
	}
	return positions, nil
}

// toOrder maps a wire order onto the shared order shape.
func toOrder(item orderResult, symbol string) *exchange.Order {
	price := parseFloat64(item.Price)
	if price == 0 {
		price = parseFloat64(item.TriggerPrice)
	}
	if avg := parseFloat64(item.AvgPrice); avg > 0 {
		price = avg
	}

	return &exchange.Order{
		ID:        item.OrderID,
		Symbol:    symbol,
		Side:      fromWireSide(item.Side),
		Type:      fromWireOrderType(item.OrderType),
		Quantity:  parseFloat64(item.Qty),
		Price:     price,
		Filled:    parseFloat64(item.CumExecQty),
		Status:    fromWireStatus(item.OrderStatus),
		Fee:       parseFloat64(item.CumExecFee),
		FeeAsset:  item.FeeCurrency,
		CreatedAt: parseTimestamp(item.CreatedTime),
		UpdatedAt: parseTimestamp(item.UpdatedTime),
	}
}

func wireSide(side exchange.OrderSide) string {
	if side == exchange.OrderSideBuy {
		return "Buy"
	}
	return "Sell"
}

func fromWireSide(side string) exchange.OrderSide {
	if side == "Buy" {
		return exchange.OrderSideBuy
	}
	return exchange.OrderSideSell
}

func fromWireOrderType(orderType string) exchange.OrderType {
	if orderType == "Market" {
		return exchange.OrderTypeMarket
	}
	return exchange.OrderTypeLimit
}

func fromWireStatus(status string) exchange.OrderStatus {
	switch status {
	case "Created", "New", "PartiallyFilled", "Untriggered", "Triggered":
		return exchange.OrderStatusOpen
	case "Filled":
		return exchange.OrderStatusFilled
	case "Cancelled", "PartiallyFilledCanceled", "Deactivated":
		return exchange.OrderStatusCancelled
	case "Rejected":
		return exchange.OrderStatusRejected
	default:
		return exchange.OrderStatus(status)
	}
}

// triggerDirection tells Bybit which way the price must move to trigger:
// 1 means rising through the price, 2 means falling through it.
func triggerDirection(side exchange.OrderSide) int {
	if side == exchange.OrderSideSell {
		return 2
	}
	return 1
}

// displaySymbol restores BASE/QUOTE form for a wire symbol. When the
// caller supplied the symbol it is reused verbatim; otherwise the usual
// USDT quote split is assumed.
func displaySymbol(wire, requested string) string {
	if requested != "" {
		return requested
	}
	for _, quote := range []string{"USDT", "USDC", "DAI", "BTC", "ETH"} {
		if len(wire) > len(quote) && wire[len(wire)-len(quote):] == quote {
			return wire[:len(wire)-len(quote)] + "/" + quote
		}
	}
	return wire
}

func formatQty(quantity float64) string {
	return strconv.FormatFloat(quantity, 'f', -1, 64)
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

func parseFloat64(s string) float64 {
	if s == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseInt64(s string) int64 {
	if s == "" {
		return 0
	}
	i, _ := strconv.ParseInt(s, 10, 64)
	return i
}

// parseTimestamp converts a millisecond timestamp string to time.Time.
func parseTimestamp(ts string) time.Time {
	msec := parseInt64(ts)
	if msec == 0 {
		return time.Time{}
	}
	return time.UnixMilli(msec)
}
