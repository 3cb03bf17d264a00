package trading

import (
	"fmt"

	"github.com/ducminhle1904/crypto-trading-assistant/internal/exchange"
)

// ProtectiveOrderError reports that the primary order was placed but a
// linked protective order was not. It carries the primary order's ID so
// the caller can cancel or retry by policy; the placed order is never
// silently dropped.
type ProtectiveOrderError struct {
	PrimaryOrderID string
	Kind           exchange.OrderType
	Err            error
}

func (e *ProtectiveOrderError) Error() string {
	return fmt.Sprintf("%s placement failed for primary order %s: %v", e.Kind, e.PrimaryOrderID, e.Err)
}

func (e *ProtectiveOrderError) Unwrap() error { return e.Err }
