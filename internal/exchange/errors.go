package exchange

import "fmt"

// ExchangeError is a venue-level failure with a machine-readable code.
// The core never retries these itself; Retryable guides caller policy.
type ExchangeError struct {
	Code      string
	Message   string
	Details   string
	Retryable bool
}

func (e *ExchangeError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsRetryable reports whether the caller may retry the venue call.
func (e *ExchangeError) IsRetryable() bool {
	return e.Retryable
}

// Common error codes shared by venue adapters.
const (
	ErrCodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrCodeOrderNotFound       = "ORDER_NOT_FOUND"
	ErrCodeOrderNotOpen        = "ORDER_NOT_OPEN"
	ErrCodePriceUnavailable    = "PRICE_UNAVAILABLE"
	ErrCodeInvalidSymbol       = "INVALID_SYMBOL"
	ErrCodeAPIFailure          = "API_FAILURE"
	ErrCodeUnsupportedVenue    = "UNSUPPORTED_VENUE"
)

// NewInsufficientBalanceError reports that a fill would overdraw an asset.
func NewInsufficientBalanceError(asset string, need, have float64) *ExchangeError {
	return &ExchangeError{
		Code:      ErrCodeInsufficientBalance,
		Message:   fmt.Sprintf("insufficient %s balance", asset),
		Details:   fmt.Sprintf("need %.8f, have %.8f", need, have),
		Retryable: false,
	}
}

// NewOrderNotFoundError reports an unknown order ID.
func NewOrderNotFoundError(orderID string) *ExchangeError {
	return &ExchangeError{
		Code:      ErrCodeOrderNotFound,
		Message:   fmt.Sprintf("order %s not found", orderID),
		Retryable: false,
	}
}
