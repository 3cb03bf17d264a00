package bybit

import (
	"fmt"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/ducminhle1904/crypto-trading-assistant/internal/exchange"
)

// Bybit V5 retCode values the adapter maps onto shared error codes.
const (
	retCodeOK                  = 0
	retCodeRateLimitExceeded   = 10006
	retCodeOrderNotFound       = 110001
	retCodeInsufficientBalance = 110007
	retCodeSymbolNotFound      = 110009
)

// apiError converts a non-zero Bybit retCode into an ExchangeError.
func apiError(retCode int, retMsg string) *exchange.ExchangeError {
	code := exchange.ErrCodeAPIFailure
	retryable := false

	switch retCode {
	case retCodeInsufficientBalance:
		code = exchange.ErrCodeInsufficientBalance
	case retCodeOrderNotFound:
		code = exchange.ErrCodeOrderNotFound
	case retCodeSymbolNotFound:
		code = exchange.ErrCodeInvalidSymbol
	case retCodeRateLimitExceeded, 500, 502, 503, 504:
		retryable = true
	}

	return &exchange.ExchangeError{
		Code:      code,
		Message:   retMsg,
		Details:   fmt.Sprintf("retCode %d", retCode),
		Retryable: retryable,
	}
}

// serverResult checks the response envelope and returns its result payload.
func serverResult(response interface{}) (interface{}, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, &exchange.ExchangeError{
			Code:    exchange.ErrCodeAPIFailure,
			Message: "unexpected response type from Bybit client",
		}
	}
	if serverResp.RetCode != retCodeOK {
		return nil, apiError(serverResp.RetCode, serverResp.RetMsg)
	}
	return serverResp.Result, nil
}
