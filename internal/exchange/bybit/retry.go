package bybit

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/ducminhle1904/crypto-trading-assistant/internal/exchange"
)

// RetryConfig controls the exponential backoff applied to retryable API
// failures (rate limits and gateway errors).
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns the retry policy used by new clients.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      time.Minute,
		BackoffFactor: 2.0,
	}
}

// callWithRetry runs an API call, checks the response envelope, and
// returns its result payload. Failures classified retryable by apiError
// (rate limits and gateway errors) are retried with exponential backoff
// until the budget is spent or the context ends.
func (c *Client) callWithRetry(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoffDelay(attempt)):
			}
		}

		response, err := fn()
		if err == nil {
			var result interface{}
			result, err = serverResult(response)
			if err == nil {
				return result, nil
			}
		}
		lastErr = err

		var exErr *exchange.ExchangeError
		if !errors.As(err, &exErr) || !exErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := time.Duration(float64(c.retry.InitialDelay) * math.Pow(c.retry.BackoffFactor, float64(attempt-1)))
	if delay > c.retry.MaxDelay {
		delay = c.retry.MaxDelay
	}
	return delay
}
