package bybit

import (
	"context"
	"fmt"
)

// GetBalance implements exchange.Exchange against the unified account
// wallet. Assets with a zero wallet balance are omitted.
func (c *Client) GetBalance(ctx context.Context) (map[string]float64, error) {
	params := map[string]interface{}{
		"accountType": "UNIFIED",
	}

	result, err := c.callWithRetry(ctx, func() (interface{}, error) {
		return c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("get account balance: %w", err)
	}

	var wallet struct {
		List []struct {
			Coin []struct {
				Coin          string `json:"coin"`
				WalletBalance string `json:"walletBalance"`
			} `json:"coin"`
		} `json:"list"`
	}
	if err := remarshal(result, &wallet); err != nil {
		return nil, fmt.Errorf("parse account balance: %w", err)
	}

	balances := make(map[string]float64)
	for _, account := range wallet.List {
		for _, coin := range account.Coin {
			if amount := parseFloat64(coin.WalletBalance); amount > 0 {
				balances[coin.Coin] = amount
			}
		}
	}

	return balances, nil
}
