package risk

import (
	"fmt"

	apperrors "github.com/ducminhle1904/crypto-trading-assistant/internal/errors"
)

// Limits is the immutable risk configuration for a trading session or
// backtest run. Construct one per session; never mutate it afterwards.
type Limits struct {
	MaxPositionSizePct   float64 `json:"max_position_size_pct"`  // max fraction of portfolio per position
	MaxPortfolioRiskPct  float64 `json:"max_portfolio_risk_pct"` // max fraction of portfolio risked per trade
	MaxTotalExposurePct  float64 `json:"max_total_exposure_pct"` // max fraction of portfolio in open positions
	MaxOpenPositions     int     `json:"max_open_positions"`
	MaxDrawdownPct       float64 `json:"max_drawdown_pct"` // portfolio circuit breaker
	MinRiskRewardRatio   float64 `json:"min_risk_reward_ratio"`
	DefaultStopLossPct   float64 `json:"default_stop_loss_pct"`
	DefaultTakeProfitPct float64 `json:"default_take_profit_pct"`
}

// DefaultLimits returns the documented default limit set: 10% position cap,
// 2% risk per trade, 95% exposure cap, 10 open positions, 20% drawdown
// breaker, 1.5 minimum risk/reward, 2% stop-loss, 4% take-profit.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionSizePct:   0.10,
		MaxPortfolioRiskPct:  0.02,
		MaxTotalExposurePct:  0.95,
		MaxOpenPositions:     10,
		MaxDrawdownPct:       0.20,
		MinRiskRewardRatio:   1.5,
		DefaultStopLossPct:   0.02,
		DefaultTakeProfitPct: 0.04,
	}
}

// Validate checks the limit set for values that would make the sizing math
// meaningless. Called at Manager construction so a malformed configuration
// fails fast instead of silently approving bad trades.
func (l Limits) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"max_position_size_pct", l.MaxPositionSizePct},
		{"max_portfolio_risk_pct", l.MaxPortfolioRiskPct},
		{"max_total_exposure_pct", l.MaxTotalExposurePct},
		{"max_drawdown_pct", l.MaxDrawdownPct},
		{"min_risk_reward_ratio", l.MinRiskRewardRatio},
		{"default_stop_loss_pct", l.DefaultStopLossPct},
		{"default_take_profit_pct", l.DefaultTakeProfitPct},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return apperrors.NewConfigurationError("risk", "validate_limits",
				fmt.Sprintf("%s must be positive, got %v", c.name, c.value))
		}
	}
	if l.MaxOpenPositions <= 0 {
		return apperrors.NewConfigurationError("risk", "validate_limits",
			fmt.Sprintf("max_open_positions must be positive, got %d", l.MaxOpenPositions))
	}
	if l.MaxPositionSizePct > 1 || l.MaxTotalExposurePct > 1 {
		return apperrors.NewConfigurationError("risk", "validate_limits",
			"position size and exposure limits are fractions and cannot exceed 1.0")
	}
	return nil
}
