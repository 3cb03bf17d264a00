package risk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, limits Limits) *Manager {
	t.Helper()
	m, err := NewManager(limits)
	require.NoError(t, err)
	return m
}

// TestNewManager_DefaultLimits tests construction with the default limit set
func TestNewManager_DefaultLimits(t *testing.T) {
	m, err := NewManager(DefaultLimits())

	require.NoError(t, err)
	assert.Equal(t, 0.10, m.Limits().MaxPositionSizePct)
	assert.Equal(t, 0.02, m.Limits().MaxPortfolioRiskPct)
	assert.Equal(t, 10, m.Limits().MaxOpenPositions)
}

// TestNewManager_InvalidLimits tests that malformed limits fail fast
func TestNewManager_InvalidLimits(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxPortfolioRiskPct = -0.02

	m, err := NewManager(limits)

	assert.Nil(t, m)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_portfolio_risk_pct")
}

// TestNewManager_ZeroOpenPositions tests that a zero position limit is rejected
func TestNewManager_ZeroOpenPositions(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxOpenPositions = 0

	_, err := NewManager(limits)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_open_positions")
}

// TestCalculatePositionSize_Basic tests sizing with a 2% risk budget
func TestCalculatePositionSize_Basic(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxPositionSizePct = 1.0 // cap must not bind here
	m := newTestManager(t, limits)

	result := m.CalculatePositionSize(SizingRequest{
		EntryPrice:     50000,
		StopLossPrice:  49000,
		PortfolioValue: 10000,
		RiskPct:        0.02,
	})

	assert.True(t, result.Approved)
	assert.InDelta(t, 200.0, result.RiskAmount, 1e-9)
	assert.InDelta(t, 0.2, result.Quantity, 1e-9)
	assert.InDelta(t, 0.02, result.RiskPct, 1e-9)
	assert.Empty(t, result.RejectionReason)
}

// TestCalculatePositionSize_CappedAtMaxPositionSize tests the proportional scale-down
func TestCalculatePositionSize_CappedAtMaxPositionSize(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxPositionSizePct = 0.05
	m := newTestManager(t, limits)

	result := m.CalculatePositionSize(SizingRequest{
		EntryPrice:     50000,
		StopLossPrice:  49000,
		PortfolioValue: 10000,
		RiskPct:        0.02,
	})

	assert.True(t, result.Approved)
	assert.InDelta(t, 500.0, result.PositionValue, 1e-9)
	assert.InDelta(t, 0.01, result.Quantity, 1e-9)
	// Risk shrinks along with the quantity.
	assert.InDelta(t, 10.0, result.RiskAmount, 1e-9)
}

// TestCalculatePositionSize_NeverExceedsCap tests the cap across a range of inputs
func TestCalculatePositionSize_NeverExceedsCap(t *testing.T) {
	m := newTestManager(t, DefaultLimits())

	portfolios := []float64{500, 10000, 250000}
	stops := []float64{49999, 49500, 49000, 45000}

	for _, pv := range portfolios {
		for _, stop := range stops {
			result := m.CalculatePositionSize(SizingRequest{
				EntryPrice:     50000,
				StopLossPrice:  stop,
				PortfolioValue: pv,
				RiskPct:        0.02,
			})
			require.True(t, result.Approved)
			assert.LessOrEqual(t, result.PositionValue, pv*m.Limits().MaxPositionSizePct+1e-9)
		}
	}
}

// TestCalculatePositionSize_StopEqualsEntry tests the zero risk-per-unit rejection
func TestCalculatePositionSize_StopEqualsEntry(t *testing.T) {
	m := newTestManager(t, DefaultLimits())

	result := m.CalculatePositionSize(SizingRequest{
		EntryPrice:     50000,
		StopLossPrice:  50000,
		PortfolioValue: 10000,
	})

	assert.False(t, result.Approved)
	assert.Contains(t, result.RejectionReason, "equals entry price")
	assert.Zero(t, result.Quantity)
}

// TestCalculatePositionSize_NonPositiveInputs tests rejection instead of division by zero
func TestCalculatePositionSize_NonPositiveInputs(t *testing.T) {
	m := newTestManager(t, DefaultLimits())

	cases := []SizingRequest{
		{EntryPrice: 0, StopLossPrice: 49000, PortfolioValue: 10000},
		{EntryPrice: 50000, StopLossPrice: -1, PortfolioValue: 10000},
		{EntryPrice: 50000, StopLossPrice: 49000, PortfolioValue: 0},
		{EntryPrice: 50000, StopLossPrice: 49000, PortfolioValue: -5000},
	}

	for _, req := range cases {
		result := m.CalculatePositionSize(req)
		assert.False(t, result.Approved)
		assert.NotEmpty(t, result.RejectionReason)
	}
}

// TestCalculatePositionSize_PoorRiskReward tests rejection of an unfavorable ratio
func TestCalculatePositionSize_PoorRiskReward(t *testing.T) {
	limits := DefaultLimits()
	limits.MinRiskRewardRatio = 2.0
	m := newTestManager(t, limits)

	// 2% risk distance against a 1% reward distance: ratio 0.5.
	result := m.CalculatePositionSize(SizingRequest{
		EntryPrice:      50000,
		StopLossPrice:   49000,
		TakeProfitPrice: 50500,
		PortfolioValue:  10000,
	})

	assert.False(t, result.Approved)
	assert.InDelta(t, 0.5, result.RiskRewardRatio, 1e-9)
	assert.Contains(t, strings.ToLower(result.RejectionReason), "risk/reward ratio")
	assert.Contains(t, result.RejectionReason, "0.50")
}

// TestCalculatePositionSize_GoodRiskReward tests approval of a 2:1 ratio
func TestCalculatePositionSize_GoodRiskReward(t *testing.T) {
	m := newTestManager(t, DefaultLimits())

	result := m.CalculatePositionSize(SizingRequest{
		EntryPrice:      50000,
		StopLossPrice:   49000,
		TakeProfitPrice: 52000,
		PortfolioValue:  10000,
		RiskPct:         0.02,
	})

	assert.True(t, result.Approved)
	assert.InDelta(t, 2.0, result.RiskRewardRatio, 1e-9)
	assert.Greater(t, result.RewardAmount, result.RiskAmount)
}

// TestCalculatePositionSize_RiskPctClamped tests that excessive risk is clamped
func TestCalculatePositionSize_RiskPctClamped(t *testing.T) {
	m := newTestManager(t, DefaultLimits())

	result := m.CalculatePositionSize(SizingRequest{
		EntryPrice:     100,
		StopLossPrice:  90,
		PortfolioValue: 10000,
		RiskPct:        0.50, // clamped to the 2% limit
	})

	assert.True(t, result.Approved)
	assert.LessOrEqual(t, result.RiskPct, m.Limits().MaxPortfolioRiskPct+1e-9)
}

// TestCalculateStopLoss tests stop derivation for both sides
func TestCalculateStopLoss(t *testing.T) {
	m := newTestManager(t, DefaultLimits())

	assert.InDelta(t, 49000, m.CalculateStopLoss(50000, SideBuy, 0.02), 1e-9)
	assert.InDelta(t, 51000, m.CalculateStopLoss(50000, SideSell, 0.02), 1e-9)
	// Zero pct falls back to the 2% default.
	assert.InDelta(t, 49000, m.CalculateStopLoss(50000, SideBuy, 0), 1e-9)
}

// TestCalculateTakeProfit tests target derivation for both sides
func TestCalculateTakeProfit(t *testing.T) {
	m := newTestManager(t, DefaultLimits())

	assert.InDelta(t, 52000, m.CalculateTakeProfit(50000, SideBuy, 0.04), 1e-9)
	assert.InDelta(t, 48000, m.CalculateTakeProfit(50000, SideSell, 0.04), 1e-9)
	assert.InDelta(t, 52000, m.CalculateTakeProfit(50000, SideBuy, 0), 1e-9)
}

// TestAssessPortfolioRisk_MaxPositionsReached tests the position-count gate
func TestAssessPortfolioRisk_MaxPositionsReached(t *testing.T) {
	m := newTestManager(t, DefaultLimits())

	assessment := m.AssessPortfolioRisk(PortfolioSnapshot{
		PortfolioValue:   10000,
		AvailableBalance: 9000,
		OpenPositions:    10,
	}, 500)

	assert.False(t, assessment.CanOpenPosition)
	assert.Contains(t, assessment.Reason, "maximum open positions")
}

// TestAssessPortfolioRisk_ExposureLimit tests the total exposure gate
func TestAssessPortfolioRisk_ExposureLimit(t *testing.T) {
	m := newTestManager(t, DefaultLimits())

	assessment := m.AssessPortfolioRisk(PortfolioSnapshot{
		PortfolioValue:   10000,
		AvailableBalance: 9000,
		OpenPositions:    3,
		TotalExposure:    9400,
	}, 200)

	assert.False(t, assessment.CanOpenPosition)
	assert.Contains(t, assessment.Reason, "exposure limit")
}

// TestAssessPortfolioRisk_DrawdownBreaker tests the portfolio circuit breaker
func TestAssessPortfolioRisk_DrawdownBreaker(t *testing.T) {
	m := newTestManager(t, DefaultLimits())

	assessment := m.AssessPortfolioRisk(PortfolioSnapshot{
		PortfolioValue:   8000,
		AvailableBalance: 8000,
		CurrentDrawdown:  0.20,
	}, 100)

	assert.False(t, assessment.CanOpenPosition)
	assert.Contains(t, assessment.Reason, "drawdown")
	assert.Contains(t, assessment.Reason, "halted")
}

// TestAssessPortfolioRisk_InsufficientBalance tests the balance gate
func TestAssessPortfolioRisk_InsufficientBalance(t *testing.T) {
	m := newTestManager(t, DefaultLimits())

	assessment := m.AssessPortfolioRisk(PortfolioSnapshot{
		PortfolioValue:   10000,
		AvailableBalance: 100,
		OpenPositions:    1,
	}, 500)

	assert.False(t, assessment.CanOpenPosition)
	assert.Contains(t, assessment.Reason, "insufficient balance")
}

// TestAssessPortfolioRisk_AllChecksPass tests approval under normal conditions
func TestAssessPortfolioRisk_AllChecksPass(t *testing.T) {
	m := newTestManager(t, DefaultLimits())

	assessment := m.AssessPortfolioRisk(PortfolioSnapshot{
		PortfolioValue:   10000,
		AvailableBalance: 8000,
		OpenPositions:    2,
		TotalExposure:    2000,
		CurrentDrawdown:  0.05,
	}, 500)

	assert.True(t, assessment.CanOpenPosition)
	assert.Empty(t, assessment.Reason)
	assert.InDelta(t, 0.2, assessment.ExposurePct, 1e-9)
}

// TestValidateTrade_PortfolioGateShortCircuits tests that the drawdown breaker
// fires before the sizing math runs
func TestValidateTrade_PortfolioGateShortCircuits(t *testing.T) {
	m := newTestManager(t, DefaultLimits())

	// Stop equals entry, which the sizing stage would reject with its own
	// reason. The portfolio stage must win.
	approved, reason := m.ValidateTrade(TradeRequest{
		EntryPrice:    50000,
		StopLossPrice: 50000,
		Quantity:      0.01,
		Snapshot: PortfolioSnapshot{
			PortfolioValue:   10000,
			AvailableBalance: 9000,
			CurrentDrawdown:  0.25,
		},
	})

	assert.False(t, approved)
	assert.Contains(t, reason, "drawdown")
}

// TestValidateTrade_SizingRejectionSurfaces tests that a sizing rejection is
// returned once portfolio risk passes
func TestValidateTrade_SizingRejectionSurfaces(t *testing.T) {
	limits := DefaultLimits()
	limits.MinRiskRewardRatio = 2.0
	m := newTestManager(t, limits)

	approved, reason := m.ValidateTrade(TradeRequest{
		EntryPrice:      50000,
		StopLossPrice:   49000,
		TakeProfitPrice: 50500,
		Quantity:        0.01,
		Snapshot: PortfolioSnapshot{
			PortfolioValue:   10000,
			AvailableBalance: 9000,
		},
	})

	assert.False(t, approved)
	assert.Contains(t, strings.ToLower(reason), "risk/reward")
}

// TestValidateTrade_NoStopSkipsSizing tests that trades without a stop only
// pass through the portfolio gate
func TestValidateTrade_NoStopSkipsSizing(t *testing.T) {
	m := newTestManager(t, DefaultLimits())

	approved, reason := m.ValidateTrade(TradeRequest{
		EntryPrice: 50000,
		Quantity:   0.01,
		Snapshot: PortfolioSnapshot{
			PortfolioValue:   10000,
			AvailableBalance: 9000,
		},
	})

	assert.True(t, approved)
	assert.Empty(t, reason)
}

// TestValidateTrade_Approved tests the happy path through both stages
func TestValidateTrade_Approved(t *testing.T) {
	m := newTestManager(t, DefaultLimits())

	approved, reason := m.ValidateTrade(TradeRequest{
		EntryPrice:      50000,
		StopLossPrice:   49000,
		TakeProfitPrice: 52000,
		Quantity:        0.01,
		Snapshot: PortfolioSnapshot{
			PortfolioValue:   10000,
			AvailableBalance: 9000,
			OpenPositions:    2,
			TotalExposure:    1500,
		},
	})

	assert.True(t, approved)
	assert.Empty(t, reason)
}
