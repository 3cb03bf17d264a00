package risk

import (
	"fmt"
	"math"
)

// Manager performs risk-adjusted position sizing and trade validation. It is
// pure computation: every method is synchronous, stateless per call, and
// reads portfolio state passed in by the caller. Safe for concurrent use.
type Manager struct {
	limits Limits
}

// NewManager creates a Manager for one session or backtest run. Returns a
// configuration error when the limit set is malformed.
func NewManager(limits Limits) (*Manager, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &Manager{limits: limits}, nil
}

// Limits returns the limit set the manager was constructed with.
func (m *Manager) Limits() Limits {
	return m.limits
}

// SizingRequest carries the inputs for one position-sizing calculation.
// RiskPct defaults to the configured MaxPortfolioRiskPct when zero.
// TakeProfitPrice of zero means no target was supplied.
type SizingRequest struct {
	EntryPrice      float64
	StopLossPrice   float64
	PortfolioValue  float64
	RiskPct         float64
	TakeProfitPrice float64
}

// CalculatePositionSize converts a proposed trade into an approved or
// rejected position size.
//
// quantity = (portfolioValue * riskPct) / |entry - stop|, then scaled down
// so positionValue never exceeds portfolioValue * MaxPositionSizePct. The
// function never scales a position up. An unfavorable risk/reward ratio is
// a rejection, not an error.
func (m *Manager) CalculatePositionSize(req SizingRequest) PositionSizeResult {
	result := PositionSizeResult{
		EntryPrice:      req.EntryPrice,
		StopLossPrice:   req.StopLossPrice,
		TakeProfitPrice: req.TakeProfitPrice,
	}

	if req.EntryPrice <= 0 || req.StopLossPrice <= 0 {
		result.RejectionReason = fmt.Sprintf("entry price (%.8f) and stop-loss price (%.8f) must be positive",
			req.EntryPrice, req.StopLossPrice)
		return result
	}
	if req.PortfolioValue <= 0 {
		result.RejectionReason = fmt.Sprintf("portfolio value must be positive, got %.2f", req.PortfolioValue)
		return result
	}

	riskPerUnit := math.Abs(req.EntryPrice - req.StopLossPrice)
	if riskPerUnit == 0 {
		result.RejectionReason = "stop-loss price equals entry price"
		return result
	}

	riskPct := req.RiskPct
	if riskPct <= 0 {
		riskPct = m.limits.MaxPortfolioRiskPct
	}
	// Requested risk above the per-trade limit is clamped, not rejected.
	if riskPct > m.limits.MaxPortfolioRiskPct {
		riskPct = m.limits.MaxPortfolioRiskPct
	}

	riskAmount := req.PortfolioValue * riskPct
	quantity := riskAmount / riskPerUnit
	positionValue := quantity * req.EntryPrice

	maxPositionValue := req.PortfolioValue * m.limits.MaxPositionSizePct
	if positionValue > maxPositionValue {
		// Scale down so positionValue lands exactly on the cap.
		quantity = maxPositionValue / req.EntryPrice
		positionValue = maxPositionValue
		riskAmount = quantity * riskPerUnit
		riskPct = riskAmount / req.PortfolioValue
	}

	result.Quantity = quantity
	result.PositionValue = positionValue
	result.RiskAmount = riskAmount
	result.RiskPct = riskPct

	if req.TakeProfitPrice > 0 {
		rewardPerUnit := math.Abs(req.TakeProfitPrice - req.EntryPrice)
		result.RewardAmount = quantity * rewardPerUnit
		result.RiskRewardRatio = rewardPerUnit / riskPerUnit

		if result.RiskRewardRatio < m.limits.MinRiskRewardRatio {
			result.RejectionReason = fmt.Sprintf("risk/reward ratio %.2f below minimum %.2f",
				result.RiskRewardRatio, m.limits.MinRiskRewardRatio)
			return result
		}
	}

	result.Approved = true
	return result
}

// CalculateStopLoss derives an absolute stop-loss price from the entry
// price. Long stops sit below entry, short stops above. A non-positive pct
// falls back to the configured default.
func (m *Manager) CalculateStopLoss(entryPrice float64, side Side, stopLossPct float64) float64 {
	if stopLossPct <= 0 {
		stopLossPct = m.limits.DefaultStopLossPct
	}
	if side == SideBuy {
		return entryPrice * (1 - stopLossPct)
	}
	return entryPrice * (1 + stopLossPct)
}

// CalculateTakeProfit derives an absolute take-profit price from the entry
// price. A non-positive pct falls back to the configured default.
func (m *Manager) CalculateTakeProfit(entryPrice float64, side Side, takeProfitPct float64) float64 {
	if takeProfitPct <= 0 {
		takeProfitPct = m.limits.DefaultTakeProfitPct
	}
	if side == SideBuy {
		return entryPrice * (1 + takeProfitPct)
	}
	return entryPrice * (1 - takeProfitPct)
}

// AssessPortfolioRisk decides whether the portfolio may open one more
// position of the given value. Each rejection path carries its own reason.
// The drawdown breaker is checked first: a portfolio past its drawdown
// limit must never open new risk regardless of the other limits.
func (m *Manager) AssessPortfolioRisk(snapshot PortfolioSnapshot, newPositionValue float64) PortfolioRiskAssessment {
	exposurePct := 0.0
	if snapshot.PortfolioValue > 0 {
		exposurePct = snapshot.TotalExposure / snapshot.PortfolioValue
	}
	assessment := PortfolioRiskAssessment{
		OpenPositions: snapshot.OpenPositions,
		TotalExposure: snapshot.TotalExposure,
		ExposurePct:   exposurePct,
	}

	if snapshot.CurrentDrawdown >= m.limits.MaxDrawdownPct {
		assessment.Reason = fmt.Sprintf("drawdown %.1f%% at or above maximum %.1f%%, trading halted",
			snapshot.CurrentDrawdown*100, m.limits.MaxDrawdownPct*100)
		return assessment
	}

	if snapshot.OpenPositions >= m.limits.MaxOpenPositions {
		assessment.Reason = fmt.Sprintf("maximum open positions limit reached (%d)", m.limits.MaxOpenPositions)
		return assessment
	}

	if snapshot.PortfolioValue > 0 {
		newExposurePct := (snapshot.TotalExposure + newPositionValue) / snapshot.PortfolioValue
		if newExposurePct > m.limits.MaxTotalExposurePct {
			assessment.Reason = fmt.Sprintf("exposure limit exceeded (%.1f%% > %.1f%%)",
				newExposurePct*100, m.limits.MaxTotalExposurePct*100)
			return assessment
		}
	}

	if newPositionValue > snapshot.AvailableBalance {
		assessment.Reason = fmt.Sprintf("insufficient balance (need %.2f, have %.2f)",
			newPositionValue, snapshot.AvailableBalance)
		return assessment
	}

	assessment.CanOpenPosition = true
	return assessment
}

// TradeRequest carries the inputs for full trade validation.
type TradeRequest struct {
	EntryPrice      float64
	StopLossPrice   float64 // zero when the trade has no protective stop
	TakeProfitPrice float64 // zero when the trade has no target
	Quantity        float64
	Snapshot        PortfolioSnapshot
}

// ValidateTrade is the two-stage gate in front of every order: portfolio
// level risk first, position sizing second. The stages never reorder: a
// portfolio at its drawdown limit must not reach the sizing math.
func (m *Manager) ValidateTrade(req TradeRequest) (bool, string) {
	positionValue := req.Quantity * req.EntryPrice

	assessment := m.AssessPortfolioRisk(req.Snapshot, positionValue)
	if !assessment.CanOpenPosition {
		return false, assessment.Reason
	}

	if req.StopLossPrice > 0 {
		sizing := m.CalculatePositionSize(SizingRequest{
			EntryPrice:      req.EntryPrice,
			StopLossPrice:   req.StopLossPrice,
			PortfolioValue:  req.Snapshot.PortfolioValue,
			TakeProfitPrice: req.TakeProfitPrice,
		})
		if !sizing.Approved {
			return false, sizing.RejectionReason
		}
	}

	return true, ""
}
