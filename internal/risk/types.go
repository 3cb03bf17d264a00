package risk

// Side is the direction of a proposed trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// PositionSizeResult is the outcome of a single sizing request. A rejected
// result is a normal outcome, not an error; RejectionReason is set only
// when Approved is false.
type PositionSizeResult struct {
	Quantity        float64
	EntryPrice      float64
	StopLossPrice   float64
	TakeProfitPrice float64 // zero when no target was supplied
	PositionValue   float64
	RiskAmount      float64
	RiskPct         float64
	RewardAmount    float64
	RiskRewardRatio float64 // zero when no target was supplied
	Approved        bool
	RejectionReason string
}

// PortfolioSnapshot is the caller-supplied view of current portfolio state.
// The manager never holds its own snapshot: callers pass a consistent view
// on every assessment so independent sessions cannot contaminate each other.
type PortfolioSnapshot struct {
	PortfolioValue   float64
	AvailableBalance float64
	OpenPositions    int
	TotalExposure    float64 // sum of open position values, in quote units
	CurrentDrawdown  float64 // fraction below the session equity peak
}

// PortfolioRiskAssessment reports whether the portfolio as a whole may open
// a new position. Recomputed on every attempt; never cached.
type PortfolioRiskAssessment struct {
	CanOpenPosition bool
	Reason          string // set only when CanOpenPosition is false
	OpenPositions   int
	TotalExposure   float64
	ExposurePct     float64
}
