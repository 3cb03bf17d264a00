// Package indicators computes technical indicators over whole price
// series at once. Every function returns a series aligned index-for-index
// with its input; positions before an indicator's warmup hold NaN so
// callers can tell "no value yet" from a real zero.
package indicators

import (
	"errors"
	"math"

	"github.com/ducminhle1904/crypto-trading-assistant/pkg/types"
)

var errInsufficientData = errors.New("insufficient data for indicator period")

// SMA computes the simple moving average.
func SMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(values) < period {
		return nil, errInsufficientData
	}

	out := nanSeries(len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out, nil
}

// EMA computes the exponential moving average, seeded with the SMA of the
// first period values.
func EMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(values) < period {
		return nil, errInsufficientData
	}

	out := nanSeries(len(values))
	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	out[period-1] = seed / float64(period)

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		out[i] = (values[i]-out[i-1])*multiplier + out[i-1]
	}
	return out, nil
}

// RSI computes the Relative Strength Index with Wilder's smoothing. A
// period with zero average loss reads 100.
func RSI(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(values) < period+1 {
		return nil, errInsufficientData
	}

	out := nanSeries(len(values))

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACDResult holds the three aligned MACD series.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes moving average convergence divergence with the given
// fast, slow, and signal periods (12/26/9 conventionally).
func MACD(values []float64, fastPeriod, slowPeriod, signalPeriod int) (*MACDResult, error) {
	if fastPeriod >= slowPeriod {
		return nil, errors.New("fast period must be shorter than slow period")
	}
	if len(values) < slowPeriod+signalPeriod {
		return nil, errInsufficientData
	}

	fast, err := EMA(values, fastPeriod)
	if err != nil {
		return nil, err
	}
	slow, err := EMA(values, slowPeriod)
	if err != nil {
		return nil, err
	}

	macd := nanSeries(len(values))
	for i := slowPeriod - 1; i < len(values); i++ {
		macd[i] = fast[i] - slow[i]
	}

	// The signal line is an EMA of the MACD line, offset past its warmup.
	signal := nanSeries(len(values))
	signalSeed, err := EMA(macd[slowPeriod-1:], signalPeriod)
	if err != nil {
		return nil, err
	}
	copy(signal[slowPeriod-1:], signalSeed)

	histogram := nanSeries(len(values))
	for i := range histogram {
		if !math.IsNaN(macd[i]) && !math.IsNaN(signal[i]) {
			histogram[i] = macd[i] - signal[i]
		}
	}

	return &MACDResult{MACD: macd, Signal: signal, Histogram: histogram}, nil
}

// BollingerResult holds the three aligned band series.
type BollingerResult struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
}

// Bollinger computes Bollinger bands: an SMA middle band with upper and
// lower bands stdDev standard deviations away.
func Bollinger(values []float64, period int, stdDev float64) (*BollingerResult, error) {
	middle, err := SMA(values, period)
	if err != nil {
		return nil, err
	}

	upper := nanSeries(len(values))
	lower := nanSeries(len(values))
	for i := period - 1; i < len(values); i++ {
		variance := 0.0
		for j := i - period + 1; j <= i; j++ {
			diff := values[j] - middle[i]
			variance += diff * diff
		}
		sigma := math.Sqrt(variance / float64(period))
		upper[i] = middle[i] + stdDev*sigma
		lower[i] = middle[i] - stdDev*sigma
	}

	return &BollingerResult{Middle: middle, Upper: upper, Lower: lower}, nil
}

// ATR computes the Average True Range over OHLCV bars with Wilder's
// smoothing.
func ATR(bars []types.OHLCV, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(bars) < period+1 {
		return nil, errInsufficientData
	}

	out := nanSeries(len(bars))

	tr := make([]float64, len(bars))
	tr[0] = bars[0].High - bars[0].Low
	for i := 1; i < len(bars); i++ {
		highLow := bars[i].High - bars[i].Low
		highClose := math.Abs(bars[i].High - bars[i-1].Close)
		lowClose := math.Abs(bars[i].Low - bars[i-1].Close)
		tr[i] = math.Max(highLow, math.Max(highClose, lowClose))
	}

	atr := 0.0
	for i := 1; i <= period; i++ {
		atr += tr[i]
	}
	atr /= float64(period)
	out[period] = atr

	for i := period + 1; i < len(bars); i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
		out[i] = atr
	}
	return out, nil
}

// Closes extracts the close-price series from OHLCV bars.
func Closes(bars []types.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, bar := range bars {
		out[i] = bar.Close
	}
	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
