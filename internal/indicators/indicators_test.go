package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-trading-assistant/pkg/types"
)

// TestSMA_AlignedWithInput tests window averages and warmup NaNs
func TestSMA_AlignedWithInput(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	out, err := SMA(values, 3)

	require.NoError(t, err)
	require.Len(t, out, 5)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.InDelta(t, 3.0, out[3], 1e-9)
	assert.InDelta(t, 4.0, out[4], 1e-9)
}

// TestSMA_InsufficientData tests the data length check
func TestSMA_InsufficientData(t *testing.T) {
	_, err := SMA([]float64{1, 2}, 3)

	assert.Error(t, err)
}

// TestEMA_ConstantSeries tests that a flat series yields a flat EMA
func TestEMA_ConstantSeries(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 50.0
	}

	out, err := EMA(values, 10)

	require.NoError(t, err)
	for i := 9; i < 20; i++ {
		assert.InDelta(t, 50.0, out[i], 1e-9)
	}
}

// TestEMA_LinearTrendKnownValues tests exact EMA values over a ramp. For
// a unit-slope ramp and period 5 the EMA settles exactly slope*(period-1)/2
// behind the price from the seed onward.
func TestEMA_LinearTrendKnownValues(t *testing.T) {
	values := make([]float64, 15)
	for i := range values {
		values[i] = float64(i + 1)
	}

	out, err := EMA(values, 5)

	require.NoError(t, err)
	assert.InDelta(t, 3.0, out[4], 1e-9) // seed SMA of 1..5
	for i := 5; i < len(values); i++ {
		assert.InDelta(t, values[i]-2.0, out[i], 1e-9)
	}
}

// TestRSI_BoundsAndDirection tests range and monotone response
func TestRSI_BoundsAndDirection(t *testing.T) {
	rising := make([]float64, 30)
	falling := make([]float64, 30)
	for i := range rising {
		rising[i] = 100.0 + float64(i)
		falling[i] = 100.0 - float64(i)
	}

	up, err := RSI(rising, 14)
	require.NoError(t, err)
	down, err := RSI(falling, 14)
	require.NoError(t, err)

	last := len(rising) - 1
	assert.Equal(t, 100.0, up[last])
	assert.Less(t, down[last], 30.0)
	for i := 14; i <= last; i++ {
		assert.GreaterOrEqual(t, up[i], 0.0)
		assert.LessOrEqual(t, up[i], 100.0)
	}
}

// TestMACD_FlatSeriesIsZero tests that a flat series has no divergence
func TestMACD_FlatSeriesIsZero(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 75.0
	}

	result, err := MACD(values, 12, 26, 9)

	require.NoError(t, err)
	last := len(values) - 1
	assert.InDelta(t, 0.0, result.MACD[last], 1e-9)
	assert.InDelta(t, 0.0, result.Signal[last], 1e-9)
	assert.InDelta(t, 0.0, result.Histogram[last], 1e-9)
}

// TestMACD_RejectsBadPeriods tests the fast<slow constraint
func TestMACD_RejectsBadPeriods(t *testing.T) {
	_, err := MACD(make([]float64, 100), 26, 12, 9)

	assert.Error(t, err)
}

// TestBollinger_BandsSurroundMiddle tests band ordering and flat collapse
func TestBollinger_BandsSurroundMiddle(t *testing.T) {
	values := []float64{20, 21, 22, 21, 20, 19, 20, 21, 22, 23, 22, 21}

	result, err := Bollinger(values, 5, 2.0)

	require.NoError(t, err)
	for i := 4; i < len(values); i++ {
		assert.GreaterOrEqual(t, result.Upper[i], result.Middle[i])
		assert.LessOrEqual(t, result.Lower[i], result.Middle[i])
	}

	flat := make([]float64, 10)
	for i := range flat {
		flat[i] = 42.0
	}
	collapsed, err := Bollinger(flat, 5, 2.0)
	require.NoError(t, err)
	assert.InDelta(t, 42.0, collapsed.Upper[9], 1e-9)
	assert.InDelta(t, 42.0, collapsed.Lower[9], 1e-9)
}

// TestATR_ConstantRange tests ATR over bars with a fixed high-low range
func TestATR_ConstantRange(t *testing.T) {
	bars := make([]types.OHLCV, 20)
	for i := range bars {
		bars[i] = types.OHLCV{Open: 100, High: 102, Low: 98, Close: 100}
	}

	out, err := ATR(bars, 14)

	require.NoError(t, err)
	assert.True(t, math.IsNaN(out[13]))
	assert.InDelta(t, 4.0, out[14], 1e-9)
	assert.InDelta(t, 4.0, out[19], 1e-9)
}

// TestCloses tests close-price extraction
func TestCloses(t *testing.T) {
	bars := []types.OHLCV{{Close: 1.5}, {Close: 2.5}}

	assert.Equal(t, []float64{1.5, 2.5}, Closes(bars))
}
