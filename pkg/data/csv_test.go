package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-trading-assistant/pkg/types"
)

func writeDataFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

// TestLoadBars_ParsesFileWithHeader tests the default mapping with a
// header row
func TestLoadBars_ParsesFileWithHeader(t *testing.T) {
	path := writeDataFile(t, `timestamp,open,high,low,close,volume
2024-01-01 00:00:00,100,105,99,102,1500
2024-01-01 01:00:00,102,108,101,107,2100
`)

	bars, err := NewCSVProvider().LoadBars(path)
	require.NoError(t, err)

	require.Len(t, bars, 2)
	assert.Equal(t, 100.0, bars[0].Open)
	assert.Equal(t, 107.0, bars[1].Close)
	assert.Equal(t, time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), bars[1].Timestamp)
}

// TestLoadBars_ParsesHeaderlessFile tests that a file starting with data
// loses no rows
func TestLoadBars_ParsesHeaderlessFile(t *testing.T) {
	path := writeDataFile(t, `2024-01-01 00:00:00,100,105,99,102,1500
2024-01-01 01:00:00,102,108,101,107,2100
`)

	bars, err := NewCSVProvider().LoadBars(path)
	require.NoError(t, err)

	assert.Len(t, bars, 2)
}

// TestLoadBars_UnixMillisecondTimestamps tests the empty-DateFormat mapping
func TestLoadBars_UnixMillisecondTimestamps(t *testing.T) {
	mapping := DefaultColumnMapping
	mapping.DateFormat = ""
	path := writeDataFile(t, `1704067200000,100,105,99,102,1500
1704070800000,102,108,101,107,2100
`)

	bars, err := NewCSVProviderWithMapping(mapping).LoadBars(path)
	require.NoError(t, err)

	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), bars[0].Timestamp)
}

// TestLoadBars_RejectsOutOfOrderTimestamps tests the chronological gate
func TestLoadBars_RejectsOutOfOrderTimestamps(t *testing.T) {
	path := writeDataFile(t, `2024-01-01 02:00:00,100,105,99,102,1500
2024-01-01 01:00:00,102,108,101,107,2100
`)

	_, err := NewCSVProvider().LoadBars(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "strictly increasing")
}

// TestLoadBars_RejectsMalformedRow tests that bad rows fail the load
// instead of being skipped
func TestLoadBars_RejectsMalformedRow(t *testing.T) {
	path := writeDataFile(t, `2024-01-01 00:00:00,100,105,99,102,1500
2024-01-01 01:00:00,not-a-price,108,101,107,2100
`)

	_, err := NewCSVProvider().LoadBars(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

// TestLoadBars_MissingFile tests the open error path
func TestLoadBars_MissingFile(t *testing.T) {
	_, err := NewCSVProvider().LoadBars(filepath.Join(t.TempDir(), "nope.csv"))

	require.Error(t, err)
}

// TestValidateBars_RejectsInvertedRange tests high/low sanity checking
func TestValidateBars_RejectsInvertedRange(t *testing.T) {
	bars := []types.OHLCV{{
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Open:      100, High: 99, Low: 101, Close: 100, Volume: 1,
	}}

	err := ValidateBars(bars)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "high")
}

// TestValidateBars_RejectsEmptySeries tests the empty input guard
func TestValidateBars_RejectsEmptySeries(t *testing.T) {
	require.Error(t, ValidateBars(nil))
}
