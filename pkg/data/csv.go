package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/ducminhle1904/crypto-trading-assistant/pkg/types"
)

// ColumnMapping defines the column positions and timestamp format of a
// CSV file. DateFormat is a Go reference layout; an empty DateFormat
// means the timestamp column holds Unix milliseconds.
type ColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	DateFormat   string
}

// DefaultColumnMapping matches the common export layout:
// timestamp,open,high,low,close,volume with datetime timestamps.
var DefaultColumnMapping = ColumnMapping{
	TimestampCol: 0,
	OpenCol:      1,
	HighCol:      2,
	LowCol:       3,
	CloseCol:     4,
	VolumeCol:    5,
	MinColumns:   6,
	DateFormat:   "2006-01-02 15:04:05",
}

// CSVProvider loads candle series from CSV files.
type CSVProvider struct {
	mapping ColumnMapping
}

// NewCSVProvider creates a provider with the default column mapping.
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{mapping: DefaultColumnMapping}
}

// NewCSVProviderWithMapping creates a provider with a custom column mapping.
func NewCSVProviderWithMapping(mapping ColumnMapping) *CSVProvider {
	return &CSVProvider{mapping: mapping}
}

// GetName returns the name of the provider.
func (p *CSVProvider) GetName() string {
	return "csv"
}

// LoadBars reads the file, skipping a header row when the first record
// does not parse as data, and validates the result. Malformed rows are
// errors, not warnings: a backtest over silently patched data is worse
// than no backtest.
func (p *CSVProvider) LoadBars(source string) ([]types.OHLCV, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("could not open data file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	var bars []types.OHLCV
	lineNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum+1, err)
		}
		lineNum++

		if len(record) < p.mapping.MinColumns {
			return nil, fmt.Errorf("line %d: expected at least %d columns, got %d",
				lineNum, p.mapping.MinColumns, len(record))
		}

		bar, err := p.parseRecord(record)
		if err != nil {
			if lineNum == 1 {
				// Header row.
				continue
			}
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		bars = append(bars, bar)
	}

	if err := ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return bars, nil
}

func (p *CSVProvider) parseRecord(record []string) (types.OHLCV, error) {
	timestamp, err := p.parseTimestamp(record[p.mapping.TimestampCol])
	if err != nil {
		return types.OHLCV{}, fmt.Errorf("invalid timestamp %q: %w", record[p.mapping.TimestampCol], err)
	}

	fields := []struct {
		name string
		col  int
	}{
		{"open", p.mapping.OpenCol},
		{"high", p.mapping.HighCol},
		{"low", p.mapping.LowCol},
		{"close", p.mapping.CloseCol},
		{"volume", p.mapping.VolumeCol},
	}
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(record[f.col], 64)
		if err != nil {
			return types.OHLCV{}, fmt.Errorf("invalid %s %q: %w", f.name, record[f.col], err)
		}
		values[i] = v
	}

	return types.OHLCV{
		Timestamp: timestamp,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}

func (p *CSVProvider) parseTimestamp(raw string) (time.Time, error) {
	if p.mapping.DateFormat != "" {
		return time.Parse(p.mapping.DateFormat, raw)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
