// Package config loads the trading assistant configuration from a JSON
// file plus a .env file for exchange credentials. Every field has a
// documented default so an empty config file yields a runnable paper
// setup.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ducminhle1904/crypto-trading-assistant/internal/errors"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/exchange/bybit"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/exchange/factory"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/exchange/paper"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/risk"
	"github.com/ducminhle1904/crypto-trading-assistant/internal/strategy"
)

// ExchangeConfig selects and parameterizes the trading venue. API
// credentials are never read from the JSON file; they come from the
// environment (BYBIT_API_KEY, BYBIT_API_SECRET), typically via .env.
type ExchangeConfig struct {
	Venue    string `json:"venue"`    // "paper" or "bybit"
	Symbol   string `json:"symbol"`   // default trading pair, BASE/QUOTE
	Testnet  bool   `json:"testnet"`  // bybit only
	Demo     bool   `json:"demo"`     // bybit demo trading environment
	Category string `json:"category"` // bybit product category, "spot" or "linear"

	// Paper venue parameters. Zero means the venue default.
	InitialBalance float64 `json:"initial_balance"`
	CommissionRate float64 `json:"commission_rate"`
	SlippageRate   float64 `json:"slippage_rate"`
}

// BacktestConfig parameterizes cmd/backtest runs.
type BacktestConfig struct {
	DataFile       string  `json:"data_file"`
	Symbol         string  `json:"symbol"`
	InitialBalance float64 `json:"initial_balance"`
	Commission     float64 `json:"commission"` // 0 means default, negative means zero
	Slippage       float64 `json:"slippage"`
	RiskPct        float64 `json:"risk_pct"`
	StopLossPct    float64 `json:"stop_loss_pct"`
	TakeProfitPct  float64 `json:"take_profit_pct"`
	WarmupBars     int     `json:"warmup_bars"`
}

// MonitoringConfig controls the Prometheus metrics endpoint.
type MonitoringConfig struct {
	Enabled    bool   `json:"enabled"`
	ListenAddr string `json:"listen_addr"`
}

// Config is the full application configuration.
type Config struct {
	Exchange   ExchangeConfig   `json:"exchange"`
	Risk       risk.Limits      `json:"risk"`
	Strategy   strategy.Config  `json:"strategy"`
	Backtest   BacktestConfig   `json:"backtest"`
	Monitoring MonitoringConfig `json:"monitoring"`
}

// Default returns the baseline configuration: paper venue, BTC/USDT,
// the documented risk limit defaults, and monitoring on :9090.
func Default() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			Venue:  "paper",
			Symbol: "BTC/USDT",
		},
		Risk: risk.DefaultLimits(),
		Strategy: strategy.Config{
			Rule: strategy.RuleSMACrossover,
		},
		Backtest: BacktestConfig{
			InitialBalance: 10000,
		},
		Monitoring: MonitoringConfig{
			Enabled:    true,
			ListenAddr: ":9090",
		},
	}
}

// Load reads the .env file (if present), then the JSON config file at
// path (empty path skips the file and keeps defaults), applies
// credential overrides from the environment, and validates the result.
func Load(path string) (*Config, error) {
	// Missing .env is fine; credentials may come from the real environment.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.NewConfigurationError("config", "load",
				fmt.Sprintf("could not read config file %s: %v", path, err))
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.NewConfigurationError("config", "load",
				fmt.Sprintf("could not parse config file %s: %v", path, err))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails fast on limits and venue parameters that would only
// surface as runtime errors later.
func (c *Config) Validate() error {
	// Limits validation already yields a categorized configuration error.
	if _, err := risk.NewManager(c.Risk); err != nil {
		return err
	}
	if c.Exchange.Venue != "" && !isSupportedVenue(c.Exchange.Venue) {
		return errors.NewConfigurationError("config", "validate",
			fmt.Sprintf("unknown venue %q", c.Exchange.Venue))
	}
	if c.Backtest.InitialBalance < 0 {
		return errors.NewConfigurationError("config", "validate",
			"backtest initial balance cannot be negative")
	}
	if c.Monitoring.Enabled && c.Monitoring.ListenAddr == "" {
		return errors.NewConfigurationError("config", "validate",
			"monitoring enabled without a listen address")
	}
	return nil
}

// VenueConfig translates the exchange section into a factory config,
// pulling Bybit credentials from the environment.
func (c *Config) VenueConfig() factory.Config {
	fc := factory.Config{Venue: c.Exchange.Venue}
	switch c.Exchange.Venue {
	case "bybit":
		fc.Bybit = &bybit.Config{
			APIKey:    os.Getenv("BYBIT_API_KEY"),
			APISecret: os.Getenv("BYBIT_API_SECRET"),
			Testnet:   c.Exchange.Testnet,
			Demo:      c.Exchange.Demo,
			Category:  c.Exchange.Category,
		}
	default:
		pc := &paper.Config{
			CommissionRate: c.Exchange.CommissionRate,
			SlippageRate:   c.Exchange.SlippageRate,
		}
		if c.Exchange.InitialBalance > 0 {
			pc.InitialBalance = map[string]float64{"USDT": c.Exchange.InitialBalance}
		}
		fc.Paper = pc
	}
	return fc
}

func isSupportedVenue(venue string) bool {
	for _, v := range factory.SupportedVenues() {
		if v == venue {
			return true
		}
	}
	return false
}
