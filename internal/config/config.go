// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Data selects the market data backend and its connection details.
type Data struct {
	Provider  string `yaml:"provider"` // stub, financialdatasets, yahoo
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	CachePath string `yaml:"cache_path"` // sqlite bar cache, empty disables
}

// Backtest defines the simulation window, universe, and bankroll.
type Backtest struct {
	Tickers        []string `yaml:"tickers"`
	StartDate      string   `yaml:"start_date"` // YYYY-MM-DD
	EndDate        string   `yaml:"end_date"`   // YYYY-MM-DD
	InitialCash    float64  `yaml:"initial_cash"`
	MarginRatio    float64  `yaml:"margin_ratio"`
	WarmupDays     int      `yaml:"warmup_days"`
	Workers        int      `yaml:"workers"`
	AnalystTimeout int      `yaml:"analyst_timeout_secs"`
	TradesPath     string   `yaml:"trades_path"`
	ReportPath     string   `yaml:"report_path"`
}

// Risk encodes guard-rails for how much size any one ticker may take on.
type Risk struct {
	MaxAllocationPct float64 `yaml:"max_allocation_pct"`
	VolTarget        float64 `yaml:"vol_target"`
	VolWindow        int     `yaml:"vol_window"`
	MinObservations  int     `yaml:"min_observations"`
}

// Analysts specifies which analysts run along with their parameter bundle.
type Analysts struct {
	Enabled []string       `yaml:"enabled"`
	Params  AnalystsParams `yaml:"params"`
}

// AnalystsParams groups tunable knobs for the analyst implementations.
type AnalystsParams struct {
	MomentumLookback    int     `yaml:"momentum_lookback"`
	MomentumThreshold   float64 `yaml:"momentum_threshold"`
	MeanRevWindow       int     `yaml:"mean_rev_window"`
	MeanRevZEntry       float64 `yaml:"mean_rev_z_entry"`
	FundamentalsMargin  float64 `yaml:"fundamentals_margin"`
	FundamentalsGrowth  float64 `yaml:"fundamentals_growth"`
	ValuationYieldFloor float64 `yaml:"valuation_yield_floor"`
	SentimentNewsWeight float64 `yaml:"sentiment_news_weight"`
	SentimentInsiderWgt float64 `yaml:"sentiment_insider_weight"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Data     Data     `yaml:"data"`
	Backtest Backtest `yaml:"backtest"`
	Risk     Risk     `yaml:"risk"`
	Analysts Analysts `yaml:"analysts"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Range parses the configured start and end dates as UTC days.
func (b Backtest) Range() (start, end time.Time, err error) {
	start, err = time.ParseInLocation("2006-01-02", b.StartDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse start_date: %w", err)
	}
	end, err = time.ParseInLocation("2006-01-02", b.EndDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse end_date: %w", err)
	}
	return start, end, nil
}
