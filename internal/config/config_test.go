package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "hedgefund-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.MetricsAddr != ":9100" {
		t.Fatalf("unexpected App.MetricsAddr: %s", cfg.App.MetricsAddr)
	}
	if cfg.Data.Provider != "stub" {
		t.Fatalf("unexpected Data.Provider: %s", cfg.Data.Provider)
	}
	if len(cfg.Backtest.Tickers) != 2 || cfg.Backtest.Tickers[0] != "AAPL" {
		t.Fatalf("unexpected tickers: %+v", cfg.Backtest.Tickers)
	}
	if cfg.Backtest.InitialCash != 100000 {
		t.Fatalf("unexpected initial cash: %.2f", cfg.Backtest.InitialCash)
	}
	if cfg.Backtest.MarginRatio != 0.5 {
		t.Fatalf("unexpected margin ratio: %.2f", cfg.Backtest.MarginRatio)
	}
	if cfg.Backtest.Workers != 4 {
		t.Fatalf("unexpected workers: %d", cfg.Backtest.Workers)
	}
	if cfg.Risk.MaxAllocationPct != 0.5 {
		t.Fatalf("unexpected max allocation: %.2f", cfg.Risk.MaxAllocationPct)
	}
	if cfg.Risk.VolTarget != 0.02 {
		t.Fatalf("unexpected vol target: %.4f", cfg.Risk.VolTarget)
	}
	if len(cfg.Analysts.Enabled) != 2 || cfg.Analysts.Enabled[1] != "sentiment" {
		t.Fatalf("unexpected enabled analysts: %+v", cfg.Analysts.Enabled)
	}
	if cfg.Analysts.Params.MomentumLookback != 20 {
		t.Fatalf("unexpected momentum lookback: %d", cfg.Analysts.Params.MomentumLookback)
	}
	if cfg.Analysts.Params.SentimentInsiderWgt != 0.3 {
		t.Fatalf("unexpected insider weight: %.2f", cfg.Analysts.Params.SentimentInsiderWgt)
	}

	start, end, err := cfg.Backtest.Range()
	if err != nil {
		t.Fatalf("Range returned error: %v", err)
	}
	if !start.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start: %s", start)
	}
	if !end.Equal(time.Date(2024, 3, 28, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end: %s", end)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestRangeRejectsBadDate(t *testing.T) {
	b := Backtest{StartDate: "January 2", EndDate: "2024-03-28"}
	if _, _, err := b.Range(); err == nil {
		t.Fatalf("expected error for malformed start date")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := &Config{
		App:      App{Name: "roundtrip", LogLevel: "info"},
		Backtest: Backtest{Tickers: []string{"NVDA"}, InitialCash: 2500},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.App.Name != "roundtrip" || loaded.Backtest.InitialCash != 2500 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}
