// Binary backtester runs one simulation over the configured universe and
// date range, then writes the report to disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"hedgefund-go/internal/analyst"
	"hedgefund-go/internal/backtest"
	"hedgefund-go/internal/config"
	"hedgefund-go/internal/manager"
	"hedgefund-go/internal/marketdata"
	"hedgefund-go/internal/metrics"
	"hedgefund-go/internal/portfolio"
	"hedgefund-go/internal/risk"
	"hedgefund-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	flag.Parse()

	// .env is optional; the config file may also carry the API key.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := util.NewLogger("info")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	if cfg.App.MetricsAddr != "" {
		_ = metrics.Serve(cfg.App.MetricsAddr)
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := buildProvider(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build market data provider")
	}

	start, end, err := cfg.Backtest.Range()
	if err != nil {
		log.Fatal().Err(err).Msg("parse backtest range")
	}

	maxAlloc := cfg.Risk.MaxAllocationPct
	if maxAlloc <= 0 && len(cfg.Backtest.Tickers) > 0 {
		maxAlloc = 1.0 / float64(len(cfg.Backtest.Tickers))
	}

	var recorder backtest.Recorder
	if cfg.Backtest.TradesPath != "" {
		jsonl, err := backtest.NewJSONLRecorder(cfg.Backtest.TradesPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open trade recorder")
		}
		defer jsonl.Close()
		recorder = jsonl
	}

	engine, err := backtest.New(backtest.Options{
		Provider: provider,
		Analysts: analyst.Build(cfg.Analysts.Enabled, analystParams(cfg)),
		Limiter:  risk.NewLimiter(maxAlloc, cfg.Risk.VolTarget, cfg.Risk.VolWindow, cfg.Risk.MinObservations),
		Manager:  manager.New(cfg.Backtest.MarginRatio),
		Ledger:   portfolio.NewLedger(cfg.Backtest.InitialCash, cfg.Backtest.MarginRatio, cfg.Backtest.Tickers),
		Recorder: recorder,
		Logger:   log,

		Tickers:        cfg.Backtest.Tickers,
		Start:          start,
		End:            end,
		WarmupDays:     cfg.Backtest.WarmupDays,
		Workers:        cfg.Backtest.Workers,
		AnalystTimeout: time.Duration(cfg.Backtest.AnalystTimeout) * time.Second,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build engine")
	}

	report, err := engine.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("backtest failed")
	}

	if cfg.Backtest.ReportPath != "" {
		if err := report.Save(cfg.Backtest.ReportPath); err != nil {
			log.Fatal().Err(err).Msg("write report")
		}
		log.Info().Str("path", cfg.Backtest.ReportPath).Msg("report written")
	}

	log.Info().
		Float64("total_return", report.Summary.TotalReturn).
		Float64("annualized_return", report.Summary.AnnualizedReturn).
		Float64("sharpe", report.Summary.SharpeRatio).
		Float64("max_drawdown", report.Summary.MaxDrawdown).
		Float64("final_equity", report.Summary.FinalEquity).
		Msg("backtest summary")
}

// buildProvider wires the configured backend, wrapping it in the sqlite bar
// cache when a cache path is set.
func buildProvider(cfg *config.Config, log zerolog.Logger) (marketdata.Provider, error) {
	var provider marketdata.Provider
	switch cfg.Data.Provider {
	case marketdata.ProviderYahoo:
		provider = marketdata.NewYahoo(log)
	case marketdata.ProviderFinancialDatasets:
		apiKey := cfg.Data.APIKey
		if env := os.Getenv("FINANCIAL_DATASETS_API_KEY"); env != "" {
			apiKey = env
		}
		provider = marketdata.NewFinancialDatasets(cfg.Data.BaseURL, apiKey, 30*time.Second, log)
	case marketdata.ProviderStub, "":
		start, _, err := cfg.Backtest.Range()
		if err != nil {
			return nil, err
		}
		warmup := cfg.Backtest.WarmupDays
		if warmup <= 0 {
			warmup = 90
		}
		stub := marketdata.NewStub()
		for _, ticker := range cfg.Backtest.Tickers {
			stub.Seed(ticker, start.AddDate(0, 0, -warmup), warmup+366)
		}
		provider = stub
	default:
		return nil, fmt.Errorf("unknown data provider %q", cfg.Data.Provider)
	}

	if cfg.Data.CachePath != "" {
		cached, err := marketdata.NewSQLiteCache(cfg.Data.CachePath, provider, log)
		if err != nil {
			return nil, err
		}
		return cached, nil
	}
	return provider, nil
}

func analystParams(cfg *config.Config) analyst.Params {
	p := cfg.Analysts.Params
	return analyst.Params{
		MomentumLookback:    p.MomentumLookback,
		MomentumThreshold:   p.MomentumThreshold,
		MeanRevWindow:       p.MeanRevWindow,
		MeanRevZEntry:       p.MeanRevZEntry,
		FundamentalsMargin:  p.FundamentalsMargin,
		FundamentalsGrowth:  p.FundamentalsGrowth,
		ValuationYieldFloor: p.ValuationYieldFloor,
		SentimentNewsWeight: p.SentimentNewsWeight,
		SentimentInsiderWgt: p.SentimentInsiderWgt,
	}
}
