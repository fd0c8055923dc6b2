package integration

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"hedgefund-go/internal/analyst"
	"hedgefund-go/internal/backtest"
	"hedgefund-go/internal/manager"
	"hedgefund-go/internal/marketdata"
	"hedgefund-go/internal/portfolio"
	"hedgefund-go/internal/risk"
)

// Exercises the full pipeline: seeded stub data, every analyst, risk
// sizing, aggregation, and the ledger, over a multi-ticker universe.
func TestBacktestFlowEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tickers := []string{"AAPL", "MSFT", "NVDA"}
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC)

	stub := marketdata.NewStub()
	for _, ticker := range tickers {
		stub.Seed(ticker, start.AddDate(0, 0, -60), 130)
	}
	stub.SetLineItems("AAPL", []marketdata.LineItem{
		{Ticker: "AAPL", Name: "revenue", Value: 120, ReportPeriod: "2023-12-31", Period: "ttm"},
		{Ticker: "AAPL", Name: "revenue", Value: 100, ReportPeriod: "2023-09-30", Period: "ttm"},
		{Ticker: "AAPL", Name: "net_income", Value: 24, ReportPeriod: "2023-12-31", Period: "ttm"},
		{Ticker: "AAPL", Name: "earnings_per_share", Value: 6, ReportPeriod: "2023-12-31", Period: "ttm"},
	})
	stub.SetNews("MSFT", []marketdata.NewsItem{
		{Ticker: "MSFT", Date: start.AddDate(0, 0, -5), Sentiment: "positive"},
		{Ticker: "MSFT", Date: start.AddDate(0, 0, -3), Sentiment: "positive"},
	})
	stub.SetInsiderTrades("NVDA", []marketdata.InsiderTrade{
		{Ticker: "NVDA", FilingDate: start.AddDate(0, 0, -10), TransactionShares: -5000},
	})

	initialCash := 100000.0
	ledger := portfolio.NewLedger(initialCash, 0.5, tickers)

	engine, err := backtest.New(backtest.Options{
		Provider: stub,
		Analysts: analyst.Build(nil, analyst.Params{}),
		Limiter:  risk.NewLimiter(1.0/float64(len(tickers)), 0.05, 20, 5),
		Manager:  manager.New(0.5),
		Ledger:   ledger,
		Logger:   zerolog.Nop(),
		Tickers:  tickers,
		Start:    start,
		End:      end,
		Workers:  3,
	})
	if err != nil {
		t.Fatalf("backtest.New returned error: %v", err)
	}

	report, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if report.Summary.TradingDays == 0 {
		t.Fatalf("expected a non-empty trading calendar")
	}
	if len(report.Series) != report.Summary.TradingDays {
		t.Fatalf("series length %d disagrees with trading days %d",
			len(report.Series), report.Summary.TradingDays)
	}
	if report.InitialCash != initialCash {
		t.Fatalf("unexpected initial cash %.2f", report.InitialCash)
	}

	for i, dv := range report.Series {
		if dv.Cash < 0 {
			t.Fatalf("cash went negative on %s: %.4f", dv.Date, dv.Cash)
		}
		if i > 0 && !report.Series[i-1].Date.Before(dv.Date) {
			t.Fatalf("series dates out of order at index %d", i)
		}
	}

	final := report.Final
	if final.Equity != report.Summary.FinalEquity {
		t.Fatalf("final snapshot equity %.4f disagrees with summary %.4f",
			final.Equity, report.Summary.FinalEquity)
	}
	for ticker, pv := range final.Positions {
		if pv.LongShares < 0 || pv.ShortShares < 0 {
			t.Fatalf("negative position for %s: %+v", ticker, pv)
		}
		if pv.LongShares > 0 && pv.ShortShares > 0 {
			t.Fatalf("%s holds long and short simultaneously", ticker)
		}
	}

	// A second identical run must reproduce the exact series.
	ledger2 := portfolio.NewLedger(initialCash, 0.5, tickers)
	engine2, err := backtest.New(backtest.Options{
		Provider: stub,
		Analysts: analyst.Build(nil, analyst.Params{}),
		Limiter:  risk.NewLimiter(1.0/float64(len(tickers)), 0.05, 20, 5),
		Manager:  manager.New(0.5),
		Ledger:   ledger2,
		Logger:   zerolog.Nop(),
		Tickers:  []string{"NVDA", "AAPL", "MSFT"}, // order must not matter
		Start:    start,
		End:      end,
		Workers:  1,
	})
	if err != nil {
		t.Fatalf("backtest.New returned error: %v", err)
	}
	report2, err := engine2.Run(ctx)
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}
	if len(report2.Series) != len(report.Series) {
		t.Fatalf("rerun series length mismatch: %d vs %d", len(report2.Series), len(report.Series))
	}
	for i := range report.Series {
		if report.Series[i].Equity != report2.Series[i].Equity {
			t.Fatalf("rerun diverged on %s: %.6f vs %.6f",
				report.Series[i].Date, report.Series[i].Equity, report2.Series[i].Equity)
		}
	}
}
