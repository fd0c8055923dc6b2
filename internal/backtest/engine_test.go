package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"hedgefund-go/internal/analyst"
	"hedgefund-go/internal/manager"
	"hedgefund-go/internal/marketdata"
	"hedgefund-go/internal/portfolio"
	"hedgefund-go/internal/risk"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rampBars(start time.Time, days int, first, step float64) []marketdata.Price {
	out := make([]marketdata.Price, days)
	px := first
	for i := range out {
		out[i] = marketdata.Price{Date: start.AddDate(0, 0, i), Close: px, Volume: 1000}
		px += step
	}
	return out
}

func momentumOnly(t *testing.T) *analyst.Registry {
	t.Helper()
	return analyst.Build([]string{"momentum"}, analyst.Params{
		MomentumLookback:  5,
		MomentumThreshold: 0.05,
	})
}

func newTestEngine(t *testing.T, provider marketdata.Provider, ledger *portfolio.Ledger, tickers []string, start, end time.Time) *Engine {
	t.Helper()
	eng, err := New(Options{
		Provider:   provider,
		Analysts:   momentumOnly(t),
		Limiter:    risk.NewLimiter(1.0, 0, 20, 5),
		Manager:    manager.New(0.5),
		Ledger:     ledger,
		Logger:     zerolog.Nop(),
		Tickers:    tickers,
		Start:      start,
		End:        end,
		WarmupDays: 30,
		Workers:    2,
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return eng
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{})
	if err == nil {
		t.Fatalf("expected error without provider")
	}

	stub := marketdata.NewStub()
	_, err = New(Options{
		Provider: stub,
		Analysts: momentumOnly(t),
		Ledger:   portfolio.NewLedger(1000, 0.5, []string{"AAPL"}),
		Tickers:  []string{"AAPL"},
		Start:    day(2024, 3, 1),
		End:      day(2024, 2, 1),
	})
	if err == nil {
		t.Fatalf("expected error when end precedes start")
	}
}

func TestRunBuysIntoUptrend(t *testing.T) {
	start, end := day(2024, 2, 1), day(2024, 2, 20)
	stub := marketdata.NewStub()
	stub.SetPrices("AAPL", rampBars(day(2024, 1, 2), 50, 100, 1))

	ledger := portfolio.NewLedger(10000, 0.5, []string{"AAPL"})
	eng := newTestEngine(t, stub, ledger, []string{"AAPL"}, start, end)

	report, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if report.Summary.TradingDays != 20 {
		t.Fatalf("expected 20 trading days, got %d", report.Summary.TradingDays)
	}
	if len(report.Trades) == 0 {
		t.Fatalf("expected at least one trade in a steady uptrend")
	}
	if report.Trades[0].Action != portfolio.Buy {
		t.Fatalf("expected first trade to be a buy, got %s", report.Trades[0].Action)
	}
	if report.Summary.FinalEquity <= report.InitialCash {
		t.Fatalf("expected riding an uptrend to grow equity, final %.2f initial %.2f",
			report.Summary.FinalEquity, report.InitialCash)
	}
}

func TestRunHoldsOnFlatPrices(t *testing.T) {
	start, end := day(2024, 2, 1), day(2024, 2, 10)
	stub := marketdata.NewStub()
	stub.SetPrices("AAPL", rampBars(day(2024, 1, 2), 45, 100, 0))

	ledger := portfolio.NewLedger(10000, 0.5, []string{"AAPL"})
	eng := newTestEngine(t, stub, ledger, []string{"AAPL"}, start, end)

	report, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(report.Trades) != 0 {
		t.Fatalf("expected no trades on flat prices, got %d", len(report.Trades))
	}
	for _, dv := range report.Series {
		if dv.Equity != 10000 {
			t.Fatalf("equity should sit at initial cash, got %.2f on %s", dv.Equity, dv.Date)
		}
	}
}

// Bars dated after the run window must not influence any decision: two
// providers that agree through the end date but diverge afterwards have to
// produce identical equity series.
func TestRunIgnoresFutureBars(t *testing.T) {
	start, end := day(2024, 2, 1), day(2024, 2, 15)
	shared := rampBars(day(2024, 1, 2), 45, 100, 0.5)

	clean := marketdata.NewStub()
	clean.SetPrices("AAPL", shared)

	polluted := marketdata.NewStub()
	withFuture := append(append([]marketdata.Price{}, shared...),
		rampBars(day(2024, 2, 17), 10, 50, -3)...)
	polluted.SetPrices("AAPL", withFuture)

	runSeries := func(p marketdata.Provider) []DailyValue {
		ledger := portfolio.NewLedger(10000, 0.5, []string{"AAPL"})
		eng := newTestEngine(t, p, ledger, []string{"AAPL"}, start, end)
		report, err := eng.Run(context.Background())
		if err != nil {
			t.Fatalf("Run error: %v", err)
		}
		return report.Series
	}

	a, b := runSeries(clean), runSeries(polluted)
	if len(a) != len(b) {
		t.Fatalf("series length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Equity != b[i].Equity || a[i].Cash != b[i].Cash {
			t.Fatalf("series diverged on %s: %.4f vs %.4f", a[i].Date, a[i].Equity, b[i].Equity)
		}
	}
}

// Risk sizing sees history only through the prior session. With exactly
// nine bars before the first trading day and a ten-observation minimum, the
// limiter must size day one at zero and first allow a trade on day two.
func TestRunLimiterExcludesCurrentDay(t *testing.T) {
	start, end := day(2024, 2, 1), day(2024, 2, 5)
	stub := marketdata.NewStub()
	stub.SetPrices("AAPL", rampBars(day(2024, 1, 23), 20, 100, 1))

	ledger := portfolio.NewLedger(10000, 0.5, []string{"AAPL"})
	eng, err := New(Options{
		Provider:   stub,
		Analysts:   momentumOnly(t),
		Limiter:    risk.NewLimiter(1.0, 0, 20, 10),
		Manager:    manager.New(0.5),
		Ledger:     ledger,
		Logger:     zerolog.Nop(),
		Tickers:    []string{"AAPL"},
		Start:      start,
		End:        end,
		WarmupDays: 30,
		Workers:    2,
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	report, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(report.Trades) == 0 {
		t.Fatalf("expected trades once enough history accumulates")
	}
	first := report.Trades[0]
	if first.Date.Equal(start) {
		t.Fatalf("traded on the first day with only 9 prior closes, limiter saw the current bar")
	}
	if want := day(2024, 2, 2); !first.Date.Equal(want) {
		t.Fatalf("expected first trade on %s, got %s", want, first.Date)
	}
}

func TestRunCanceledContext(t *testing.T) {
	stub := marketdata.NewStub()
	stub.SetPrices("AAPL", rampBars(day(2024, 1, 2), 45, 100, 1))
	ledger := portfolio.NewLedger(10000, 0.5, []string{"AAPL"})
	eng := newTestEngine(t, stub, ledger, []string{"AAPL"}, day(2024, 2, 1), day(2024, 2, 10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := eng.Run(ctx); err == nil {
		t.Fatalf("expected error from canceled context")
	}
}

func TestRunErrorsWithoutBars(t *testing.T) {
	ledger := portfolio.NewLedger(10000, 0.5, []string{"AAPL"})
	eng := newTestEngine(t, marketdata.NewStub(), ledger, []string{"AAPL"}, day(2024, 2, 1), day(2024, 2, 10))
	if _, err := eng.Run(context.Background()); err == nil {
		t.Fatalf("expected error when no trading days exist")
	}
}
