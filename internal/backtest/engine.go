// Package backtest drives the day-by-day simulation loop: preload history,
// fan analysts out over a bounded worker pool, aggregate their signals into
// decisions, and mark the portfolio at each close.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hedgefund-go/internal/analyst"
	"hedgefund-go/internal/manager"
	"hedgefund-go/internal/marketdata"
	"hedgefund-go/internal/metrics"
	"hedgefund-go/internal/portfolio"
	"hedgefund-go/internal/risk"
	"hedgefund-go/internal/signal"
)

// Options carries everything an Engine needs. Provider, Analysts, and
// Ledger are required; Recorder is optional.
type Options struct {
	Provider marketdata.Provider
	Analysts *analyst.Registry
	Limiter  risk.Limiter
	Manager  manager.Manager
	Ledger   *portfolio.Ledger
	Recorder Recorder
	Logger   zerolog.Logger

	Tickers        []string
	Start          time.Time
	End            time.Time
	WarmupDays     int
	Workers        int
	AnalystTimeout time.Duration
}

// Engine runs one backtest from Start through End inclusive.
type Engine struct {
	provider marketdata.Provider
	analysts *analyst.Registry
	limiter  risk.Limiter
	manager  manager.Manager
	ledger   *portfolio.Ledger
	recorder Recorder
	log      zerolog.Logger

	tickers        []string
	start          time.Time
	end            time.Time
	warmupDays     int
	workers        int
	analystTimeout time.Duration

	trades []Trade
}

// New validates the options and builds an engine. Dates are normalized to
// UTC midnight; zero tuning knobs fall back to sane defaults.
func New(opts Options) (*Engine, error) {
	if opts.Provider == nil {
		return nil, errors.New("backtest: provider is required")
	}
	if opts.Analysts == nil || len(opts.Analysts.List()) == 0 {
		return nil, errors.New("backtest: at least one analyst is required")
	}
	if opts.Ledger == nil {
		return nil, errors.New("backtest: ledger is required")
	}
	if len(opts.Tickers) == 0 {
		return nil, errors.New("backtest: ticker universe is empty")
	}
	start, end := marketdata.Day(opts.Start), marketdata.Day(opts.End)
	if end.Before(start) {
		return nil, fmt.Errorf("backtest: end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	if opts.WarmupDays <= 0 {
		opts.WarmupDays = 90
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.AnalystTimeout <= 0 {
		opts.AnalystTimeout = 30 * time.Second
	}

	tickers := make([]string, len(opts.Tickers))
	copy(tickers, opts.Tickers)
	sort.Strings(tickers)

	return &Engine{
		provider:       opts.Provider,
		analysts:       opts.Analysts,
		limiter:        opts.Limiter,
		manager:        opts.Manager,
		ledger:         opts.Ledger,
		recorder:       opts.Recorder,
		log:            opts.Logger,
		tickers:        tickers,
		start:          start,
		end:            end,
		warmupDays:     opts.WarmupDays,
		workers:        opts.Workers,
		analystTimeout: opts.AnalystTimeout,
	}, nil
}

// history is one ticker's preloaded bars plus a cursor marking how much of
// the series is visible so far.
type history struct {
	bars []marketdata.Price
	upto int // bars[:upto] are on or before the current day
}

// Run executes the simulation and returns the full report. Preload failures
// are fatal; per-analyst failures inside the loop degrade to no-opinion.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	histories, days, err := e.preload(ctx)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("backtest: no trading days between %s and %s",
			e.start.Format("2006-01-02"), e.end.Format("2006-01-02"))
	}
	e.log.Info().
		Int("trading_days", len(days)).
		Int("tickers", len(e.tickers)).
		Msg("starting backtest")

	// Marks carry the last known close for every ticker so equity never
	// drops to cost basis just because a ticker skipped a session.
	marks := make(map[string]float64, len(e.tickers))
	for _, ticker := range e.tickers {
		h := histories[ticker]
		for h.upto < len(h.bars) && h.bars[h.upto].Date.Before(days[0]) {
			marks[ticker] = h.bars[h.upto].Close
			h.upto++
		}
	}

	report := &Report{
		Start:       e.start,
		End:         e.end,
		Tickers:     e.tickers,
		InitialCash: e.ledger.InitialCash(),
	}

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var active []string
		for _, ticker := range e.tickers {
			h := histories[ticker]
			for h.upto < len(h.bars) && !h.bars[h.upto].Date.After(day) {
				marks[ticker] = h.bars[h.upto].Close
				h.upto++
			}
			if h.upto > 0 && h.bars[h.upto-1].Date.Equal(day) {
				active = append(active, ticker)
			}
		}

		signals := e.gatherSignals(ctx, day, active, histories)

		for _, ticker := range active {
			sigs, ok := signals[ticker]
			if !ok {
				continue
			}
			e.applyDecision(day, ticker, sigs, marks, histories[ticker])
		}

		snap := e.ledger.Snapshot(marks)
		metrics.PortfolioEquity.Set(snap.Equity)
		report.Series = append(report.Series, DailyValue{
			Date:          day,
			Cash:          snap.Cash,
			Equity:        snap.Equity,
			LongExposure:  snap.LongExposure,
			ShortExposure: snap.ShortExposure,
			GrossExposure: snap.LongExposure + snap.ShortExposure,
			NetExposure:   snap.LongExposure - snap.ShortExposure,
		})
	}

	report.Final = e.ledger.Snapshot(marks)
	report.Summary = Summarize(report.InitialCash, report.Series)
	report.Trades = e.trades

	e.log.Info().
		Float64("final_equity", report.Summary.FinalEquity).
		Float64("total_return", report.Summary.TotalReturn).
		Float64("max_drawdown", report.Summary.MaxDrawdown).
		Msg("backtest complete")
	return report, nil
}

// preload fetches warmup plus in-range bars for every ticker and derives the
// trading calendar as the union of bar dates inside the range.
func (e *Engine) preload(ctx context.Context) (map[string]*history, []time.Time, error) {
	histStart := e.start.AddDate(0, 0, -e.warmupDays)
	histories := make(map[string]*history, len(e.tickers))
	daySet := make(map[time.Time]struct{})

	for _, ticker := range e.tickers {
		bars, err := e.provider.Prices(ctx, ticker, histStart, e.end)
		if err != nil {
			return nil, nil, fmt.Errorf("preload %s: %w", ticker, err)
		}
		for i := range bars {
			bars[i].Date = marketdata.Day(bars[i].Date)
		}
		sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
		histories[ticker] = &history{bars: bars}
		for _, b := range bars {
			if !b.Date.Before(e.start) && !b.Date.After(e.end) {
				daySet[b.Date] = struct{}{}
			}
		}
	}

	days := make([]time.Time, 0, len(daySet))
	for d := range daySet {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return histories, days, nil
}

// gatherSignals fans every (ticker, analyst) pair out over the worker pool
// and joins before returning, so no ledger mutation overlaps an evaluation.
// A ticker whose signals include an invalid one is dropped for the day.
func (e *Engine) gatherSignals(ctx context.Context, day time.Time, active []string, histories map[string]*history) map[string][]signal.Signal {
	analysts := e.analysts.All()
	results := make([][]signal.Signal, len(active))
	for i := range results {
		results[i] = make([]signal.Signal, len(analysts))
	}

	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup
	for ti, ticker := range active {
		h := histories[ticker]
		win := marketdata.NewWindow(e.provider, day, h.bars[:h.upto])
		for ai, a := range analysts {
			wg.Add(1)
			sem <- struct{}{}
			go func(ti, ai int, ticker string, a analyst.Analyst, win *marketdata.Window) {
				defer wg.Done()
				defer func() { <-sem }()

				callCtx, cancel := context.WithTimeout(ctx, e.analystTimeout)
				defer cancel()
				sig, err := a.Evaluate(callCtx, ticker, win)
				if err != nil {
					metrics.AnalystFailuresTotal.WithLabelValues(a.Name()).Inc()
					e.log.Warn().Err(err).
						Str("analyst", a.Name()).
						Str("ticker", ticker).
						Time("day", day).
						Msg("analyst evaluation failed")
					sig = signal.NoOpinion(ticker, a.Name(), day)
				} else {
					metrics.SignalsTotal.WithLabelValues(a.Name(), string(sig.Stance)).Inc()
				}
				results[ti][ai] = sig
			}(ti, ai, ticker, a, win)
		}
	}
	wg.Wait()

	out := make(map[string][]signal.Signal, len(active))
	for ti, ticker := range active {
		valid := true
		for _, sig := range results[ti] {
			if err := sig.Validate(); err != nil {
				e.log.Warn().Err(err).
					Str("analyst", sig.Analyst).
					Str("ticker", ticker).
					Msg("dropping ticker for the day on invalid signal")
				valid = false
				break
			}
		}
		if valid {
			out[ticker] = results[ti]
		}
	}
	return out
}

// applyDecision runs risk sizing and aggregation for one ticker and commits
// the resulting decision to the ledger.
func (e *Engine) applyDecision(day time.Time, ticker string, sigs []signal.Signal, marks map[string]float64, h *history) {
	price := marks[ticker]
	if price <= 0 {
		return
	}

	snap := e.ledger.Snapshot(marks)

	// Risk sizing must not see the current day's bar; only the analysts
	// evaluate against the day's close.
	hist := h.bars[:h.upto]
	if n := len(hist); n > 0 && hist[n-1].Date.Equal(day) {
		hist = hist[:n-1]
	}
	limit := e.limiter.LimitFor(snap, hist)
	dec := e.manager.Decide(ticker, sigs, limit, snap, price)
	metrics.DecisionsTotal.WithLabelValues(ticker, string(dec.Action)).Inc()
	if dec.Action == portfolio.Hold {
		return
	}

	out, err := e.ledger.Apply(ticker, dec, price)
	if err != nil {
		e.log.Error().Err(err).
			Str("ticker", ticker).
			Str("action", string(dec.Action)).
			Int("qty", dec.Qty).
			Msg("ledger rejected decision")
		return
	}
	if out.Applied.Qty == 0 {
		return
	}

	trade := Trade{
		Date:        day,
		Ticker:      ticker,
		Action:      out.Applied.Action,
		Requested:   dec.Qty,
		Applied:     out.Applied.Qty,
		Price:       price,
		RealizedPnL: out.RealizedPnL,
	}
	e.trades = append(e.trades, trade)
	if e.recorder != nil {
		e.recorder.Record(trade)
	}
	e.log.Debug().
		Str("ticker", ticker).
		Str("action", string(trade.Action)).
		Int("qty", trade.Applied).
		Float64("price", price).
		Bool("clamped", out.Clamped).
		Msg("decision applied")
}
