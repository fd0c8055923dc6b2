package marketdata

import (
	"context"
	"time"
)

// Window is the bounded view of history an analyst may consult for one
// evaluation. Every provider call made through it has its end date clamped
// to the as-of date, so data from after the simulated day is unreachable by
// construction rather than by convention.
type Window struct {
	provider Provider
	asOf     time.Time
	prices   []Price // through the asOf close, ascending by date
}

// NewWindow builds a window as of the given day. prices holds the bars
// through the as-of day's close, never beyond; the slice is copied.
func NewWindow(provider Provider, asOf time.Time, prices []Price) *Window {
	cp := make([]Price, len(prices))
	copy(cp, prices)
	return &Window{provider: provider, asOf: Day(asOf), prices: cp}
}

// AsOf returns the simulated day the window is anchored to.
func (w *Window) AsOf() time.Time { return w.asOf }

// Prices returns the daily bars through the as-of close. Callers must treat
// the slice as read-only.
func (w *Window) Prices() []Price { return w.prices }

// LastClose returns the most recent close in the window, or false when no
// history is available.
func (w *Window) LastClose() (float64, bool) {
	if len(w.prices) == 0 {
		return 0, false
	}
	return w.prices[len(w.prices)-1].Close, true
}

// LineItems fetches financial-statement figures reported at or before the
// as-of date.
func (w *Window) LineItems(ctx context.Context, ticker string, items []string, period string, limit int) ([]LineItem, error) {
	return w.provider.LineItems(ctx, ticker, items, period, w.asOf, limit)
}

// News fetches company news published at or before the as-of date.
func (w *Window) News(ctx context.Context, ticker string, limit int) ([]NewsItem, error) {
	return w.provider.News(ctx, ticker, w.asOf, limit)
}

// InsiderTrades fetches insider filings dated at or before the as-of date.
func (w *Window) InsiderTrades(ctx context.Context, ticker string, limit int) ([]InsiderTrade, error) {
	return w.provider.InsiderTrades(ctx, ticker, w.asOf, limit)
}
