package marketdata

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
	"time"
)

// Compile-time interface check.
var _ Provider = (*Stub)(nil)

// Stub is an in-memory Provider emitting deterministic synthetic data. It
// backs tests and offline runs, and can be loaded with explicit fixtures.
type Stub struct {
	mu        sync.RWMutex
	prices    map[string][]Price
	lineItems map[string][]LineItem
	news      map[string][]NewsItem
	insiders  map[string][]InsiderTrade
}

// NewStub creates an empty stub provider.
func NewStub() *Stub {
	return &Stub{
		prices:    make(map[string][]Price),
		lineItems: make(map[string][]LineItem),
		news:      make(map[string][]NewsItem),
		insiders:  make(map[string][]InsiderTrade),
	}
}

// Name returns "stub".
func (s *Stub) Name() string { return ProviderStub }

// SetPrices replaces the bar fixtures for ticker. Bars must be ascending by date.
func (s *Stub) SetPrices(ticker string, bars []Price) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Price, len(bars))
	copy(cp, bars)
	s.prices[ticker] = cp
}

// SetLineItems replaces the line-item fixtures for ticker.
func (s *Stub) SetLineItems(ticker string, items []LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lineItems[ticker] = append([]LineItem(nil), items...)
}

// SetNews replaces the news fixtures for ticker.
func (s *Stub) SetNews(ticker string, items []NewsItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.news[ticker] = append([]NewsItem(nil), items...)
}

// SetInsiderTrades replaces the insider-trade fixtures for ticker.
func (s *Stub) SetInsiderTrades(ticker string, trades []InsiderTrade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insiders[ticker] = append([]InsiderTrade(nil), trades...)
}

// Seed generates a deterministic daily price walk for ticker covering days
// calendar days starting at start. The walk depends only on the ticker name,
// so repeated runs see identical data.
func (s *Stub) Seed(ticker string, start time.Time, days int) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(ticker))
	state := h.Sum64()

	px := 50.0 + float64(state%150)
	bars := make([]Price, 0, days)
	day := Day(start)
	for i := 0; i < days; i++ {
		state = state*6364136223846793005 + 1442695040888963407
		// Pseudo-random drift in roughly [-2%, +2.5%].
		drift := float64(state%451)/10000.0 - 0.02
		px *= 1 + drift
		px = math.Max(px, 1)
		bars = append(bars, Price{
			Date:   day,
			Open:   px * 0.995,
			High:   px * 1.01,
			Low:    px * 0.99,
			Close:  px,
			Volume: 1_000_000 + int64(state%9_000_000),
		})
		day = day.AddDate(0, 0, 1)
	}
	s.SetPrices(ticker, bars)
}

// Prices returns the fixture bars within [start, end].
func (s *Stub) Prices(_ context.Context, ticker string, start, end time.Time) ([]Price, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start, end = Day(start), Day(end)
	var out []Price
	for _, bar := range s.prices[ticker] {
		d := Day(bar.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, bar)
	}
	return out, nil
}

// LineItems returns fixtures with report periods at or before end.
func (s *Stub) LineItems(_ context.Context, ticker string, items []string, period string, end time.Time, limit int) ([]LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]struct{}, len(items))
	for _, it := range items {
		wanted[it] = struct{}{}
	}
	endDay := Day(end).Format("2006-01-02")
	var out []LineItem
	for _, li := range s.lineItems[ticker] {
		if _, ok := wanted[li.Name]; !ok {
			continue
		}
		if period != "" && li.Period != "" && li.Period != period {
			continue
		}
		if li.ReportPeriod > endDay {
			continue
		}
		out = append(out, li)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// News returns fixtures published at or before end.
func (s *Stub) News(_ context.Context, ticker string, end time.Time, limit int) ([]NewsItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	endDay := Day(end)
	var out []NewsItem
	for _, n := range s.news[ticker] {
		if Day(n.Date).After(endDay) {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// InsiderTrades returns fixtures filed at or before end.
func (s *Stub) InsiderTrades(_ context.Context, ticker string, end time.Time, limit int) ([]InsiderTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	endDay := Day(end)
	var out []InsiderTrade
	for _, tr := range s.insiders[ticker] {
		if Day(tr.FilingDate).After(endDay) {
			continue
		}
		out = append(out, tr)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
