// Package marketdata hosts the read-only data-access layer: pluggable price
// and fundamentals providers plus the look-ahead-safe window handed to
// analysts.
package marketdata

import (
	"context"
	"time"
)

const (
	// ProviderStub serves deterministic synthetic data (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderFinancialDatasets pulls from the Financial Datasets paid API.
	ProviderFinancialDatasets = "financialdatasets"
	// ProviderYahoo pulls free consumer data from Yahoo Finance.
	ProviderYahoo = "yahoo"
)

// Price is one daily OHLCV bar.
type Price struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// LineItem is a single financial-statement figure for one report period.
type LineItem struct {
	Ticker       string  `json:"ticker"`
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	ReportPeriod string  `json:"report_period"` // YYYY-MM-DD
	Period       string  `json:"period"`        // ttm, annual, quarterly
	Currency     string  `json:"currency"`
}

// NewsItem is one news article about a company. Sentiment is the upstream
// classification ("positive", "negative", "neutral") or empty when unknown.
type NewsItem struct {
	Ticker    string    `json:"ticker"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Source    string    `json:"source"`
	Date      time.Time `json:"date"`
	URL       string    `json:"url"`
	Sentiment string    `json:"sentiment"`
}

// InsiderTrade is one insider filing. Negative TransactionShares means a sale.
type InsiderTrade struct {
	Ticker            string    `json:"ticker"`
	Name              string    `json:"name"`
	Title             string    `json:"title"`
	FilingDate        time.Time `json:"filing_date"`
	TransactionShares float64   `json:"transaction_shares"`
	TransactionValue  float64   `json:"transaction_value"`
}

// Provider abstracts a market/fundamentals data backend. Implementations
// must expose identical shapes so the engine depends only on this interface,
// never on a concrete backend.
type Provider interface {
	// Name returns the provider identifier (e.g. "financialdatasets", "yahoo").
	Name() string

	// Prices returns daily bars for ticker within [start, end], ordered by date.
	Prices(ctx context.Context, ticker string, start, end time.Time) ([]Price, error)

	// LineItems returns the requested financial-statement figures with report
	// periods at or before end.
	LineItems(ctx context.Context, ticker string, items []string, period string, end time.Time, limit int) ([]LineItem, error)

	// News returns company news published at or before end, newest first.
	News(ctx context.Context, ticker string, end time.Time, limit int) ([]NewsItem, error)

	// InsiderTrades returns insider filings dated at or before end, newest first.
	InsiderTrades(ctx context.Context, ticker string, end time.Time, limit int) ([]InsiderTrade, error)
}

// Day normalizes a timestamp to its UTC calendar day. All provider and
// engine date keys go through this so bars from different backends compare
// equal.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
