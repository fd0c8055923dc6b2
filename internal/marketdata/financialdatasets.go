package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hedgefund-go/internal/metrics"
	"hedgefund-go/internal/util"
)

// Compile-time interface check.
var _ Provider = (*FinancialDatasets)(nil)

const (
	defaultFDBaseURL = "https://api.financialdatasets.ai"
	fdDateLayout     = "2006-01-02"
)

// FinancialDatasets is the paid data backend.
type FinancialDatasets struct {
	client *resty.Client
	log    zerolog.Logger
}

// NewFinancialDatasets builds a client against the Financial Datasets API.
// baseURL may be empty to use the production endpoint.
func NewFinancialDatasets(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *FinancialDatasets {
	if baseURL == "" {
		baseURL = defaultFDBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("X-API-KEY", apiKey)
	return &FinancialDatasets{client: client, log: log}
}

// Name returns "financialdatasets".
func (fd *FinancialDatasets) Name() string { return ProviderFinancialDatasets }

// Prices are parsed as decimals on the wire and converted once at the boundary.
type fdPrice struct {
	Time   string          `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

type fdPricesResponse struct {
	Prices []fdPrice `json:"prices"`
}

// Prices fetches daily bars for ticker within [start, end].
func (fd *FinancialDatasets) Prices(ctx context.Context, ticker string, start, end time.Time) ([]Price, error) {
	metrics.DataRequestsTotal.WithLabelValues(ProviderFinancialDatasets, "prices").Inc()

	var parsed fdPricesResponse
	err := fd.get(ctx, "/prices/", map[string]string{
		"ticker":              ticker,
		"interval":            "day",
		"interval_multiplier": "1",
		"start_date":          Day(start).Format(fdDateLayout),
		"end_date":            Day(end).Format(fdDateLayout),
	}, &parsed)
	if err != nil {
		return nil, fmt.Errorf("prices %s: %w", ticker, err)
	}

	out := make([]Price, 0, len(parsed.Prices))
	for _, p := range parsed.Prices {
		date, err := time.Parse(fdDateLayout, p.Time)
		if err != nil {
			fd.log.Warn().Str("ticker", ticker).Str("time", p.Time).Msg("skipping bar with unparseable date")
			continue
		}
		out = append(out, Price{
			Date:   date,
			Open:   p.Open.InexactFloat64(),
			High:   p.High.InexactFloat64(),
			Low:    p.Low.InexactFloat64(),
			Close:  p.Close.InexactFloat64(),
			Volume: p.Volume,
		})
	}
	return out, nil
}

// LineItems searches financial-statement figures reported at or before end.
func (fd *FinancialDatasets) LineItems(ctx context.Context, ticker string, items []string, period string, end time.Time, limit int) ([]LineItem, error) {
	metrics.DataRequestsTotal.WithLabelValues(ProviderFinancialDatasets, "line_items").Inc()
	if period == "" {
		period = "ttm"
	}
	if limit <= 0 {
		limit = 10
	}

	body := map[string]any{
		"tickers":    []string{ticker},
		"line_items": items,
		"end_date":   Day(end).Format(fdDateLayout),
		"period":     period,
		"limit":      limit,
	}
	var parsed struct {
		SearchResults []map[string]json.RawMessage `json:"search_results"`
	}
	err := util.Retry(ctx, 3, 500*time.Millisecond, func() error {
		resp, err := fd.client.R().SetContext(ctx).SetBody(body).SetResult(&parsed).Post("/financials/search/line-items")
		return checkResponse(resp, err)
	})
	if err != nil {
		return nil, fmt.Errorf("line items %s: %w", ticker, err)
	}

	var out []LineItem
	for _, row := range parsed.SearchResults {
		meta := func(key string) string {
			var s string
			if raw, ok := row[key]; ok {
				_ = json.Unmarshal(raw, &s)
			}
			return s
		}
		reportPeriod := meta("report_period")
		rowPeriod := meta("period")
		currency := meta("currency")
		for _, name := range items {
			raw, ok := row[name]
			if !ok {
				continue
			}
			var value decimal.Decimal
			if err := json.Unmarshal(raw, &value); err != nil {
				continue
			}
			out = append(out, LineItem{
				Ticker:       ticker,
				Name:         name,
				Value:        value.InexactFloat64(),
				ReportPeriod: reportPeriod,
				Period:       rowPeriod,
				Currency:     currency,
			})
		}
	}
	return out, nil
}

type fdNewsResponse struct {
	News []struct {
		Ticker    string `json:"ticker"`
		Title     string `json:"title"`
		Author    string `json:"author"`
		Source    string `json:"source"`
		Date      string `json:"date"`
		URL       string `json:"url"`
		Sentiment string `json:"sentiment"`
	} `json:"news"`
}

// News fetches company news published at or before end.
func (fd *FinancialDatasets) News(ctx context.Context, ticker string, end time.Time, limit int) ([]NewsItem, error) {
	metrics.DataRequestsTotal.WithLabelValues(ProviderFinancialDatasets, "news").Inc()
	if limit <= 0 {
		limit = 50
	}

	var parsed fdNewsResponse
	err := fd.get(ctx, "/news/", map[string]string{
		"ticker":   ticker,
		"end_date": Day(end).Format(fdDateLayout),
		"limit":    fmt.Sprintf("%d", limit),
	}, &parsed)
	if err != nil {
		return nil, fmt.Errorf("news %s: %w", ticker, err)
	}

	out := make([]NewsItem, 0, len(parsed.News))
	for _, n := range parsed.News {
		date, err := time.Parse(time.RFC3339, n.Date)
		if err != nil {
			if date, err = time.Parse(fdDateLayout, n.Date); err != nil {
				continue
			}
		}
		out = append(out, NewsItem{
			Ticker:    ticker,
			Title:     n.Title,
			Author:    n.Author,
			Source:    n.Source,
			Date:      date,
			URL:       n.URL,
			Sentiment: n.Sentiment,
		})
	}
	return out, nil
}

type fdInsiderResponse struct {
	InsiderTrades []struct {
		Ticker            string          `json:"ticker"`
		Name              string          `json:"name"`
		Title             string          `json:"title"`
		FilingDate        string          `json:"filing_date"`
		TransactionShares decimal.Decimal `json:"transaction_shares"`
		TransactionValue  decimal.Decimal `json:"transaction_value"`
	} `json:"insider_trades"`
}

// InsiderTrades fetches insider filings dated at or before end.
func (fd *FinancialDatasets) InsiderTrades(ctx context.Context, ticker string, end time.Time, limit int) ([]InsiderTrade, error) {
	metrics.DataRequestsTotal.WithLabelValues(ProviderFinancialDatasets, "insider_trades").Inc()
	if limit <= 0 {
		limit = 100
	}

	var parsed fdInsiderResponse
	err := fd.get(ctx, "/insider-trades/", map[string]string{
		"ticker":          ticker,
		"filing_date_lte": Day(end).Format(fdDateLayout),
		"limit":           fmt.Sprintf("%d", limit),
	}, &parsed)
	if err != nil {
		return nil, fmt.Errorf("insider trades %s: %w", ticker, err)
	}

	out := make([]InsiderTrade, 0, len(parsed.InsiderTrades))
	for _, tr := range parsed.InsiderTrades {
		date, err := time.Parse(fdDateLayout, tr.FilingDate)
		if err != nil {
			continue
		}
		out = append(out, InsiderTrade{
			Ticker:            ticker,
			Name:              tr.Name,
			Title:             tr.Title,
			FilingDate:        date,
			TransactionShares: tr.TransactionShares.InexactFloat64(),
			TransactionValue:  tr.TransactionValue.InexactFloat64(),
		})
	}
	return out, nil
}

func (fd *FinancialDatasets) get(ctx context.Context, path string, params map[string]string, result any) error {
	return util.Retry(ctx, 3, 500*time.Millisecond, func() error {
		resp, err := fd.client.R().SetContext(ctx).SetQueryParams(params).SetResult(result).Get(path)
		return checkResponse(resp, err)
	})
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("api error %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
