package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/rs/zerolog"

	"hedgefund-go/internal/metrics"
)

// Compile-time interface check.
var _ Provider = (*Yahoo)(nil)

// Yahoo is the free consumer-data backend. It serves daily bars; statement
// line items, news, and insider filings are not exposed by the upstream
// endpoints, so those calls return empty results and analysts that need
// them degrade to no opinion.
type Yahoo struct {
	log zerolog.Logger
}

// NewYahoo builds the Yahoo Finance backend.
func NewYahoo(log zerolog.Logger) *Yahoo {
	return &Yahoo{log: log}
}

// Name returns "yahoo".
func (y *Yahoo) Name() string { return ProviderYahoo }

// Prices fetches daily bars for ticker within [start, end].
func (y *Yahoo) Prices(ctx context.Context, ticker string, start, end time.Time) ([]Price, error) {
	metrics.DataRequestsTotal.WithLabelValues(ProviderYahoo, "prices").Inc()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	startDay, endDay := Day(start), Day(end)
	// The upstream range is exclusive of the end day, so push it one day out.
	endFetch := endDay.AddDate(0, 0, 1)
	iter := chart.Get(&chart.Params{
		Symbol:   ticker,
		Start:    datetime.New(&startDay),
		End:      datetime.New(&endFetch),
		Interval: datetime.OneDay,
	})

	var out []Price
	for iter.Next() {
		bar := iter.Bar()
		date := Day(time.Unix(int64(bar.Timestamp), 0))
		if date.Before(startDay) || date.After(endDay) {
			continue
		}
		out = append(out, Price{
			Date:   date,
			Open:   bar.Open.InexactFloat64(),
			High:   bar.High.InexactFloat64(),
			Low:    bar.Low.InexactFloat64(),
			Close:  bar.Close.InexactFloat64(),
			Volume: int64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo prices %s: %w", ticker, err)
	}
	return out, nil
}

// LineItems is unsupported by this backend and always returns empty results.
func (y *Yahoo) LineItems(_ context.Context, ticker string, _ []string, _ string, _ time.Time, _ int) ([]LineItem, error) {
	y.log.Debug().Str("ticker", ticker).Msg("line items not available from yahoo backend")
	return nil, nil
}

// News is unsupported by this backend and always returns empty results.
func (y *Yahoo) News(_ context.Context, ticker string, _ time.Time, _ int) ([]NewsItem, error) {
	y.log.Debug().Str("ticker", ticker).Msg("news not available from yahoo backend")
	return nil, nil
}

// InsiderTrades is unsupported by this backend and always returns empty results.
func (y *Yahoo) InsiderTrades(_ context.Context, ticker string, _ time.Time, _ int) ([]InsiderTrade, error) {
	y.log.Debug().Str("ticker", ticker).Msg("insider trades not available from yahoo backend")
	return nil, nil
}
