package analyst

import (
	"context"
	"fmt"

	"hedgefund-go/internal/marketdata"
	"hedgefund-go/internal/signal"
)

// Compile-time interface check.
var _ Analyst = (*Sentiment)(nil)

// Sentiment blends classified news sentiment with the buy/sell skew of
// insider filings. News carries most of the weight; insiders tip the
// balance.
type Sentiment struct {
	newsWeight    float64
	insiderWeight float64
	newsLimit     int
	insiderLimit  int
}

// NewSentiment builds a sentiment analyst with the given news/insider
// weights; non-positive weights fall back to the 0.7/0.3 defaults.
func NewSentiment(newsWeight, insiderWeight float64) *Sentiment {
	if newsWeight <= 0 || insiderWeight <= 0 {
		newsWeight, insiderWeight = 0.7, 0.3
	}
	return &Sentiment{
		newsWeight:    newsWeight,
		insiderWeight: insiderWeight,
		newsLimit:     50,
		insiderLimit:  100,
	}
}

// Name returns "sentiment".
func (s *Sentiment) Name() string { return "sentiment" }

// Evaluate counts bullish vs bearish evidence across both sources. A data
// error on either source surfaces to the caller; no evidence at all is a
// no-opinion.
func (s *Sentiment) Evaluate(ctx context.Context, ticker string, win *marketdata.Window) (signal.Signal, error) {
	news, err := win.News(ctx, ticker, s.newsLimit)
	if err != nil {
		return signal.Signal{}, fmt.Errorf("sentiment news: %w", err)
	}
	trades, err := win.InsiderTrades(ctx, ticker, s.insiderLimit)
	if err != nil {
		return signal.Signal{}, fmt.Errorf("sentiment insider trades: %w", err)
	}

	var posNews, negNews float64
	for _, n := range news {
		switch n.Sentiment {
		case "positive":
			posNews++
		case "negative":
			negNews++
		}
	}
	var insiderBuys, insiderSells float64
	for _, tr := range trades {
		switch {
		case tr.TransactionShares > 0:
			insiderBuys++
		case tr.TransactionShares < 0:
			insiderSells++
		}
	}

	bullish := s.newsWeight*posNews + s.insiderWeight*insiderBuys
	bearish := s.newsWeight*negNews + s.insiderWeight*insiderSells
	total := bullish + bearish
	if total == 0 {
		return signal.NoOpinion(ticker, s.Name(), win.AsOf()), nil
	}

	stance := signal.Neutral
	dominant := bullish
	switch {
	case bullish > bearish:
		stance = signal.Bullish
	case bearish > bullish:
		stance = signal.Bearish
		dominant = bearish
	}
	confidence := 0.0
	if stance != signal.Neutral {
		confidence = dominant / total * 100
	}
	return signal.Signal{
		Ticker:     ticker,
		Stance:     stance,
		Confidence: confidence,
		Rationale:  fmt.Sprintf("news %d+/%d-, insiders %.0f buys/%.0f sells", int(posNews), int(negNews), insiderBuys, insiderSells),
		Analyst:    s.Name(),
		Date:       win.AsOf(),
	}, nil
}
