package analyst

import (
	"context"
	"fmt"
	"math"

	"hedgefund-go/internal/marketdata"
	"hedgefund-go/internal/signal"
)

// Compile-time interface check.
var _ Analyst = (*Momentum)(nil)

// Momentum calls the trend of closing prices over a lookback window: up
// moves are bullish, down moves bearish, with confidence scaled by the size
// of the move against a full-conviction threshold.
type Momentum struct {
	lookback  int
	threshold float64
}

// NewMomentum builds a momentum analyst. lookback is the number of sessions
// examined; threshold is the fractional move treated as full conviction.
func NewMomentum(lookback int, threshold float64) *Momentum {
	if lookback <= 0 {
		lookback = 20
	}
	if threshold <= 0 {
		threshold = 0.08
	}
	return &Momentum{lookback: lookback, threshold: threshold}
}

// Name returns "momentum".
func (m *Momentum) Name() string { return "momentum" }

// Evaluate compares the latest close to the close lookback sessions ago.
func (m *Momentum) Evaluate(_ context.Context, ticker string, win *marketdata.Window) (signal.Signal, error) {
	prices := win.Prices()
	if len(prices) < m.lookback+1 {
		return signal.NoOpinion(ticker, m.Name(), win.AsOf()), nil
	}
	first := prices[len(prices)-1-m.lookback].Close
	last := prices[len(prices)-1].Close
	if first <= 0 {
		return signal.NoOpinion(ticker, m.Name(), win.AsOf()), nil
	}

	change := last/first - 1
	stance := signal.Neutral
	switch {
	case change > 0:
		stance = signal.Bullish
	case change < 0:
		stance = signal.Bearish
	}
	confidence := math.Min(100, math.Abs(change)/m.threshold*100)
	return signal.Signal{
		Ticker:     ticker,
		Stance:     stance,
		Confidence: confidence,
		Rationale:  fmt.Sprintf("%.2f%% move over %d sessions", change*100, m.lookback),
		Analyst:    m.Name(),
		Date:       win.AsOf(),
	}, nil
}
