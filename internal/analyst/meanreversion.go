package analyst

import (
	"context"
	"fmt"
	"math"

	"hedgefund-go/internal/marketdata"
	"hedgefund-go/internal/signal"
)

// Compile-time interface check.
var _ Analyst = (*MeanReversion)(nil)

// MeanReversion scores how far the latest close sits from its rolling mean
// in standard deviations. Prices stretched below the mean read bullish,
// stretched above read bearish.
type MeanReversion struct {
	window int
	zEntry float64
}

// NewMeanReversion builds a mean-reversion analyst. window is the rolling
// mean length; zEntry is the z-score at which an opinion forms.
func NewMeanReversion(window int, zEntry float64) *MeanReversion {
	if window <= 0 {
		window = 20
	}
	if zEntry <= 0 {
		zEntry = 1.0
	}
	return &MeanReversion{window: window, zEntry: zEntry}
}

// Name returns "mean_reversion".
func (m *MeanReversion) Name() string { return "mean_reversion" }

// Evaluate computes the z-score of the latest close over the rolling window.
func (m *MeanReversion) Evaluate(_ context.Context, ticker string, win *marketdata.Window) (signal.Signal, error) {
	prices := win.Prices()
	if len(prices) < m.window {
		return signal.NoOpinion(ticker, m.Name(), win.AsOf()), nil
	}
	tail := prices[len(prices)-m.window:]

	var mean float64
	for _, p := range tail {
		mean += p.Close
	}
	mean /= float64(len(tail))

	var variance float64
	for _, p := range tail {
		d := p.Close - mean
		variance += d * d
	}
	variance /= float64(len(tail) - 1)
	std := math.Sqrt(variance)
	if std == 0 {
		return signal.NoOpinion(ticker, m.Name(), win.AsOf()), nil
	}

	z := (tail[len(tail)-1].Close - mean) / std
	if math.Abs(z) < m.zEntry {
		return signal.Signal{
			Ticker:    ticker,
			Stance:    signal.Neutral,
			Rationale: fmt.Sprintf("z=%.2f inside ±%.2f band", z, m.zEntry),
			Analyst:   m.Name(),
			Date:      win.AsOf(),
		}, nil
	}

	stance := signal.Bearish
	if z < 0 {
		stance = signal.Bullish
	}
	confidence := math.Min(100, math.Abs(z)/m.zEntry*50)
	return signal.Signal{
		Ticker:     ticker,
		Stance:     stance,
		Confidence: confidence,
		Rationale:  fmt.Sprintf("close %.2f std devs from %d-day mean", z, m.window),
		Analyst:    m.Name(),
		Date:       win.AsOf(),
	}, nil
}
