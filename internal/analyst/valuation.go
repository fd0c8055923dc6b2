package analyst

import (
	"context"
	"fmt"
	"math"

	"hedgefund-go/internal/marketdata"
	"hedgefund-go/internal/signal"
)

// Compile-time interface check.
var _ Analyst = (*Valuation)(nil)

// Valuation compares trailing earnings per share to the latest close: a
// high earnings yield reads cheap (bullish), negative earnings read
// expensive (bearish).
type Valuation struct {
	yieldFloor float64
}

// NewValuation builds a valuation analyst. yieldFloor is the earnings yield
// treated as fair value; double the floor is full conviction.
func NewValuation(yieldFloor float64) *Valuation {
	if yieldFloor <= 0 {
		yieldFloor = 0.05
	}
	return &Valuation{yieldFloor: yieldFloor}
}

// Name returns "valuation".
func (v *Valuation) Name() string { return "valuation" }

// Evaluate derives the earnings yield from trailing EPS and the last close.
func (v *Valuation) Evaluate(ctx context.Context, ticker string, win *marketdata.Window) (signal.Signal, error) {
	lastClose, ok := win.LastClose()
	if !ok || lastClose <= 0 {
		return signal.NoOpinion(ticker, v.Name(), win.AsOf()), nil
	}
	items, err := win.LineItems(ctx, ticker, []string{"earnings_per_share"}, "ttm", 1)
	if err != nil {
		return signal.Signal{}, fmt.Errorf("valuation line items: %w", err)
	}
	eps := valuesByPeriod(items, "earnings_per_share")
	if len(eps) == 0 {
		return signal.NoOpinion(ticker, v.Name(), win.AsOf()), nil
	}

	yield := eps[0] / lastClose
	var stance signal.Stance
	var confidence float64
	switch {
	case yield < 0:
		stance = signal.Bearish
		confidence = math.Min(100, math.Abs(yield)/v.yieldFloor*50)
	case yield >= v.yieldFloor:
		stance = signal.Bullish
		confidence = math.Min(100, (yield-v.yieldFloor)/v.yieldFloor*100)
	default:
		stance = signal.Neutral
	}
	return signal.Signal{
		Ticker:     ticker,
		Stance:     stance,
		Confidence: confidence,
		Rationale:  fmt.Sprintf("earnings yield %.2f%% vs %.2f%% floor", yield*100, v.yieldFloor*100),
		Analyst:    v.Name(),
		Date:       win.AsOf(),
	}, nil
}
