// Package risk computes the per-ticker exposure ceiling the aggregator must
// respect on a given day.
package risk

import (
	"math"

	"hedgefund-go/internal/marketdata"
	"hedgefund-go/internal/portfolio"
)

// Limiter derives a notional position-value cap from portfolio equity and
// recent price history. It is a pure reader of both.
type Limiter struct {
	// MaxAllocationPct is the equity fraction allotted to one ticker,
	// typically 1/len(universe).
	MaxAllocationPct float64
	// VolTarget is the daily return volatility above which the allocation is
	// scaled down proportionally. Zero disables the volatility tightening.
	VolTarget float64
	// VolWindow is how many trailing closes feed the volatility estimate.
	VolWindow int
	// MinObservations is the minimum history length below which the limit is
	// zero, so thin-data tickers sit out instead of destabilizing the run.
	MinObservations int
}

// NewLimiter builds a limiter, substituting defaults for zero values.
func NewLimiter(maxAllocationPct, volTarget float64, volWindow, minObservations int) Limiter {
	if maxAllocationPct <= 0 {
		maxAllocationPct = 0.2
	}
	if volWindow <= 0 {
		volWindow = 20
	}
	if minObservations <= 0 {
		minObservations = 5
	}
	return Limiter{
		MaxAllocationPct: maxAllocationPct,
		VolTarget:        volTarget,
		VolWindow:        volWindow,
		MinObservations:  minObservations,
	}
}

// LimitFor returns the maximum notional exposure permitted for a ticker
// whose trailing bars are history, given the current portfolio snapshot.
func (l Limiter) LimitFor(snap portfolio.Snapshot, history []marketdata.Price) float64 {
	if len(history) < l.MinObservations {
		return 0
	}
	limit := snap.Equity * l.MaxAllocationPct
	if limit <= 0 {
		return 0
	}
	if l.VolTarget > 0 {
		vol := dailyVolatility(history, l.VolWindow)
		if vol > l.VolTarget {
			limit *= l.VolTarget / vol
		}
	}
	return limit
}

// dailyVolatility is the standard deviation of close-to-close returns over
// the last window bars.
func dailyVolatility(history []marketdata.Price, window int) float64 {
	if len(history) > window+1 {
		history = history[len(history)-window-1:]
	}
	var rets []float64
	for i := 1; i < len(history); i++ {
		prev := history[i-1].Close
		if prev <= 0 {
			continue
		}
		rets = append(rets, history[i].Close/prev-1)
	}
	if len(rets) < 2 {
		return 0
	}
	var mean float64
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))
	var variance float64
	for _, r := range rets {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(rets) - 1)
	return math.Sqrt(variance)
}
