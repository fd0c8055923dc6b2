package analyst

import (
	"context"
	"fmt"
	"sort"

	"hedgefund-go/internal/marketdata"
	"hedgefund-go/internal/signal"
)

// Compile-time interface check.
var _ Analyst = (*Fundamentals)(nil)

// Fundamentals scores profitability and growth from statement line items:
// net margin against a healthy floor plus trailing revenue growth.
type Fundamentals struct {
	marginFloor float64
	growthFloor float64
}

// NewFundamentals builds a fundamentals analyst. marginFloor is the net
// margin considered healthy; growthFloor the revenue growth considered
// expansionary.
func NewFundamentals(marginFloor, growthFloor float64) *Fundamentals {
	if marginFloor <= 0 {
		marginFloor = 0.10
	}
	if growthFloor <= 0 {
		growthFloor = 0.05
	}
	return &Fundamentals{marginFloor: marginFloor, growthFloor: growthFloor}
}

// Name returns "fundamentals".
func (f *Fundamentals) Name() string { return "fundamentals" }

// Evaluate pulls revenue and net income for the two most recent periods and
// scores margin and growth. Data errors surface to the caller; absent data
// is a no-opinion.
func (f *Fundamentals) Evaluate(ctx context.Context, ticker string, win *marketdata.Window) (signal.Signal, error) {
	items, err := win.LineItems(ctx, ticker, []string{"revenue", "net_income"}, "ttm", 4)
	if err != nil {
		return signal.Signal{}, fmt.Errorf("fundamentals line items: %w", err)
	}

	revenues := valuesByPeriod(items, "revenue")
	netIncomes := valuesByPeriod(items, "net_income")
	if len(revenues) == 0 || len(netIncomes) == 0 {
		return signal.NoOpinion(ticker, f.Name(), win.AsOf()), nil
	}

	score, checks := 0, 0

	if revenues[0] != 0 {
		margin := netIncomes[0] / revenues[0]
		checks++
		switch {
		case margin >= f.marginFloor:
			score++
		case margin < 0:
			score--
		}
	}
	if len(revenues) >= 2 && revenues[1] != 0 {
		growth := revenues[0]/revenues[1] - 1
		checks++
		switch {
		case growth >= f.growthFloor:
			score++
		case growth < 0:
			score--
		}
	}
	if checks == 0 {
		return signal.NoOpinion(ticker, f.Name(), win.AsOf()), nil
	}

	stance := signal.Neutral
	switch {
	case score > 0:
		stance = signal.Bullish
	case score < 0:
		stance = signal.Bearish
	}
	confidence := 0.0
	if score != 0 {
		confidence = float64(abs(score)) / float64(checks) * 100
	}
	return signal.Signal{
		Ticker:     ticker,
		Stance:     stance,
		Confidence: confidence,
		Rationale:  fmt.Sprintf("%d of %d fundamental checks net positive", score, checks),
		Analyst:    f.Name(),
		Date:       win.AsOf(),
	}, nil
}

// valuesByPeriod returns the named line item's values, most recent report
// period first.
func valuesByPeriod(items []marketdata.LineItem, name string) []float64 {
	var matched []marketdata.LineItem
	for _, li := range items {
		if li.Name == name {
			matched = append(matched, li)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ReportPeriod > matched[j].ReportPeriod })
	out := make([]float64, len(matched))
	for i, li := range matched {
		out[i] = li.Value
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
