// Package manager aggregates analyst signals into one concrete trading
// decision per ticker per day.
package manager

import (
	"math"
	"sort"

	"hedgefund-go/internal/portfolio"
	"hedgefund-go/internal/signal"
)

// Manager combines stance/confidence pairs into a net directional score and
// sizes the resulting order against the risk limit and the portfolio
// snapshot. Decide is pure: identical inputs always yield the identical
// decision.
type Manager struct {
	marginRatio float64
}

// New creates a manager. marginRatio must match the ledger's so short sizing
// lines up with what the ledger will accept.
func New(marginRatio float64) Manager {
	if marginRatio <= 0 || marginRatio > 1 {
		marginRatio = 0.5
	}
	return Manager{marginRatio: marginRatio}
}

// Decide turns the day's signals for ticker into a decision at the given
// price. The net score is the confidence-weighted sum (bullish positive,
// bearish negative); its magnitude, normalized against the maximum possible
// weighted score, scales how much of the remaining headroom under limit is
// committed. A ticker holding the opposite side is neutralized first; the
// aggregator never flips direction in a single step.
func (m Manager) Decide(ticker string, sigs []signal.Signal, limit float64, snap portfolio.Snapshot, price float64) portfolio.Decision {
	if price <= 0 {
		return portfolio.HoldDecision()
	}

	// Stable aggregation order regardless of gathering order.
	sorted := make([]signal.Signal, len(sigs))
	copy(sorted, sigs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Analyst < sorted[j].Analyst })

	var net float64
	opinions := 0
	for _, s := range sorted {
		switch s.Stance {
		case signal.Bullish:
			net += s.Confidence
			opinions++
		case signal.Bearish:
			net -= s.Confidence
			opinions++
		}
	}
	if net == 0 || opinions == 0 {
		return portfolio.HoldDecision()
	}
	strength := math.Abs(net) / (100 * float64(opinions))

	pos := snap.Positions[ticker].Position

	if net > 0 {
		if pos.ShortShares > 0 {
			return portfolio.Decision{Action: portfolio.Cover, Qty: pos.ShortShares}
		}
		headroom := limit - float64(pos.LongShares)*price
		qty := int(math.Floor(strength * headroom / price))
		if affordable := int(math.Floor(snap.Cash / price)); qty > affordable {
			qty = affordable
		}
		if qty <= 0 {
			return portfolio.HoldDecision()
		}
		return portfolio.Decision{Action: portfolio.Buy, Qty: qty}
	}

	if pos.LongShares > 0 {
		return portfolio.Decision{Action: portfolio.Sell, Qty: pos.LongShares}
	}
	headroom := limit - float64(pos.ShortShares)*price
	qty := int(math.Floor(strength * headroom / price))
	if byMargin := int(math.Floor(snap.Cash / (price * m.marginRatio))); qty > byMargin {
		qty = byMargin
	}
	if qty <= 0 {
		return portfolio.HoldDecision()
	}
	return portfolio.Decision{Action: portfolio.Short, Qty: qty}
}
