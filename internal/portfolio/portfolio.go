// Package portfolio owns the ledger of cash, positions, margin, and realized
// gains for one backtest run. The ledger is the sole mutator of that state;
// everything else reads snapshots.
package portfolio

import (
	"fmt"
	"math"
	"sync"
)

// Action is the discrete trading action applied to one ticker.
type Action string

const (
	Buy   Action = "buy"
	Sell  Action = "sell"
	Short Action = "short"
	Cover Action = "cover"
	Hold  Action = "hold"
)

// Decision pairs an action with a share quantity for one ticker on one day.
type Decision struct {
	Action Action `json:"action"`
	Qty    int    `json:"qty"`
}

// HoldDecision is the canonical no-op decision.
func HoldDecision() Decision { return Decision{Action: Hold, Qty: 0} }

// Position is one ticker's holding state. A ticker is never simultaneously
// long and short at rest; the aggregator neutralizes one side before
// opening the other.
type Position struct {
	LongShares      int     `json:"long_shares"`
	ShortShares     int     `json:"short_shares"`
	LongCostBasis   float64 `json:"long_cost_basis"`
	ShortCostBasis  float64 `json:"short_cost_basis"`
	ShortMarginUsed float64 `json:"short_margin_used"`
}

// RealizedGains accumulates closed-trade P&L per ticker, split by side.
type RealizedGains struct {
	Long  float64 `json:"long"`
	Short float64 `json:"short"`
}

// Outcome reports what a ledger apply actually did. Applied may differ from
// the requested decision when quantities were clamped; a clamp down to zero
// degrades to hold.
type Outcome struct {
	Applied     Decision `json:"applied"`
	RealizedPnL float64  `json:"realized_pnl"`
	Position    Position `json:"position"`
	Clamped     bool     `json:"clamped"`
}

// PositionView is a read-only, marked-to-market view of one position.
type PositionView struct {
	Position
	MarketValue    float64 `json:"market_value"`
	ShortLiability float64 `json:"short_liability"`
}

// Snapshot is a consistent read-only view of the portfolio, marked to market
// with the supplied prices.
type Snapshot struct {
	Cash          float64                  `json:"cash"`
	Equity        float64                  `json:"equity"`
	LongExposure  float64                  `json:"long_exposure"`
	ShortExposure float64                  `json:"short_exposure"`
	Positions     map[string]PositionView  `json:"positions"`
	Realized      map[string]RealizedGains `json:"realized_gains"`
}

const epsilon = 1e-9

// Ledger tracks cash, per-ticker positions, and short margin. All mutation
// goes through Apply under a single mutex, which preserves the
// cash-never-negative invariant when same-day applies race.
type Ledger struct {
	mu          sync.Mutex
	initialCash float64
	cash        float64
	marginRatio float64
	positions   map[string]*Position
	realized    map[string]*RealizedGains
}

// NewLedger creates a ledger holding initialCash with flat positions for the
// given ticker universe. marginRatio is the fraction of short proceeds held
// as collateral; values outside (0, 1] fall back to 0.5.
func NewLedger(initialCash float64, marginRatio float64, tickers []string) *Ledger {
	if marginRatio <= 0 || marginRatio > 1 {
		marginRatio = 0.5
	}
	if initialCash < 0 {
		initialCash = 0
	}
	l := &Ledger{
		initialCash: initialCash,
		cash:        initialCash,
		marginRatio: marginRatio,
		positions:   make(map[string]*Position, len(tickers)),
		realized:    make(map[string]*RealizedGains, len(tickers)),
	}
	for _, t := range tickers {
		l.positions[t] = &Position{}
		l.realized[t] = &RealizedGains{}
	}
	return l
}

// InitialCash returns the starting bankroll.
func (l *Ledger) InitialCash() float64 { return l.initialCash }

// MarginRatio returns the configured short collateral fraction.
func (l *Ledger) MarginRatio() float64 { return l.marginRatio }

// Cash returns the free cash balance.
func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash
}

// Position returns the current position for ticker. The second return value
// is false for tickers outside the universe.
func (l *Ledger) Position(ticker string) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[ticker]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Apply executes one decision for ticker at the given price. Quantities that
// would violate cash or share invariants are clamped, never raised; only
// structurally invalid input is an error. The realized P&L delta is zero for
// buy, short, and hold.
func (l *Ledger) Apply(ticker string, d Decision, price float64) (Outcome, error) {
	if price <= 0 {
		return Outcome{}, fmt.Errorf("price must be positive, got %.4f", price)
	}
	if d.Qty < 0 {
		return Outcome{}, fmt.Errorf("quantity must be non-negative, got %d", d.Qty)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[ticker]
	if !ok {
		return Outcome{}, fmt.Errorf("unknown ticker %q", ticker)
	}

	switch d.Action {
	case Hold:
		if d.Qty != 0 {
			return Outcome{}, fmt.Errorf("hold with non-zero quantity %d", d.Qty)
		}
		return Outcome{Applied: HoldDecision(), Position: *pos}, nil
	case Buy:
		return l.applyBuy(ticker, pos, d.Qty, price), nil
	case Sell:
		return l.applySell(ticker, pos, d.Qty, price), nil
	case Short:
		return l.applyShort(ticker, pos, d.Qty, price), nil
	case Cover:
		return l.applyCover(ticker, pos, d.Qty, price), nil
	default:
		return Outcome{}, fmt.Errorf("unknown action %q", d.Action)
	}
}

func (l *Ledger) applyBuy(_ string, pos *Position, qty int, price float64) Outcome {
	affordable := int(math.Floor((l.cash + epsilon) / price))
	clamped := qty > affordable
	if clamped {
		qty = affordable
	}
	if qty <= 0 {
		return Outcome{Applied: HoldDecision(), Position: *pos, Clamped: true}
	}

	notional := float64(qty) * price
	newShares := pos.LongShares + qty
	pos.LongCostBasis = (pos.LongCostBasis*float64(pos.LongShares) + notional) / float64(newShares)
	pos.LongShares = newShares
	l.cash -= notional
	if l.cash < 0 {
		l.cash = 0 // guard against float dust
	}
	return Outcome{Applied: Decision{Action: Buy, Qty: qty}, Position: *pos, Clamped: clamped}
}

func (l *Ledger) applySell(ticker string, pos *Position, qty int, price float64) Outcome {
	clamped := qty > pos.LongShares
	if clamped {
		qty = pos.LongShares
	}
	if qty <= 0 {
		return Outcome{Applied: HoldDecision(), Position: *pos, Clamped: true}
	}

	realized := (price - pos.LongCostBasis) * float64(qty)
	l.cash += float64(qty) * price
	pos.LongShares -= qty
	if pos.LongShares == 0 {
		pos.LongCostBasis = 0
	}
	l.realized[ticker].Long += realized
	return Outcome{Applied: Decision{Action: Sell, Qty: qty}, RealizedPnL: realized, Position: *pos, Clamped: clamped}
}

// applyShort credits the sale proceeds and reserves marginRatio of them as
// collateral, so the net cash change is proceeds minus margin. This keeps a
// constant-price short/cover round trip cash neutral.
func (l *Ledger) applyShort(_ string, pos *Position, qty int, price float64) Outcome {
	maxByMargin := int(math.Floor((l.cash + epsilon) / (price * l.marginRatio)))
	clamped := qty > maxByMargin
	if clamped {
		qty = maxByMargin
	}
	if qty <= 0 {
		return Outcome{Applied: HoldDecision(), Position: *pos, Clamped: true}
	}

	proceeds := float64(qty) * price
	margin := proceeds * l.marginRatio
	newShares := pos.ShortShares + qty
	pos.ShortCostBasis = (pos.ShortCostBasis*float64(pos.ShortShares) + proceeds) / float64(newShares)
	pos.ShortShares = newShares
	pos.ShortMarginUsed += margin
	l.cash += proceeds - margin
	return Outcome{Applied: Decision{Action: Short, Qty: qty}, Position: *pos, Clamped: clamped}
}

// applyCover releases collateral in proportion to the shares closed and pays
// the repurchase cost out of cash. Quantity is additionally clamped so cash
// cannot go negative when the price has run against the short.
func (l *Ledger) applyCover(ticker string, pos *Position, qty int, price float64) Outcome {
	clamped := qty > pos.ShortShares
	if clamped {
		qty = pos.ShortShares
	}
	if qty <= 0 {
		return Outcome{Applied: HoldDecision(), Position: *pos, Clamped: true}
	}

	marginPerShare := pos.ShortMarginUsed / float64(pos.ShortShares)
	if price > marginPerShare {
		// cash + released margin must cover the repurchase
		maxByCash := int(math.Floor((l.cash + epsilon) / (price - marginPerShare)))
		if qty > maxByCash {
			qty = maxByCash
			clamped = true
		}
		if qty <= 0 {
			return Outcome{Applied: HoldDecision(), Position: *pos, Clamped: true}
		}
	}

	released := marginPerShare * float64(qty)
	cost := float64(qty) * price
	realized := (pos.ShortCostBasis - price) * float64(qty)

	pos.ShortShares -= qty
	pos.ShortMarginUsed -= released
	if pos.ShortShares == 0 {
		pos.ShortCostBasis = 0
		pos.ShortMarginUsed = 0
	}
	l.cash += released - cost
	if l.cash < 0 {
		l.cash = 0 // float dust only; the clamp above bounds the real amount
	}
	l.realized[ticker].Short += realized
	return Outcome{Applied: Decision{Action: Cover, Qty: qty}, RealizedPnL: realized, Position: *pos, Clamped: clamped}
}

// Snapshot returns a marked-to-market copy of the portfolio. Equity is cash
// plus long market value plus the short liability adjustment (reserved
// margin minus the cost of covering). Tickers missing from marks fall back
// to their cost bases so thin data does not crater reported equity.
func (l *Ledger) Snapshot(marks map[string]float64) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := Snapshot{
		Cash:      l.cash,
		Equity:    l.cash,
		Positions: make(map[string]PositionView, len(l.positions)),
		Realized:  make(map[string]RealizedGains, len(l.realized)),
	}
	for ticker, pos := range l.positions {
		mark := marks[ticker]
		longMark, shortMark := mark, mark
		if mark <= 0 {
			longMark, shortMark = pos.LongCostBasis, pos.ShortCostBasis
		}
		longValue := float64(pos.LongShares) * longMark
		shortValue := float64(pos.ShortShares) * shortMark
		view := PositionView{
			Position:       *pos,
			MarketValue:    longValue,
			ShortLiability: shortValue,
		}
		snap.Positions[ticker] = view
		snap.LongExposure += longValue
		snap.ShortExposure += shortValue
		snap.Equity += longValue + pos.ShortMarginUsed - shortValue
	}
	for ticker, rg := range l.realized {
		snap.Realized[ticker] = *rg
	}
	return snap
}
