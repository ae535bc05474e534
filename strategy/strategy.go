// ════════════════════════════════════════════════════════════════════════════════════════════════
// Cross-Venue Signal
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: tick2trade
// Component: Signal / Strategy
//
// Description:
//   Compares venue A (reference) with venue B (executable) at the touch and
//   emits at most one order intent for B. Pure function of its inputs; no
//   state, no allocation.
//
// Legs:
//   - Buy:  askB − bidA ≥ threshold  → buy on B at askB
//   - Sell: askA − bidB ≥ threshold  → sell on B at bidB
//   The wider spread wins when both fire; buy wins a tie.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package strategy

import (
	"math"

	"tick2trade/order"
	"tick2trade/orderbook"
)

// eps absorbs float noise in the threshold comparison.
const eps = 1e-9

// Params is the immutable signal configuration.
type Params struct {
	Threshold float64 // minimum spread, price units
	MaxQty    float64 // cap per intent; 0 means uncapped
	QtyStep   float64 // lot size the qty is floored to; 0 means none
	MaxLive   int     // unresolved orders allowed before the signal mutes
}

// Intent is an order for venue B. Built on the stack and consumed in the
// same hot-loop iteration; it never outlives it.
type Intent struct {
	Side      order.Side
	Price     float64
	Qty       float64
	Spread    float64
	ClientID  uint64
	CreatedAt int64
}

// Evaluate returns an intent when the cross-venue spread clears the
// threshold. live is the number of unresolved orders for the pair; no
// intent fires while it reaches p.MaxLive (at least one).
func Evaluate(a, b *orderbook.Book, p Params, live int) (Intent, bool) {
	maxLive := p.MaxLive
	if maxLive < 1 {
		maxLive = 1
	}
	if live >= maxLive || a.IsStale() || b.IsStale() {
		return Intent{}, false
	}

	bidA, _ := a.BestBid()
	askA, _ := a.BestAsk()
	bidB, _ := b.BestBid()
	askB, _ := b.BestAsk()

	var best Intent
	found := false

	if bidA.Qty > 0 && askB.Qty > 0 {
		if s := askB.Price - bidA.Price; s+eps >= p.Threshold {
			if q := size(bidA.Qty, askB.Qty, p); q > 0 {
				best = Intent{Side: order.Buy, Price: askB.Price, Qty: q, Spread: s}
				found = true
			}
		}
	}
	if askA.Qty > 0 && bidB.Qty > 0 {
		if s := askA.Price - bidB.Price; s+eps >= p.Threshold && (!found || s > best.Spread+eps) {
			if q := size(askA.Qty, bidB.Qty, p); q > 0 {
				best = Intent{Side: order.Sell, Price: bidB.Price, Qty: q, Spread: s}
				found = true
			}
		}
	}
	return best, found
}

// size is the tradable quantity: the thinner touch, capped, floored to
// the lot step.
func size(refQty, execQty float64, p Params) float64 {
	q := math.Min(refQty, execQty)
	if p.MaxQty > 0 && q > p.MaxQty {
		q = p.MaxQty
	}
	if p.QtyStep > 0 {
		q = math.Floor(q/p.QtyStep+eps) * p.QtyStep
	}
	if q <= eps {
		return 0
	}
	return q
}
