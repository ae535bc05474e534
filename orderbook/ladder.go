// ════════════════════════════════════════════════════════════════════════════════════════════════
// Fixed-Depth Price Ladder
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: tick2trade
// Component: Order Book / Ladder
//
// Description:
//   One side of an L2 book held in a fixed array of constants.BookDepth levels.
//   Kept sorted at all times so the best level is always index 0.
//
// Invariants:
//   - levels[0:n] strictly ordered (descending for bids, ascending for asks)
//   - No duplicate prices, no zero-quantity entries
//   - n never exceeds BookDepth; inserts past the worst level are dropped
//
// Complexity:
//   - Best: O(1)
//   - Update: O(depth) scan + shift
// ════════════════════════════════════════════════════════════════════════════════════════════════

package orderbook

import "tick2trade/constants"

// Level is one price point. Qty 0 means the level is absent.
type Level struct {
	Price float64
	Qty   float64
}

// Ladder is one side of the book.
type Ladder struct {
	levels [constants.BookDepth]Level
	n      int
	desc   bool // true for bids
}

// Len returns the number of populated levels.
//
//go:nosplit
//go:inline
func (l *Ladder) Len() int { return l.n }

// At returns level i. i must be < Len.
//
//go:nosplit
//go:inline
func (l *Ladder) At(i int) Level { return l.levels[i] }

// Best returns the top level, if any.
//
//go:nosplit
//go:inline
func (l *Ladder) Best() (Level, bool) {
	if l.n == 0 {
		return Level{}, false
	}
	return l.levels[0], true
}

// Reset empties the ladder without touching its ordering.
func (l *Ladder) Reset() {
	l.levels = [constants.BookDepth]Level{}
	l.n = 0
}

// better reports whether a ranks ahead of b on this side.
//
//go:nosplit
//go:inline
func (l *Ladder) better(a, b float64) bool {
	if l.desc {
		return a > b
	}
	return a < b
}

// Update applies one level change.
//
//   - qty == 0 removes the price if present (compaction keeps order)
//   - an existing price has its quantity replaced
//   - a new price is inserted at its rank; on a full ladder the worst
//     level is evicted, or the new one is dropped if it would be the worst
//
// Non-positive prices and negative or NaN quantities are ignored.
//
//go:nosplit
func (l *Ladder) Update(price, qty float64) {
	if !(price > 0) || !(qty >= 0) {
		return
	}

	i := 0
	for ; i < l.n; i++ {
		p := l.levels[i].Price
		if p == price {
			if qty == 0 {
				copy(l.levels[i:l.n-1], l.levels[i+1:l.n])
				l.n--
				l.levels[l.n] = Level{}
				return
			}
			l.levels[i].Qty = qty
			return
		}
		if l.better(price, p) {
			break
		}
	}

	if qty == 0 {
		return // tombstone for a price we do not hold
	}

	const depth = constants.BookDepth
	if i == depth {
		return // worse than the worst of a full ladder
	}
	if l.n == depth {
		copy(l.levels[i+1:depth], l.levels[i:depth-1])
	} else {
		copy(l.levels[i+1:l.n+1], l.levels[i:l.n])
		l.n++
	}
	l.levels[i] = Level{Price: price, Qty: qty}
}
