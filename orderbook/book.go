// ════════════════════════════════════════════════════════════════════════════════════════════════
// Sequenced L2 Order Book
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: tick2trade
// Component: Order Book
//
// Description:
//   Two ladders plus the venue's update id. Deltas must arrive with id
//   exactly last+1; anything else marks the book stale and leaves every
//   level as it was. A stale book only accepts a snapshot.
//
// Ownership:
//   - Owned by Thread 0. No locks, no atomics, no other readers.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package orderbook

import "errors"

var (
	// ErrGap reports a sequence break. The book is now stale.
	ErrGap = errors.New("orderbook: update id gap")

	// ErrStale rejects a delta against a book awaiting a snapshot.
	ErrStale = errors.New("orderbook: book is stale")
)

// Side selects a ladder.
type Side uint8

const (
	Bid Side = iota
	Ask
)

// Book is one venue's depth-limited view of the market.
type Book struct {
	bids   Ladder
	asks   Ladder
	lastID uint64
	stale  bool
	venue  uint8
}

// New returns an empty book for venue. It starts stale: nothing is
// trusted until the first snapshot lands.
func New(venue uint8) *Book {
	b := &Book{venue: venue, stale: true}
	b.bids.desc = true
	return b
}

// Venue returns the venue index the book was built for.
func (b *Book) Venue() uint8 { return b.venue }

// ApplySnapshot replaces both ladders and resets the sequence to updateID.
// Levels may arrive in any order; those past depth are dropped.
func (b *Book) ApplySnapshot(updateID uint64, bids, asks []Level) {
	b.bids.Reset()
	b.asks.Reset()
	for i := range bids {
		b.bids.Update(bids[i].Price, bids[i].Qty)
	}
	for i := range asks {
		b.asks.Update(asks[i].Price, asks[i].Qty)
	}
	b.lastID = updateID
	b.stale = false
}

// ApplyDelta applies incremental changes stamped updateID.
//
// Returns ErrStale if the book awaits a snapshot and ErrGap if updateID is
// not exactly last+1; in both cases no level is touched.
func (b *Book) ApplyDelta(updateID uint64, bids, asks []Level) error {
	if b.stale {
		return ErrStale
	}
	if updateID != b.lastID+1 {
		b.stale = true
		return ErrGap
	}
	for i := range bids {
		b.bids.Update(bids[i].Price, bids[i].Qty)
	}
	for i := range asks {
		b.asks.Update(asks[i].Price, asks[i].Qty)
	}
	b.lastID = updateID
	return nil
}

// BestBid returns the highest bid.
//
//go:nosplit
//go:inline
func (b *Book) BestBid() (Level, bool) { return b.bids.Best() }

// BestAsk returns the lowest ask.
//
//go:nosplit
//go:inline
func (b *Book) BestAsk() (Level, bool) { return b.asks.Best() }

// IsStale reports whether the book awaits a snapshot.
//
//go:nosplit
//go:inline
func (b *Book) IsStale() bool { return b.stale }

// MarkStale invalidates the book. Used by Safe Mode and on transport loss.
func (b *Book) MarkStale() { b.stale = true }

// LastUpdateID returns the id of the last applied snapshot or delta.
func (b *Book) LastUpdateID() uint64 { return b.lastID }

// Mid returns the midpoint of the touch, if both sides are populated.
func (b *Book) Mid() (float64, bool) {
	bid, ok1 := b.bids.Best()
	ask, ok2 := b.asks.Best()
	if !ok1 || !ok2 {
		return 0, false
	}
	return (bid.Price + ask.Price) / 2, true
}

// Depth returns the number of levels held on side.
func (b *Book) Depth(s Side) int {
	if s == Bid {
		return b.bids.n
	}
	return b.asks.n
}

// Ladder exposes one side read-only for inspection and tests.
func (b *Book) Ladder(s Side) *Ladder {
	if s == Bid {
		return &b.bids
	}
	return &b.asks
}
