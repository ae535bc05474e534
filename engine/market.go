package engine

import (
	"tick2trade/codec"
	"tick2trade/orderbook"
	"tick2trade/ring"
	"tick2trade/strategy"
)

// onMarket is the tick path: decode, apply, evaluate, write.
func (e *Engine) onMarket(l *link, msg []byte, rx int64) {
	d := &e.depth
	switch err := codec.ParseDepth(msg, d); {
	case err == nil:
	case err == codec.ErrNotDepth:
		return
	default:
		e.emit(ring.ErrorSignal(rx, ring.CodeMalformed, l.venue, uint64(len(msg)), 0))
		return
	}

	book := e.books[l.venue]
	switch err := codec.Apply(book, d); {
	case err == nil:
	case codec.IsGap(err):
		e.emit(ring.ErrorSignal(rx, ring.CodeGap, l.venue, d.UpdateID, float64(book.LastUpdateID())))
		l.resync = true
		e.resubscribe(l, rx)
		return
	case err == orderbook.ErrStale:
		// deltas between a gap and the new snapshot
		return
	default:
		return
	}
	tBook := e.now()

	bid, _ := book.BestBid()
	ask, _ := book.BestAsk()
	e.emit(ring.MarketTick(tBook, l.venue, d.UpdateID, bid.Price, bid.Qty, ask.Price, ask.Qty))

	// ───── signal ─────
	if e.safe || !e.links[TokenTrade].up() {
		return
	}
	in, ok := strategy.Evaluate(e.books[VenueA], e.books[VenueB], e.opt.Params, e.orders.Live())
	tSignal := e.now()
	tWrite := tSignal
	if ok {
		e.place(&in, tSignal)
		tWrite = e.now()
	}

	total := tWrite - rx
	e.emit(ring.LatencySample(tWrite, l.venue, d.UpdateID,
		float64(total), float64(tBook-rx), float64(tSignal-tBook), float64(tWrite-tSignal)))
	if err := e.guard.Observe(total); err != nil {
		e.emit(ring.ErrorSignal(tWrite, ring.CodeLatencyGuard, l.venue, d.UpdateID, float64(total)))
		e.enterSafeMode(ring.CodeLatencyGuard, allBooks, tWrite)
	}
}
