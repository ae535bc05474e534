package engine

import (
	"tick2trade/order"
	"tick2trade/ring"
	"tick2trade/transport"
)

// bookSet selects books by venue bit.
type bookSet uint8

const allBooks bookSet = 1<<VenueA | 1<<VenueB

func bookMask(venue uint8) bookSet { return 1 << venue }

// enterSafeMode halts trading. The order of the emitted signals is fixed:
// stale marks, then cancel-all, then the SafeMode signal carrying cause.
// Reconnects are scheduled by the caller afterwards.
func (e *Engine) enterSafeMode(cause ring.Code, books bookSet, now int64) {
	for v := VenueA; v <= VenueB; v++ {
		if books&bookMask(v) == 0 {
			continue
		}
		b := e.books[v]
		b.MarkStale()
		e.emit(ring.ErrorSignal(now, ring.CodeStaleMarked, v, b.LastUpdateID(), 0))
	}
	// healthy market streams must fetch a new snapshot
	for i := TokenMarketA; i <= TokenMarketB; i++ {
		if l := &e.links[i]; l.live && books&bookMask(l.venue) != 0 {
			l.resync = true
		}
	}

	n := e.cancelAll(now)
	e.emit(ring.ErrorSignal(now, ring.CodeCancelAll, VenueB, uint64(n), 0))

	e.safe, e.safeCause = true, cause
	e.emit(ring.ErrorSignal(now, ring.CodeSafeMode, VenueB, uint64(cause), 0))
}

// reowe puts cancels sent on a dead trade session back in the owed set;
// their answers died with the connection.
func (e *Engine) reowe() {
	e.orders.Each(func(o *order.Order) {
		if o.CancelSent {
			o.CancelSent = false
			o.CancelPending = true
		}
	})
}

// tryRecover leaves Safe Mode once every stream is up, both books were
// rebuilt from a snapshot, no order is unresolved and the loss guard is
// clear.
func (e *Engine) tryRecover(now int64) {
	if !e.safe || e.stopping || e.flags.LossGuardTripped() {
		return
	}
	for i := range e.links {
		if l := &e.links[i]; !l.up() || l.resync {
			return
		}
	}
	if e.books[VenueA].IsStale() || e.books[VenueB].IsStale() || e.orders.InFlight() {
		return
	}
	cause := e.safeCause
	e.safe, e.safeCause = false, ring.CodeNone
	e.guard.Reset()
	e.emit(ring.ErrorSignal(now, ring.CodeRecovered, VenueB, uint64(cause), 0))
}

// shutdown handles the kill switch: Safe Mode, a bounded wait for the
// cancels to settle, then a close handshake on every stream.
func (e *Engine) shutdown(now int64) error {
	e.emit(ring.ErrorSignal(now, ring.CodeKillSwitch, VenueB, uint64(e.orders.Live()), 0))
	e.stopping = true
	e.enterSafeMode(ring.CodeKillSwitch, allBooks, now)

	deadline := now + int64(e.opt.DrainTimeout)
	for e.orders.InFlight() && now < deadline {
		if err := e.pump(now); err != nil {
			return err
		}
		now = e.now()
	}

	for i := range e.links {
		e.links[i].s.Close(now, e.opt.DrainTimeout)
	}
	for now < deadline+int64(e.opt.DrainTimeout) {
		open := false
		for i := range e.links {
			s := e.links[i].s
			_ = s.Step(now)
			if s.State() != transport.Idle {
				open = true
			}
		}
		if !open {
			break
		}
		if _, err := e.poll.Wait(e.opt.PollTimeout); err != nil {
			return err
		}
		now = e.now()
	}
	for i := range e.links {
		e.links[i].s.Reset()
	}
	return nil
}
