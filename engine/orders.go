package engine

import (
	"errors"

	"tick2trade/codec"
	"tick2trade/order"
	"tick2trade/ring"
	"tick2trade/strategy"
	"tick2trade/transport"
)

// errAuthRejected faults the trade stream when the venue refuses the
// credentials. The reconnect retries with a fresh signature.
var errAuthRejected = &transport.TransportError{
	Kind: transport.KindHandshakeFailed,
	Op:   "auth",
	Err:  errors.New("credentials refused"),
}

// place turns an intent into an order frame on the trade stream.
func (e *Engine) place(in *strategy.Intent, now int64) {
	o, err := e.orders.Open(in.Side, in.Price, in.Qty, now)
	if err != nil {
		return
	}
	in.ClientID, in.CreatedAt = o.Seq, now

	trade := &e.links[TokenTrade]
	n, err := codec.FormatOrder(e.body[:], &e.opt.Venue, in.Side, in.Price, in.Qty, e.opt.Prefix, o.Seq, now/1e6)
	if err != nil {
		e.orders.Discard(o.Seq)
		e.emit(ring.ErrorSignal(now, ring.CodeBufferTooSmall, VenueB, o.Seq, 0))
		return
	}
	if !e.send(trade, e.body[:n], now) {
		e.orders.Discard(o.Seq)
		return
	}
	_ = e.orders.MarkSent(o.Seq, now)
	e.emitOrder(now, o)
}

// onTrade handles acks, rejects and order pushes from the trade stream.
func (e *Engine) onTrade(l *link, msg []byte, rx int64) {
	m := &e.msg
	if err := e.parser.Parse(msg, m); err != nil {
		e.emit(ring.ErrorSignal(rx, ring.CodeMalformed, l.venue, uint64(len(msg)), 0))
		return
	}

	switch m.Kind {
	case codec.MsgAuth:
		if !m.OK {
			e.onFault(l, errAuthRejected, rx)
			return
		}
		l.authed = true
		e.flushCancels(rx)

	case codec.MsgOrderAck:
		if !m.Ours {
			return
		}
		to := order.Acked
		if !m.OK {
			to = order.Rejected
		}
		e.applyState(rx, m.ClientSeq, to, 0, 0, m.RetCode)

	case codec.MsgCancelAck:
		if !m.Ours || m.OK {
			// the order push carries the Cancelled state
			return
		}
		if m.RetCode == codec.RetOrderNotExists {
			if o, ok := e.orders.Abandon(m.ClientSeq); ok {
				e.emitOrder(rx, &o)
			}
			return
		}
		e.emit(ring.ErrorSignal(rx, ring.CodeOrderRejected, l.venue, m.ClientSeq, float64(m.RetCode)))

	case codec.MsgOrderUpdate:
		for i := 0; i < m.N; i++ {
			u := &m.Updates[i]
			if u.Ours {
				e.applyState(rx, u.ClientSeq, u.State, u.CumQty, u.AvgPrice, 0)
			}
		}
	}
}

// applyState records a venue-reported transition. A rejection halts
// trading whether it came as an op response or an order push.
func (e *Engine) applyState(now int64, seq uint64, to order.State, cumQty, avgPrice float64, retCode int) {
	o, err := e.orders.Apply(seq, to, cumQty, avgPrice)
	if err == order.ErrUnknownOrder {
		return
	}
	e.emitOrder(now, &o)
	if err == nil && to == order.Rejected {
		e.emit(ring.ErrorSignal(now, ring.CodeOrderRejected, VenueB, seq, float64(retCode)))
		e.enterSafeMode(ring.CodeOrderRejected, allBooks, now)
	}
}

func (e *Engine) emitOrder(now int64, o *order.Order) {
	e.emit(ring.OrderLifecycle(now, VenueB, o.Seq, uint8(o.State), uint8(o.Side), o.Price, o.Qty, o.CumQty, o.AvgPrice))
}

// cancelAll asks the venue to cancel every unresolved order. Orders the
// trade stream cannot take right now are flagged and sent on recovery of
// the stream. It returns the number of orders covered.
func (e *Engine) cancelAll(now int64) int {
	n := 0
	e.orders.Each(func(o *order.Order) {
		// a Created order is still being framed; place discards it
		if o.CancelSent || o.State == order.Created {
			return
		}
		n++
		o.CancelPending = true
		e.sendCancel(o, now)
	})
	return n
}

// flushCancels sends cancels owed from an earlier Safe Mode entry.
func (e *Engine) flushCancels(now int64) {
	if !e.links[TokenTrade].up() {
		return
	}
	e.orders.Each(func(o *order.Order) {
		if o.CancelPending && !o.CancelSent {
			e.sendCancel(o, now)
		}
	})
}

func (e *Engine) sendCancel(o *order.Order, now int64) {
	trade := &e.links[TokenTrade]
	if !trade.up() {
		return
	}
	n, err := codec.FormatCancel(e.body[:], &e.opt.Venue, e.opt.Prefix, o.Seq, now/1e6)
	if err != nil {
		return
	}
	if e.send(trade, e.body[:n], now) {
		o.CancelPending = false
		o.CancelSent = true
	}
}
