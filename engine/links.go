package engine

import (
	"tick2trade/codec"
	"tick2trade/constants"
	"tick2trade/ring"
	"tick2trade/transport"
	"tick2trade/ws"
)

type role uint8

const (
	roleMarket role = iota
	roleTrade
)

// link is one stream plus the session state the engine keeps for it.
type link struct {
	s     Stream
	role  role
	venue uint8
	topic string

	// out holds encoded frames the transport has not accepted yet.
	out [constants.OutboxSize]byte
	on  int

	live   bool // subscribe or auth sent this session
	authed bool // trade stream: auth acknowledged
	resync bool // resubscribe owed
	fresh  bool // just reached Streaming, drain without readiness

	failures int
	retryAt  int64
}

// up reports whether the stream can carry application traffic.
func (l *link) up() bool {
	if l.s.State() != transport.Streaming || !l.live {
		return false
	}
	return l.role != roleTrade || l.authed
}

func (e *Engine) stepLink(l *link, now int64) {
	if err := l.s.Step(now); err != nil {
		e.onFault(l, err, now)
		return
	}
	switch l.s.State() {
	case transport.Idle:
		if !e.stopping && now >= l.retryAt {
			e.reconnect(l, now)
		}
	case transport.Streaming:
		if !l.live {
			e.open(l, now)
		}
		if l.resync && l.live {
			e.resubscribe(l, now)
		}
		e.flushOut(l, now)
	case transport.Faulted:
		e.onFault(l, l.s.Fault(), now)
	}
}

func (e *Engine) reconnect(l *link, now int64) {
	if l.failures > 0 {
		e.emit(ring.ErrorSignal(now, ring.CodeReconnect, l.venue, uint64(l.failures), 0))
	}
	if err := l.s.Connect(now); err != nil {
		e.onFault(l, err, now)
	}
}

// open starts the session on a freshly upgraded stream: the depth
// subscription on market streams, auth on the trade stream.
func (e *Engine) open(l *link, now int64) {
	var (
		n   int
		err error
	)
	if l.role == roleMarket {
		n, err = codec.FormatSubscribe(e.body[:], l.topic)
		// the venue answers with a snapshot
		e.books[l.venue].MarkStale()
	} else {
		expires := now/1e6 + int64(e.opt.AuthTTL/1e6)
		e.opt.Signer.SignRealtime(expires, &e.sig)
		n, err = codec.FormatAuth(e.body[:], e.opt.APIKey, expires, e.sig[:])
	}
	if err != nil {
		e.emit(ring.ErrorSignal(now, ring.CodeBufferTooSmall, l.venue, 0, 0))
		return
	}
	if e.send(l, e.body[:n], now) {
		l.live = true
		l.fresh = true
		l.failures = 0
	}
}

// resubscribe asks the venue for a new snapshot after a gap.
func (e *Engine) resubscribe(l *link, now int64) {
	need := ws.FrameSize(len(`{"op":"unsubscribe","args":[""]}`)+len(l.topic)) +
		ws.FrameSize(len(`{"op":"subscribe","args":[""]}`)+len(l.topic))
	if len(l.out)-l.on < need {
		return
	}
	n, _ := codec.FormatUnsubscribe(e.body[:], l.topic)
	if !e.send(l, e.body[:n], now) {
		return
	}
	n, _ = codec.FormatSubscribe(e.body[:], l.topic)
	if !e.send(l, e.body[:n], now) {
		return
	}
	l.resync = false
	e.emit(ring.ErrorSignal(now, ring.CodeResync, l.venue, e.books[l.venue].LastUpdateID(), 0))
}

// send frames payload into the link outbox and pushes what the transport
// takes. False means the frame was not queued or the write faulted the
// stream; either way it never leaves the process.
func (e *Engine) send(l *link, payload []byte, now int64) bool {
	if l.s.State() != transport.Streaming {
		return false
	}
	if len(l.out)-l.on < ws.FrameSize(len(payload)) {
		e.emit(ring.ErrorSignal(now, ring.CodeBufferTooSmall, l.venue, uint64(l.on), 0))
		return false
	}
	n, err := l.s.Frame(l.out[l.on:], payload)
	if err != nil {
		e.emit(ring.ErrorSignal(now, ring.CodeBufferTooSmall, l.venue, uint64(l.on), 0))
		return false
	}
	l.on += n
	return e.flushOut(l, now)
}

// flushOut writes the outbox until the transport stops taking bytes.
// False means the write faulted and the stream was torn down.
func (e *Engine) flushOut(l *link, now int64) bool {
	for l.on > 0 {
		n, err := l.s.Write(l.out[:l.on])
		if err != nil {
			e.onFault(l, err, now)
			return false
		}
		if n == 0 {
			break
		}
		l.on = copy(l.out[:], l.out[n:l.on])
	}
	return l.s.State() == transport.Streaming
}

// drain reads every complete message the stream holds.
func (e *Engine) drain(l *link) {
	if l.s.State() != transport.Streaming {
		return
	}
	for i := 0; i < maxBatch; i++ {
		msg, err := l.s.ReadMessage(e.now())
		if err == transport.ErrWouldBlock {
			return
		}
		if err != nil {
			e.onFault(l, err, e.now())
			return
		}
		rx := e.now()
		if l.role == roleMarket {
			e.onMarket(l, msg, rx)
		} else {
			e.onTrade(l, msg, rx)
		}
		if l.s.State() != transport.Streaming {
			return
		}
	}
	// more may be buffered; come back without waiting for readiness
	l.fresh = true
}

// onFault runs Safe Mode for a dead stream, then tears it down and
// schedules the reconnect.
func (e *Engine) onFault(l *link, err error, now int64) {
	e.emit(ring.ErrorSignal(now, ring.CodeTransportFault, l.venue, uint64(transport.KindOf(err)), 0))

	mask := allBooks
	if l.role == roleMarket {
		mask = bookMask(l.venue)
	} else {
		e.reowe()
	}
	l.live, l.authed, l.resync, l.on = false, false, false, 0
	e.enterSafeMode(ring.CodeTransportFault, mask, now)

	l.s.Reset()
	l.failures++
	l.retryAt = now + int64(transport.Backoff(l.failures, e.opt.BackoffBase, e.opt.BackoffMax))
}
