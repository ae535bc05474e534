// event.go
//
// Event is the one value type the hot thread sends to the cold thread.
// It is exactly one cache line and holds no pointers, so a ring slot copy
// is a flat 64-byte move and the GC never scans the buffer.
//
// Payload layout per kind:
//
//	KindMarketTick      Seq=update id   F=[bid, bidQty, ask, askQty]
//	KindOrderLifecycle  Seq=client seq  F=[price, qty, cumQty, avgPrice]  State=order.State
//	KindErrorSignal     Seq=detail      F=[value, 0, 0, 0]                Code=Code
//	KindLatencySample   Seq=update id   F=[total, book, signal, write] ns

package ring

// Kind tags the Event variant.
type Kind uint8

const (
	KindMarketTick Kind = iota + 1
	KindOrderLifecycle
	KindErrorSignal
	KindLatencySample
)

func (k Kind) String() string {
	switch k {
	case KindMarketTick:
		return "market_tick"
	case KindOrderLifecycle:
		return "order_lifecycle"
	case KindErrorSignal:
		return "error_signal"
	case KindLatencySample:
		return "latency_sample"
	}
	return "unknown"
}

// Code classifies an ErrorSignal.
type Code uint16

const (
	CodeNone Code = iota
	CodeGap
	CodeMalformed
	CodeResync
	CodeStaleMarked
	CodeCancelAll
	CodeSafeMode
	CodeReconnect
	CodeRecovered
	CodeTransportFault
	CodeAckTimeout
	CodeOrderRejected
	CodeLatencyGuard
	CodeLossGuard
	CodeKillSwitch
	CodeBufferTooSmall
	CodeChannelFull
)

var codeNames = [...]string{
	CodeNone:           "none",
	CodeGap:            "gap",
	CodeMalformed:      "malformed",
	CodeResync:         "resync",
	CodeStaleMarked:    "stale_marked",
	CodeCancelAll:      "cancel_all",
	CodeSafeMode:       "safe_mode",
	CodeReconnect:      "reconnect",
	CodeRecovered:      "recovered",
	CodeTransportFault: "transport_fault",
	CodeAckTimeout:     "ack_timeout",
	CodeOrderRejected:  "order_rejected",
	CodeLatencyGuard:   "latency_guard",
	CodeLossGuard:      "loss_guard",
	CodeKillSwitch:     "kill_switch",
	CodeBufferTooSmall: "buffer_too_small",
	CodeChannelFull:    "channel_full",
}

func (c Code) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return "unknown"
}

// Event is a fixed-size tagged record. See the file header for layout.
type Event struct {
	TS    int64
	Seq   uint64
	F     [4]float64
	Code  Code
	Kind  Kind
	Venue uint8
	Side  uint8
	State uint8
	_     [10]byte
}

// MarketTick records the top of book after an update was applied.
//
//go:nosplit
func MarketTick(ts int64, venue uint8, updateID uint64, bid, bidQty, ask, askQty float64) Event {
	return Event{
		TS: ts, Seq: updateID, Kind: KindMarketTick, Venue: venue,
		F: [4]float64{bid, bidQty, ask, askQty},
	}
}

// OrderLifecycle records an order state transition.
//
//go:nosplit
func OrderLifecycle(ts int64, venue uint8, clientSeq uint64, state, side uint8, price, qty, cumQty, avgPrice float64) Event {
	return Event{
		TS: ts, Seq: clientSeq, Kind: KindOrderLifecycle, Venue: venue,
		State: state, Side: side,
		F: [4]float64{price, qty, cumQty, avgPrice},
	}
}

// ErrorSignal records a fault, a Safe Mode step or a recovery.
//
//go:nosplit
func ErrorSignal(ts int64, code Code, venue uint8, detail uint64, value float64) Event {
	return Event{
		TS: ts, Seq: detail, Kind: KindErrorSignal, Code: code, Venue: venue,
		F: [4]float64{value},
	}
}

// LatencySample records the stage timings of one tick, in nanoseconds.
//
//go:nosplit
func LatencySample(ts int64, venue uint8, updateID uint64, total, book, signal, write float64) Event {
	return Event{
		TS: ts, Seq: updateID, Kind: KindLatencySample, Venue: venue,
		F: [4]float64{total, book, signal, write},
	}
}
