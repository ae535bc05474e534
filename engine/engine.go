// ════════════════════════════════════════════════════════════════════════════════════════════════
// Hot Loop
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: tick2trade
// Component: Engine (Thread 0)
//
// Description:
//   One goroutine, locked to one OS thread, owns every book, stream and
//   order slot. Each iteration:
//
//     1. kill switch and loss guard
//     2. stream state machines (connect, handshake, keep-alive, flush)
//     3. poller wait, the only suspension point
//     4. drain readable streams: depth → book → signal → order write
//     5. housekeeping: ack timeouts, owed cancels, drop report, recovery
//
//   Telemetry leaves through the SPSC ring only. A full ring drops the
//   event; order intents never touch the ring.
//
// Safe Mode:
//   cause signal → stale-mark → cancel-all → SafeMode signal, and only
//   then reconnect with backoff. Trading resumes once every stream is up,
//   both books came back through a snapshot and no order is unresolved.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package engine

import (
	"errors"
	"fmt"
	"time"

	"tick2trade/auth"
	"tick2trade/clock"
	"tick2trade/codec"
	"tick2trade/constants"
	"tick2trade/control"
	"tick2trade/order"
	"tick2trade/orderbook"
	"tick2trade/ring"
	"tick2trade/strategy"
	"tick2trade/transport"
)

// Venue ids carried in events.
const (
	VenueA uint8 = iota // reference market
	VenueB              // executable market
)

// Stream tokens. Transport configs must use these as poller tokens.
const (
	TokenMarketA int32 = iota
	TokenMarketB
	TokenTrade
	numLinks
)

// maxBatch bounds the messages drained from one stream per iteration.
const maxBatch = 256

// dropReportEvery is the interval between ChannelFull reports.
const dropReportEvery = int64(time.Second)

// Stream is one venue websocket as the hot loop drives it.
// *transport.Conn implements it.
type Stream interface {
	State() transport.State
	Connect(now int64) error
	Step(now int64) error
	ReadMessage(now int64) ([]byte, error)
	Frame(dst, payload []byte) (int, error)
	Write(p []byte) (int, error)
	Close(now int64, drain time.Duration)
	Reset()
	Fault() error
}

// Poller is the readiness multiplexer. *transport.Poller implements it.
type Poller interface {
	Wait(timeout time.Duration) ([]transport.Readiness, error)
}

// Options is the immutable engine configuration.
type Options struct {
	Params   strategy.Params
	Venue    codec.Venue
	Prefix   []byte // client id prefix, constants.ClientIDPrefixLen bytes
	FirstSeq uint64

	APIKey  string
	Signer  *auth.Signer
	AuthTTL time.Duration

	TopicA string
	TopicB string

	AckTimeout   time.Duration
	LatencyLimit time.Duration
	LatencyTicks int
	PollTimeout  time.Duration
	BackoffBase  time.Duration
	BackoffMax   time.Duration
	DrainTimeout time.Duration
}

// Deps are the collaborators the engine drives but does not build.
type Deps struct {
	MarketA Stream
	MarketB Stream
	Trade   Stream
	Poll    Poller
	Events  *ring.Producer[ring.Event]
	Flags   *control.Flags
	Clock   clock.Func
}

var ErrMissingDep = errors.New("engine: missing dependency")

// Engine is the Thread 0 state. Not safe for use by more than one goroutine.
type Engine struct {
	opt    Options
	links  [numLinks]link
	books  [2]*orderbook.Book
	orders *order.Tracker
	guard  *strategy.LatencyGuard
	parser *codec.OrderParser

	poll   Poller
	events *ring.Producer[ring.Event]
	flags  *control.Flags
	now    clock.Func

	depth    codec.Depth
	msg      codec.OrderMsg
	body     [constants.OrderBufferSize]byte
	sig      [auth.HexLen]byte
	readable [numLinks]bool

	safe      bool
	safeCause ring.Code
	stopping  bool

	lastDrops  uint64
	nextReport int64
}

// New wires an engine. Every Deps field except Clock is required.
func New(o Options, d Deps) (*Engine, error) {
	if d.MarketA == nil || d.MarketB == nil || d.Trade == nil || d.Poll == nil || d.Events == nil || d.Flags == nil {
		return nil, ErrMissingDep
	}
	if o.Signer == nil {
		return nil, fmt.Errorf("%w: signer", ErrMissingDep)
	}
	if d.Clock == nil {
		d.Clock = clock.Now
	}
	if o.PollTimeout <= 0 {
		o.PollTimeout = time.Millisecond
	}
	if o.AuthTTL <= 0 {
		o.AuthTTL = 10 * time.Second
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = time.Second
	}

	e := &Engine{
		opt:    o,
		orders: order.NewTracker(o.AckTimeout, o.FirstSeq),
		guard:  strategy.NewLatencyGuard(o.LatencyLimit, o.LatencyTicks),
		parser: codec.NewOrderParser(o.Prefix),
		poll:   d.Poll,
		events: d.Events,
		flags:  d.Flags,
		now:    d.Clock,
	}
	e.books[VenueA] = orderbook.New(VenueA)
	e.books[VenueB] = orderbook.New(VenueB)
	e.links[TokenMarketA] = link{s: d.MarketA, role: roleMarket, venue: VenueA, topic: o.TopicA}
	e.links[TokenMarketB] = link{s: d.MarketB, role: roleMarket, venue: VenueB, topic: o.TopicB}
	e.links[TokenTrade] = link{s: d.Trade, role: roleTrade, venue: VenueB}
	return e, nil
}

// Run drives the loop until the kill switch is set, then cancels, drains
// and closes every stream. A non-nil error means the poller itself failed.
func (e *Engine) Run() error {
	for {
		done, err := e.iterate()
		if err != nil || done {
			return err
		}
	}
}

// iterate is one pass of the loop. done is true once the kill switch has
// been handled.
func (e *Engine) iterate() (done bool, err error) {
	now := e.now()

	// ───── 1: operator and cold-side flags ─────
	if e.flags.Killed() {
		return true, e.shutdown(now)
	}
	if !e.safe && e.flags.LossGuardTripped() {
		e.emit(ring.ErrorSignal(now, ring.CodeLossGuard, VenueB, 0, 0))
		e.enterSafeMode(ring.CodeLossGuard, allBooks, now)
	}

	// ───── 2-5: streams, wait, drain, housekeeping ─────
	return false, e.pump(now)
}

// pump steps every stream, waits for readiness, drains and runs
// housekeeping.
func (e *Engine) pump(now int64) error {
	for i := range e.links {
		e.stepLink(&e.links[i], now)
	}
	if err := e.wait(e.opt.PollTimeout); err != nil {
		return err
	}
	for i := range e.links {
		l := &e.links[i]
		if e.readable[i] || l.fresh {
			e.readable[i] = false
			l.fresh = false
			e.drain(l)
		}
	}
	e.housekeeping(e.now())
	return nil
}

func (e *Engine) wait(timeout time.Duration) error {
	ready, err := e.poll.Wait(timeout)
	if err != nil {
		return fmt.Errorf("engine: poller: %w", err)
	}
	for _, r := range ready {
		if r.Token >= 0 && r.Token < numLinks && (r.Readable || r.Hangup) {
			e.readable[r.Token] = true
		}
	}
	return nil
}

func (e *Engine) housekeeping(now int64) {
	if e.orders.InFlight() {
		overdue := 0
		e.orders.Expired(now, func(o *order.Order) {
			if o.CancelPending || o.CancelSent {
				return // already owed a cancel
			}
			overdue++
			e.emit(ring.ErrorSignal(now, ring.CodeAckTimeout, VenueB, o.Seq, float64(now-o.SentAt)))
		})
		if overdue > 0 {
			e.enterSafeMode(ring.CodeAckTimeout, allBooks, now)
		}
		e.flushCancels(now)
	}

	if now >= e.nextReport {
		e.nextReport = now + dropReportEvery
		if d := e.events.Dropped(); d != e.lastDrops {
			e.lastDrops = d
			e.emit(ring.ErrorSignal(now, ring.CodeChannelFull, 0, d, 0))
		}
	}

	if e.safe {
		e.tryRecover(now)
	}
}

// emit pushes one event. A full ring drops it; Producer counts the drop.
func (e *Engine) emit(ev ring.Event) { e.events.TryPush(ev) }

// Book returns the book for venue. For inspection between iterations.
func (e *Engine) Book(venue uint8) *orderbook.Book { return e.books[venue] }

// Orders returns the order tracker. For inspection between iterations.
func (e *Engine) Orders() *order.Tracker { return e.orders }

// SafeMode reports whether trading is halted and the cause.
func (e *Engine) SafeMode() (bool, ring.Code) { return e.safe, e.safeCause }
