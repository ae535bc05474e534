// ════════════════════════════════════════════════════════════════════════════════════════════════
// Cold Loop
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: tick2trade
// Component: Recorder (Thread 1)
//
// Description:
//   Drains the event ring on its own pinned thread. Every event is batched
//   for the sinks, folded into per-venue stats and the session PnL, and
//   error signals are logged as they arrive.
//
// Safety:
//   The recorder is the only writer of the loss-guard flag. It never
//   touches a book, a stream or an order slot.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package recorder

import (
	"time"

	"github.com/phuslu/log"
	"github.com/shopspring/decimal"
	"go.uber.org/atomic"

	"tick2trade/constants"
	"tick2trade/control"
	"tick2trade/order"
	"tick2trade/ring"
)

// Sink persists batches of events. Called from Thread 1 only.
type Sink interface {
	Write(batch []ring.Event) error
	Close() error
}

// Options tunes the cold loop.
type Options struct {
	BatchSize  int
	FlushEvery time.Duration
	StatsEvery time.Duration

	// MaxLoss trips the loss guard once the marked session PnL falls to
	// -MaxLoss. Zero disables the guard.
	MaxLoss decimal.Decimal

	HeapSoft uint64
	HeapHard uint64
}

// Recorder is the Thread 1 state.
type Recorder struct {
	opt   Options
	sinks []Sink
	flags *control.Flags
	log   *log.Logger

	batch     []ring.Event
	lastFlush time.Time
	lastStats time.Time

	pnl   *PnL
	stats [2]VenueStats
	mem   memGuard
}

// New returns a recorder writing to sinks. A nil logger uses the package
// default of phuslu/log.
func New(o Options, flags *control.Flags, logger *log.Logger, sinks ...Sink) *Recorder {
	if o.BatchSize <= 0 {
		o.BatchSize = constants.RecorderBatch
	}
	if o.FlushEvery <= 0 {
		o.FlushEvery = 100 * time.Millisecond
	}
	if o.StatsEvery <= 0 {
		o.StatsEvery = time.Minute
	}
	if logger == nil {
		logger = &log.DefaultLogger
	}
	now := time.Now()
	return &Recorder{
		opt:       o,
		sinks:     sinks,
		flags:     flags,
		log:       logger,
		batch:     make([]ring.Event, 0, o.BatchSize),
		lastFlush: now,
		lastStats: now,
		pnl:       NewPnL(),
		mem:       memGuard{soft: o.HeapSoft, hard: o.HeapHard},
	}
}

// Run starts the pinned consumer on core. done is closed once stop is set
// and the ring is empty; call Close after that.
func (r *Recorder) Run(core int, c *ring.Consumer[ring.Event], stop *atomic.Bool, done chan<- struct{}) {
	ring.PinnedConsumer(core, c, stop, r.opt.FlushEvery, r.Handle, r.Idle, done)
}

// Handle takes one event off the ring.
func (r *Recorder) Handle(ev *ring.Event) {
	r.batch = append(r.batch, *ev)
	r.observe(ev)
	if len(r.batch) >= r.opt.BatchSize {
		r.Flush()
	}
}

// Idle runs when the ring has gone quiet: late flush, stats, heap check.
func (r *Recorder) Idle() {
	now := time.Now()
	if len(r.batch) > 0 && now.Sub(r.lastFlush) >= r.opt.FlushEvery {
		r.Flush()
	}
	if now.Sub(r.lastStats) >= r.opt.StatsEvery {
		r.lastStats = now
		r.logStats()
	}
}

// Flush hands the pending batch to every sink. A failing sink is logged
// and skipped; the batch is dropped either way.
func (r *Recorder) Flush() {
	if len(r.batch) == 0 {
		return
	}
	for _, s := range r.sinks {
		if err := s.Write(r.batch); err != nil {
			r.log.Error().Err(err).Int("events", len(r.batch)).Msg("recorder: sink write")
		}
	}
	r.batch = r.batch[:0]
	r.lastFlush = time.Now()
	r.mem.check(r.log)
}

// Close flushes, logs the final stats and closes the sinks.
func (r *Recorder) Close() error {
	r.Flush()
	r.logStats()
	var first error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Stats returns the counters for venue.
func (r *Recorder) Stats(venue uint8) VenueStats { return r.stats[venue&1] }

// PnL returns the session PnL. Thread 1 only.
func (r *Recorder) PnL() *PnL { return r.pnl }

func (r *Recorder) observe(ev *ring.Event) {
	st := &r.stats[ev.Venue&1]
	switch ev.Kind {
	case ring.KindMarketTick:
		st.Ticks++
		if ev.Venue == 1 {
			r.pnl.Mark(ev.F[0], ev.F[2])
			r.checkLoss()
		}

	case ring.KindOrderLifecycle:
		state := order.State(ev.State)
		switch state {
		case order.Sent:
			st.Orders++
		case order.Rejected:
			st.Rejects++
		}
		if r.pnl.OnOrder(ev.Seq, order.Side(ev.Side), state, ev.F[2], ev.F[3]) {
			st.Fills++
			r.checkLoss()
		}

	case ring.KindErrorSignal:
		st.count(ev.Code)
		r.logSignal(ev)

	case ring.KindLatencySample:
		st.observeLatency(ev.F[0])
	}
}

func (r *Recorder) checkLoss() {
	if r.opt.MaxLoss.IsZero() || r.flags == nil || !r.pnl.Marked() {
		return
	}
	total := r.pnl.Total()
	if total.GreaterThan(r.opt.MaxLoss.Neg()) || r.flags.LossGuardTripped() {
		return
	}
	if r.flags.TripLossGuard() {
		r.log.Error().Str("pnl", total.String()).Str("limit", r.opt.MaxLoss.String()).Msg("recorder: loss guard tripped")
	}
}

func (r *Recorder) logSignal(ev *ring.Event) {
	e := r.log.Warn()
	switch ev.Code {
	case ring.CodeRecovered, ring.CodeReconnect, ring.CodeResync:
		e = r.log.Info()
	case ring.CodeSafeMode, ring.CodeKillSwitch, ring.CodeLossGuard:
		e = r.log.Error()
	}
	e = e.Str("code", ev.Code.String()).Int("venue", int(ev.Venue)).Int64("ts", ev.TS)
	switch ev.Code {
	case ring.CodeSafeMode, ring.CodeRecovered:
		e = e.Str("cause", ring.Code(ev.Seq).String())
	default:
		e = e.Uint64("detail", ev.Seq).Float64("value", ev.F[0])
	}
	e.Msg("signal")
}

func (r *Recorder) logStats() {
	for v := range r.stats {
		s := &r.stats[v]
		r.log.Info().
			Int("venue", v).
			Uint64("ticks", s.Ticks).
			Uint64("gaps", s.Gaps).
			Uint64("resyncs", s.Resyncs).
			Uint64("malformed", s.Malformed).
			Uint64("faults", s.Faults).
			Uint64("orders", s.Orders).
			Uint64("fills", s.Fills).
			Uint64("rejects", s.Rejects).
			Dur("latency_mean", s.MeanLatency()).
			Dur("latency_max", s.MaxLatency()).
			Msg("stats")
	}
	r.log.Info().
		Str("position", r.pnl.Position().String()).
		Str("pnl", r.pnl.Total().String()).
		Msg("pnl")
}
