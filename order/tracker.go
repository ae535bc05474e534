package order

import (
	"time"

	"tick2trade/constants"
)

// Tracker holds live orders in a fixed slot table. Owned by Thread 0.
//
// Slots are freed as soon as an order reaches a terminal state, so at most
// constants.MaxOrders orders can be unresolved at once.
type Tracker struct {
	slots      [constants.MaxOrders]Order
	used       [constants.MaxOrders]bool
	live       int
	next       uint64
	ackTimeout int64
}

// NewTracker returns an empty tracker. Client sequence numbers start at
// firstSeq so restarts inside one session never reuse an id.
func NewTracker(ackTimeout time.Duration, firstSeq uint64) *Tracker {
	return &Tracker{next: firstSeq, ackTimeout: int64(ackTimeout)}
}

// Open reserves a slot for a new order in state Created.
func (t *Tracker) Open(side Side, price, qty float64, now int64) (*Order, error) {
	for i := range t.used {
		if t.used[i] {
			continue
		}
		t.used[i] = true
		t.live++
		t.slots[i] = Order{
			Seq:       t.next,
			Side:      side,
			Price:     price,
			Qty:       qty,
			State:     Created,
			CreatedAt: now,
		}
		t.next++
		return &t.slots[i], nil
	}
	return nil, ErrTrackerFull
}

func (t *Tracker) find(seq uint64) int {
	for i := range t.used {
		if t.used[i] && t.slots[i].Seq == seq {
			return i
		}
	}
	return -1
}

// Get returns the live order with seq, or nil.
func (t *Tracker) Get(seq uint64) *Order {
	if i := t.find(seq); i >= 0 {
		return &t.slots[i]
	}
	return nil
}

// MarkSent records that the order frame was handed to the transport.
func (t *Tracker) MarkSent(seq uint64, now int64) error {
	i := t.find(seq)
	if i < 0 {
		return ErrUnknownOrder
	}
	o := &t.slots[i]
	if err := o.Transition(Sent); err != nil {
		return err
	}
	o.SentAt = now
	return nil
}

// Apply moves an order to a venue-reported state and returns a copy of the
// result. A fill or cancel reported before the ack implies the ack. An
// update repeating the current non-repeatable state is ignored. Terminal
// orders release their slot.
func (t *Tracker) Apply(seq uint64, to State, cumQty, avgPrice float64) (Order, error) {
	i := t.find(seq)
	if i < 0 {
		return Order{}, ErrUnknownOrder
	}
	o := &t.slots[i]

	if o.State == to && to != PartiallyFilled {
		return *o, nil
	}
	if o.State == Sent && (to == PartiallyFilled || to == Filled || to == Cancelled) {
		o.State = Acked
	}
	if err := o.Transition(to); err != nil {
		return *o, err
	}
	if cumQty > 0 {
		o.CumQty = cumQty
	}
	if avgPrice > 0 {
		o.AvgPrice = avgPrice
	}

	out := *o
	if to.Terminal() {
		t.release(i)
	}
	return out, nil
}

// Abandon settles an order the venue no longer knows, as Cancelled with
// whatever fill was last reported. Used when a cancel is answered with
// "order does not exist".
func (t *Tracker) Abandon(seq uint64) (Order, bool) {
	i := t.find(seq)
	if i < 0 {
		return Order{}, false
	}
	t.slots[i].State = Cancelled
	out := t.slots[i]
	t.release(i)
	return out, true
}

func (t *Tracker) release(i int) {
	t.used[i] = false
	t.slots[i] = Order{}
	t.live--
}

// Live returns the number of unresolved orders.
func (t *Tracker) Live() int { return t.live }

// InFlight reports whether any order is unresolved.
//
//go:nosplit
func (t *Tracker) InFlight() bool { return t.live > 0 }

// NextSeq returns the sequence number the next Open will use.
func (t *Tracker) NextSeq() uint64 { return t.next }

// Each calls fn for every live order.
func (t *Tracker) Each(fn func(*Order)) {
	for i := range t.used {
		if t.used[i] {
			fn(&t.slots[i])
		}
	}
}

// Expired calls fn for every Sent order whose ack is overdue at now. It
// returns how many were found.
func (t *Tracker) Expired(now int64, fn func(*Order)) int {
	n := 0
	for i := range t.used {
		if !t.used[i] {
			continue
		}
		o := &t.slots[i]
		if o.State == Sent && now-o.SentAt > t.ackTimeout {
			n++
			if fn != nil {
				fn(o)
			}
		}
	}
	return n
}

// Discard drops a Created order whose frame never left the process.
func (t *Tracker) Discard(seq uint64) {
	if i := t.find(seq); i >= 0 && t.slots[i].State == Created {
		t.release(i)
	}
}
