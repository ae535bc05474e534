// Package order tracks the orders Thread 0 has placed on the executable
// venue, from creation to a terminal venue state.
//
// State machine:
//
//	Created ─▶ Sent ─┬▶ Acked ─┬▶ PartiallyFilled ─┬▶ Filled
//	                 │         │        ▲  │         └▶ Cancelled
//	                 │         │        └──┘
//	                 │         ├▶ Filled
//	                 │         └▶ Cancelled
//	                 └▶ Rejected
//
// Filled, Cancelled and Rejected are terminal.
package order

import "errors"

var (
	ErrIllegalTransition = errors.New("order: illegal state transition")
	ErrOrderRejected     = errors.New("order: rejected by venue")
	ErrAckTimeout        = errors.New("order: acknowledgement timeout")
	ErrUnknownOrder      = errors.New("order: unknown client id")
	ErrTrackerFull       = errors.New("order: no free order slot")
)

// Side is the order direction.
type Side uint8

const (
	Buy Side = iota + 1
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "Buy"
	case Sell:
		return "Sell"
	}
	return "None"
}

// State is an order's position in the lifecycle.
type State uint8

const (
	Created State = iota
	Sent
	Acked
	Rejected
	PartiallyFilled
	Filled
	Cancelled
	numStates
)

var stateNames = [numStates]string{
	Created:         "created",
	Sent:            "sent",
	Acked:           "acked",
	Rejected:        "rejected",
	PartiallyFilled: "partially_filled",
	Filled:          "filled",
	Cancelled:       "cancelled",
}

func (s State) String() string {
	if s < numStates {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Filled || s == Cancelled || s == Rejected
}

var legal = [numStates][numStates]bool{
	Created:         {Sent: true},
	Sent:            {Acked: true, Rejected: true},
	Acked:           {PartiallyFilled: true, Filled: true, Cancelled: true},
	PartiallyFilled: {PartiallyFilled: true, Filled: true, Cancelled: true},
}

// CanTransition reports whether from → to is a legal edge.
func CanTransition(from, to State) bool {
	if from >= numStates || to >= numStates {
		return false
	}
	return legal[from][to]
}

// Order is one tracked order. Seq is the numeric part of its client id.
type Order struct {
	Seq       uint64
	Side      Side
	Price     float64
	Qty       float64
	CumQty    float64
	AvgPrice  float64
	State     State
	CreatedAt int64
	SentAt    int64

	// CancelPending is set by Safe Mode when a cancel is owed but the
	// trade stream could not take it; CancelSent once it went out.
	CancelPending bool
	CancelSent    bool
}

// Transition moves the order to `to`, or returns ErrIllegalTransition and
// leaves it unchanged.
func (o *Order) Transition(to State) error {
	if !CanTransition(o.State, to) {
		return ErrIllegalTransition
	}
	o.State = to
	return nil
}

// Unresolved reports whether the venue has not yet settled the order.
func (o *Order) Unresolved() bool { return !o.State.Terminal() }
