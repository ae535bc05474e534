package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tick2trade/constants"
)

// ============================================================================
// STATE MACHINE
// ============================================================================

func TestTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{Created, Sent, true},
		{Created, Acked, false},
		{Sent, Acked, true},
		{Sent, Rejected, true},
		{Sent, Filled, false},
		{Acked, PartiallyFilled, true},
		{Acked, Filled, true},
		{Acked, Cancelled, true},
		{Acked, Rejected, false},
		{PartiallyFilled, PartiallyFilled, true},
		{PartiallyFilled, Filled, true},
		{PartiallyFilled, Cancelled, true},
		{PartiallyFilled, Acked, false},
		{Filled, Cancelled, false},
		{Cancelled, Filled, false},
		{Rejected, Sent, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			o := Order{State: tt.from}
			err := o.Transition(tt.to)
			if tt.ok {
				require.NoError(t, err)
				require.Equal(t, tt.to, o.State)
			} else {
				require.ErrorIs(t, err, ErrIllegalTransition)
				require.Equal(t, tt.from, o.State, "illegal transition must not mutate")
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []State{Filled, Cancelled, Rejected} {
		require.True(t, s.Terminal(), s.String())
	}
	for _, s := range []State{Created, Sent, Acked, PartiallyFilled} {
		require.False(t, s.Terminal(), s.String())
	}
}

// ============================================================================
// TRACKER
// ============================================================================

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker(time.Second, 1)
	o, err := tr.Open(Buy, 100.05, 1, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(1), o.Seq)
	require.True(t, tr.InFlight())

	require.NoError(t, tr.MarkSent(1, 20))
	_, err = tr.Apply(1, Acked, 0, 0)
	require.NoError(t, err)
	got, err := tr.Apply(1, PartiallyFilled, 0.4, 100.05)
	require.NoError(t, err)
	require.Equal(t, 0.4, got.CumQty)

	got, err = tr.Apply(1, Filled, 1, 100.05)
	require.NoError(t, err)
	require.Equal(t, Filled, got.State)
	require.False(t, tr.InFlight(), "terminal orders free their slot")
	require.Nil(t, tr.Get(1))
}

func TestTrackerImpliedAck(t *testing.T) {
	tr := NewTracker(time.Second, 1)
	_, _ = tr.Open(Sell, 99, 2, 0)
	require.NoError(t, tr.MarkSent(1, 0))

	got, err := tr.Apply(1, Filled, 2, 99)
	require.NoError(t, err)
	require.Equal(t, Filled, got.State)
	require.Zero(t, tr.Live())
}

func TestTrackerDuplicateAckIgnored(t *testing.T) {
	tr := NewTracker(time.Second, 1)
	_, _ = tr.Open(Buy, 1, 1, 0)
	_ = tr.MarkSent(1, 0)
	_, err := tr.Apply(1, Acked, 0, 0)
	require.NoError(t, err)
	_, err = tr.Apply(1, Acked, 0, 0)
	require.NoError(t, err)
	require.Equal(t, Acked, tr.Get(1).State)
}

func TestTrackerRejectAndIllegal(t *testing.T) {
	tr := NewTracker(time.Second, 5)
	_, _ = tr.Open(Buy, 1, 1, 0)

	_, err := tr.Apply(5, Acked, 0, 0)
	require.ErrorIs(t, err, ErrIllegalTransition, "ack before send")
	require.Equal(t, Created, tr.Get(5).State)

	require.NoError(t, tr.MarkSent(5, 0))
	got, err := tr.Apply(5, Rejected, 0, 0)
	require.NoError(t, err)
	require.Equal(t, Rejected, got.State)
	require.Zero(t, tr.Live())

	_, err = tr.Apply(5, Filled, 1, 1)
	require.ErrorIs(t, err, ErrUnknownOrder)
}

func TestTrackerFull(t *testing.T) {
	tr := NewTracker(time.Second, 0)
	for i := 0; i < constants.MaxOrders; i++ {
		_, err := tr.Open(Buy, 1, 1, 0)
		require.NoError(t, err)
	}
	_, err := tr.Open(Buy, 1, 1, 0)
	require.ErrorIs(t, err, ErrTrackerFull)

	tr.Discard(0)
	_, err = tr.Open(Buy, 1, 1, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(constants.MaxOrders+1), tr.NextSeq())
}

func TestTrackerExpired(t *testing.T) {
	tr := NewTracker(100*time.Millisecond, 1)
	_, _ = tr.Open(Buy, 1, 1, 0)
	_, _ = tr.Open(Buy, 1, 1, 0)
	_ = tr.MarkSent(1, 0)
	_ = tr.MarkSent(2, int64(80*time.Millisecond))

	var seen []uint64
	n := tr.Expired(int64(150*time.Millisecond), func(o *Order) { seen = append(seen, o.Seq) })
	require.Equal(t, 1, n)
	require.Equal(t, []uint64{1}, seen)

	_, _ = tr.Apply(1, Acked, 0, 0)
	require.Zero(t, tr.Expired(int64(150*time.Millisecond), nil), "acked orders never expire")
}

func TestTrackerAbandon(t *testing.T) {
	tr := NewTracker(time.Second, 1)
	_, _ = tr.Open(Buy, 1, 1, 0)
	_ = tr.MarkSent(1, 0)
	got, ok := tr.Abandon(1)
	require.True(t, ok)
	require.Equal(t, Cancelled, got.State)
	require.False(t, tr.InFlight())
	_, ok = tr.Abandon(1)
	require.False(t, ok)
}
