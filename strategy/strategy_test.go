package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tick2trade/order"
	"tick2trade/orderbook"
)

type lv = orderbook.Level

func book(venue uint8, bids, asks []lv) *orderbook.Book {
	b := orderbook.New(venue)
	b.ApplySnapshot(1, bids, asks)
	return b
}

func TestEvaluateBuyOnB(t *testing.T) {
	a := book(0, []lv{{Price: 100.00, Qty: 1}}, nil)
	b := book(1, nil, []lv{{Price: 100.05, Qty: 1}})

	in, ok := Evaluate(a, b, Params{Threshold: 0.02}, 0)
	require.True(t, ok)
	require.Equal(t, order.Buy, in.Side)
	require.Equal(t, 100.05, in.Price)
	require.Equal(t, 1.0, in.Qty)
	require.InDelta(t, 0.05, in.Spread, 1e-9)
}

func TestEvaluateSellOnB(t *testing.T) {
	a := book(0, nil, []lv{{Price: 101.00, Qty: 3}})
	b := book(1, []lv{{Price: 100.90, Qty: 2}}, nil)

	in, ok := Evaluate(a, b, Params{Threshold: 0.05}, 0)
	require.True(t, ok)
	require.Equal(t, order.Sell, in.Side)
	require.Equal(t, 100.90, in.Price)
	require.Equal(t, 2.0, in.Qty)
}

func TestEvaluateWiderLegWins(t *testing.T) {
	a := book(0, []lv{{Price: 100.00, Qty: 1}}, []lv{{Price: 100.50, Qty: 1}})
	b := book(1, []lv{{Price: 100.10, Qty: 1}}, []lv{{Price: 100.20, Qty: 1}})

	// buy spread 0.20, sell spread 0.40
	in, ok := Evaluate(a, b, Params{Threshold: 0.1}, 0)
	require.True(t, ok)
	require.Equal(t, order.Sell, in.Side)
	require.Equal(t, 100.10, in.Price)
}

func TestEvaluateNoIntent(t *testing.T) {
	fresh := func() (*orderbook.Book, *orderbook.Book) {
		return book(0, []lv{{Price: 100.00, Qty: 1}}, nil),
			book(1, nil, []lv{{Price: 100.05, Qty: 1}})
	}

	t.Run("below threshold", func(t *testing.T) {
		a, b := fresh()
		_, ok := Evaluate(a, b, Params{Threshold: 0.06}, 0)
		require.False(t, ok)
	})
	t.Run("order in flight", func(t *testing.T) {
		a, b := fresh()
		_, ok := Evaluate(a, b, Params{Threshold: 0.02}, 1)
		require.False(t, ok)
	})
	t.Run("stale reference", func(t *testing.T) {
		a, b := fresh()
		a.MarkStale()
		_, ok := Evaluate(a, b, Params{Threshold: 0.02}, 0)
		require.False(t, ok)
	})
	t.Run("stale executable", func(t *testing.T) {
		a, b := fresh()
		b.MarkStale()
		_, ok := Evaluate(a, b, Params{Threshold: 0.02}, 0)
		require.False(t, ok)
	})
	t.Run("empty books", func(t *testing.T) {
		_, ok := Evaluate(book(0, nil, nil), book(1, nil, nil), Params{}, 0)
		require.False(t, ok)
	})
	t.Run("qty floors to zero", func(t *testing.T) {
		a := book(0, []lv{{Price: 100.00, Qty: 0.004}}, nil)
		b := book(1, nil, []lv{{Price: 100.05, Qty: 1}})
		_, ok := Evaluate(a, b, Params{Threshold: 0.02, QtyStep: 0.01}, 0)
		require.False(t, ok)
	})
}

func TestEvaluateThresholdInclusive(t *testing.T) {
	a := book(0, []lv{{Price: 100.00, Qty: 1}}, nil)
	b := book(1, nil, []lv{{Price: 100.05, Qty: 1}})
	_, ok := Evaluate(a, b, Params{Threshold: 0.05}, 0)
	require.True(t, ok)
}

func TestEvaluateSizing(t *testing.T) {
	a := book(0, []lv{{Price: 100.00, Qty: 7.555}}, nil)
	b := book(1, nil, []lv{{Price: 100.05, Qty: 9}})

	in, ok := Evaluate(a, b, Params{Threshold: 0.02, QtyStep: 0.01}, 0)
	require.True(t, ok)
	require.InDelta(t, 7.55, in.Qty, 1e-9)

	in, ok = Evaluate(a, b, Params{Threshold: 0.02, MaxQty: 2}, 0)
	require.True(t, ok)
	require.Equal(t, 2.0, in.Qty)
}

func TestEvaluateMaxLive(t *testing.T) {
	a := book(0, []lv{{Price: 100.00, Qty: 1}}, nil)
	b := book(1, nil, []lv{{Price: 100.05, Qty: 1}})

	_, ok := Evaluate(a, b, Params{Threshold: 0.02, MaxLive: 2}, 1)
	require.True(t, ok)
	_, ok = Evaluate(a, b, Params{Threshold: 0.02, MaxLive: 2}, 2)
	require.False(t, ok)
}

func TestEvaluateZeroAlloc(t *testing.T) {
	a := book(0, []lv{{Price: 100.00, Qty: 1}}, []lv{{Price: 100.02, Qty: 1}})
	b := book(1, []lv{{Price: 100.01, Qty: 1}}, []lv{{Price: 100.05, Qty: 1}})
	p := Params{Threshold: 0.02}
	allocs := testing.AllocsPerRun(100, func() {
		_, _ = Evaluate(a, b, p, 0)
	})
	require.Zero(t, allocs)
}

func TestLatencyGuard(t *testing.T) {
	g := NewLatencyGuard(100*time.Microsecond, 3)
	slow := int64(200 * time.Microsecond)
	fast := int64(50 * time.Microsecond)

	require.NoError(t, g.Observe(slow))
	require.NoError(t, g.Observe(slow))
	require.NoError(t, g.Observe(fast))
	require.Zero(t, g.Streak())

	require.NoError(t, g.Observe(slow))
	require.NoError(t, g.Observe(slow))
	require.ErrorIs(t, g.Observe(slow), ErrGuardBreached)
	require.Zero(t, g.Streak())
}

func TestLatencyGuardDisabled(t *testing.T) {
	g := NewLatencyGuard(0, 1)
	for i := 0; i < 10; i++ {
		require.NoError(t, g.Observe(int64(time.Second)))
	}
}

func BenchmarkEvaluate(b *testing.B) {
	ba := book(0, []lv{{Price: 100.00, Qty: 1}}, []lv{{Price: 100.02, Qty: 1}})
	bb := book(1, []lv{{Price: 100.01, Qty: 1}}, []lv{{Price: 100.05, Qty: 1}})
	p := Params{Threshold: 0.02}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Evaluate(ba, bb, p, 0)
	}
}
