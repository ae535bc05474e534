package ring

import (
	"sync"
	"testing"
	"time"
	"unsafe"
)

// TestNewPanicsOnBadSize verifies that the constructor rejects sizes that are
// either non-power-of-two or ≤ 0.
func TestNewPanicsOnBadSize(t *testing.T) {
	bad := []int{0, -4, 3, 1000}
	for _, sz := range bad {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("New(%d) should panic", sz)
				}
			}()
			_, _ = New[Event](sz)
		}()
	}
}

// TestPushPopRoundTrip pushes one element, pops it, and confirms the ring is
// empty afterwards.
func TestPushPopRoundTrip(t *testing.T) {
	p, c := New[Event](8)
	want := MarketTick(10, 1, 42, 100, 1, 100.05, 2)

	if !p.TryPush(want) {
		t.Fatal("first push must succeed")
	}
	got, ok := c.TryPop()
	if !ok || got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if _, ok := c.TryPop(); ok {
		t.Fatal("ring should now be empty")
	}
}

// TestBoundedDrop fills the ring while the consumer is paused: excess pushes
// fail without blocking, every failure is counted, and the survivors come
// out in push order.
func TestBoundedDrop(t *testing.T) {
	const size = 16
	p, c := New[uint64](size)

	accepted := 0
	for i := uint64(0); i < 3*size; i++ {
		if p.TryPush(i) {
			accepted++
		}
	}
	if accepted != size {
		t.Fatalf("accepted %d pushes, want %d", accepted, size)
	}
	if p.Dropped() != 2*size {
		t.Fatalf("dropped %d, want %d", p.Dropped(), 2*size)
	}

	for want := uint64(0); want < size; want++ {
		got, ok := c.TryPop()
		if !ok || got != want {
			t.Fatalf("pop %d: got (%d,%v)", want, got, ok)
		}
	}
	if _, ok := c.TryPop(); ok {
		t.Fatal("ring should be drained")
	}
}

// TestWrapAround cycles the cursors many times past capacity.
func TestWrapAround(t *testing.T) {
	p, c := New[int](4)
	for i := 0; i < 1000; i++ {
		if !p.TryPush(i) {
			t.Fatalf("push %d failed on empty ring", i)
		}
		v, ok := c.TryPop()
		if !ok || v != i {
			t.Fatalf("pop %d: got (%d,%v)", i, v, ok)
		}
	}
}

// TestPopWaitReturnsItem launches a goroutine that pushes after a tiny
// delay and asserts PopWait picks it up.
func TestPopWaitReturnsItem(t *testing.T) {
	p, c := New[int](2)

	go func() {
		time.Sleep(5 * time.Millisecond)
		p.TryPush(7)
	}()

	v, ok := c.PopWait(time.Second)
	if !ok || v != 7 {
		t.Fatalf("PopWait = (%d,%v), want (7,true)", v, ok)
	}
}

// TestPopWaitTimesOut confirms PopWait gives up on an empty ring.
func TestPopWaitTimesOut(t *testing.T) {
	_, c := New[int](2)
	start := time.Now()
	if _, ok := c.PopWait(10 * time.Millisecond); ok {
		t.Fatal("PopWait on empty ring returned a value")
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("PopWait returned before the timeout")
	}
}

// TestConcurrentOrder streams values across two goroutines and checks that
// every delivered value is strictly increasing.
func TestConcurrentOrder(t *testing.T) {
	const n = 200000
	p, c := New[uint64](256)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint64(1); i <= n; i++ {
			for !p.TryPush(i) {
				cpuRelax()
			}
		}
	}()

	var last uint64
	for last < n {
		v, ok := c.PopWait(time.Second)
		if !ok {
			t.Fatalf("stalled after %d", last)
		}
		if v != last+1 {
			t.Fatalf("out of order: got %d after %d", v, last)
		}
		last = v
	}
	wg.Wait()
}

// TestEventIsOneCacheLine keeps the slot payload at 64 bytes.
func TestEventIsOneCacheLine(t *testing.T) {
	if sz := unsafe.Sizeof(Event{}); sz != 64 {
		t.Fatalf("Event is %d bytes, want 64", sz)
	}
}

// TestTryPushZeroAlloc asserts the producer path never allocates.
func TestTryPushZeroAlloc(t *testing.T) {
	p, c := New[Event](64)
	ev := ErrorSignal(1, CodeGap, 0, 5, 0)
	allocs := testing.AllocsPerRun(1000, func() {
		p.TryPush(ev)
		c.TryPop()
	})
	if allocs != 0 {
		t.Fatalf("push/pop allocated %.1f times", allocs)
	}
}
