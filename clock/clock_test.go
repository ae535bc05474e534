package clock

import (
	"testing"
	"time"
)

func TestNowIsNonDecreasing(t *testing.T) {
	Calibrate()
	prev := Now()
	for i := 0; i < 10000; i++ {
		cur := Now()
		if cur < prev {
			t.Fatalf("clock went backwards: %d -> %d", prev, cur)
		}
		prev = cur
	}
}

func TestSinceTracksSleep(t *testing.T) {
	start := Now()
	time.Sleep(5 * time.Millisecond)
	if d := Since(start); d < 4*time.Millisecond {
		t.Fatalf("Since = %v, want >= ~5ms", d)
	}
}

func TestManual(t *testing.T) {
	m := NewManual(100)
	m.Advance(50 * time.Nanosecond)
	if got := m.Now(); got != 150 {
		t.Fatalf("manual clock = %d, want 150", got)
	}
}

func BenchmarkNow(b *testing.B) {
	var sink int64
	for i := 0; i < b.N; i++ {
		sink += Now()
	}
	_ = sink
}
