package ring

import "testing"

func TestConstructorsTagKind(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		kind Kind
	}{
		{"tick", MarketTick(1, 0, 9, 1, 2, 3, 4), KindMarketTick},
		{"order", OrderLifecycle(1, 1, 7, 2, 1, 100, 1, 0, 0), KindOrderLifecycle},
		{"error", ErrorSignal(1, CodeSafeMode, 1, uint64(CodeTransportFault), 0), KindErrorSignal},
		{"latency", LatencySample(1, 0, 9, 900, 300, 100, 500), KindLatencySample},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.ev.Kind != tt.kind {
				t.Fatalf("kind = %v, want %v", tt.ev.Kind, tt.kind)
			}
			if tt.ev.TS != 1 {
				t.Fatalf("TS = %d, want 1", tt.ev.TS)
			}
		})
	}
}

func TestMarketTickLayout(t *testing.T) {
	ev := MarketTick(5, 1, 42, 100, 1, 100.05, 2)
	if ev.Seq != 42 || ev.Venue != 1 {
		t.Fatalf("header fields wrong: %+v", ev)
	}
	if ev.F != [4]float64{100, 1, 100.05, 2} {
		t.Fatalf("payload = %v", ev.F)
	}
}

func TestCodeString(t *testing.T) {
	if CodeCancelAll.String() != "cancel_all" {
		t.Fatalf("CodeCancelAll = %q", CodeCancelAll.String())
	}
	if Code(999).String() != "unknown" {
		t.Fatal("out of range code should be unknown")
	}
	if KindErrorSignal.String() != "error_signal" {
		t.Fatal("kind name mismatch")
	}
}
