package utils

import (
	"strconv"
	"testing"
)

// ============================================================================
// CONVERSION UTILITIES
// ============================================================================

func TestB2s(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"nil", nil, ""},
		{"empty", []byte{}, ""},
		{"ascii", []byte("BTCUSDT"), "BTCUSDT"},
		{"binary", []byte{0, 1, 255}, "\x00\x01\xff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := B2s(tt.in); got != tt.want {
				t.Errorf("B2s(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestB2s_ZeroAllocation(t *testing.T) {
	b := []byte("orderbook.50.BTCUSDT")
	allocs := testing.AllocsPerRun(1000, func() {
		_ = B2s(b)
	})
	if allocs != 0 {
		t.Errorf("B2s allocated %.1f times", allocs)
	}
}

func TestS2b(t *testing.T) {
	if S2b("") != nil {
		t.Error("empty string should map to nil")
	}
	if got := string(S2b("abc")); got != "abc" {
		t.Errorf("S2b = %q", got)
	}
}

// ============================================================================
// JSON MICRO-SCANNERS
// ============================================================================

func TestSkipSpace(t *testing.T) {
	b := []byte(" \t\r\n x")
	if got := SkipSpace(b, 0); got != 5 {
		t.Errorf("SkipSpace = %d, want 5", got)
	}
	if got := SkipSpace([]byte("   "), 0); got != 3 {
		t.Errorf("all-space input should return len, got %d", got)
	}
}

func TestSliceASCII(t *testing.T) {
	tests := []struct {
		in      string
		at      int
		want    string
		wantEnd int
	}{
		{`"abc"`, 0, "abc", 5},
		{`x"ab\"c"`, 1, `ab\"c`, 8},
		{`"open`, 0, "", -1},
		{`abc`, 0, "", -1},
	}
	for _, tt := range tests {
		got, end := SliceASCII([]byte(tt.in), tt.at)
		if string(got) != tt.want || end != tt.wantEnd {
			t.Errorf("SliceASCII(%q,%d) = (%q,%d), want (%q,%d)", tt.in, tt.at, got, end, tt.want, tt.wantEnd)
		}
	}
}

func TestSkipValue(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{`"s",`, 3},
		{`123,`, 3},
		{`{"a":[1,2,{"b":"]"}]},`, 21},
		{`[["1","2"],["3","4"]]}`, 21},
		{`true}`, 4},
		{`{"a":1`, -1},
	}
	for _, tt := range tests {
		if got := SkipValue([]byte(tt.in), 0); got != tt.want {
			t.Errorf("SkipValue(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// ============================================================================
// DECIMAL DECODERS
// ============================================================================

func TestParseUint(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
		ok   bool
	}{
		{"0", 0, true},
		{"42", 42, true},
		{"1700000000000", 1700000000000, true},
		{"9999999999999999999", 9999999999999999999, true},
		{"", 0, false},
		{"12a", 0, false},
		{"-1", 0, false},
		{"12345678901234567890", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseUint([]byte(tt.in))
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseUint(%q) = (%d,%v), want (%d,%v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseUint_MatchesStrconv(t *testing.T) {
	for _, v := range []uint64{1, 9, 10, 99, 65535, 1 << 40, 1234567890123} {
		s := strconv.FormatUint(v, 10)
		got, ok := ParseUint([]byte(s))
		if !ok || got != v {
			t.Errorf("ParseUint(%s) = %d,%v", s, got, ok)
		}
	}
}

func TestParseInt(t *testing.T) {
	if v, ok := ParseInt([]byte("-17")); !ok || v != -17 {
		t.Errorf("ParseInt(-17) = %d,%v", v, ok)
	}
	if v, ok := ParseInt([]byte("17")); !ok || v != 17 {
		t.Errorf("ParseInt(17) = %d,%v", v, ok)
	}
	if _, ok := ParseInt([]byte("-")); ok {
		t.Error("bare minus should fail")
	}
}

func TestParseUint_ZeroAllocation(t *testing.T) {
	b := []byte("1700000000123")
	allocs := testing.AllocsPerRun(1000, func() {
		_, _ = ParseUint(b)
	})
	if allocs != 0 {
		t.Errorf("ParseUint allocated %.1f times", allocs)
	}
}

// ============================================================================
// HASH & MIXERS
// ============================================================================

func TestMix64_Avalanche(t *testing.T) {
	a, b := Mix64(1), Mix64(2)
	diff := a ^ b
	bits := 0
	for diff != 0 {
		bits += int(diff & 1)
		diff >>= 1
	}
	if bits < 16 {
		t.Errorf("adjacent inputs differ in only %d bits", bits)
	}
}

func TestXorshift_NeverZero(t *testing.T) {
	x := NewXorshift(0)
	for i := 0; i < 10000; i++ {
		if x.Next() == 0 {
			t.Fatalf("generator collapsed to zero at step %d", i)
		}
	}
}

func TestXorshift_Deterministic(t *testing.T) {
	a, b := NewXorshift(7), NewXorshift(7)
	for i := 0; i < 100; i++ {
		if a.Next() != b.Next() {
			t.Fatal("same seed produced different sequences")
		}
	}
}
