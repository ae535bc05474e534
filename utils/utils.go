package utils

import "unsafe"

///////////////////////////////////////////////////////////////////////////////
// Conversion Utilities — Zero-Alloc Casts
///////////////////////////////////////////////////////////////////////////////

// B2s converts a []byte to a string **without** allocation.
// ⚠️ Caller must ensure the input slice remains valid and unchanged
// for as long as the string is used.
//
//go:nosplit
//go:inline
func B2s(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// S2b views a string as a read-only []byte without copying.
// ⚠️ Never write through the returned slice.
//
//go:nosplit
//go:inline
func S2b(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

///////////////////////////////////////////////////////////////////////////////
// JSON Micro-Scanners — Whitespace & String Spans
///////////////////////////////////////////////////////////////////////////////

// SkipSpace returns the index of the first non-whitespace byte at or after i.
//
//go:nosplit
//go:inline
func SkipSpace(b []byte, i int) int {
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

// SliceASCII returns the quoted string value starting at index i and the
// index just past its closing quote. b[i] must be '"'.
// Escapes are skipped over, not decoded.
//
//go:nosplit
func SliceASCII(b []byte, i int) ([]byte, int) {
	if i < 0 || i >= len(b) || b[i] != '"' {
		return nil, -1
	}
	for j := i + 1; j < len(b); j++ {
		switch b[j] {
		case '\\':
			j++
		case '"':
			return b[i+1 : j], j + 1
		}
	}
	return nil, -1
}

// SkipValue returns the index just past the JSON value starting at i.
// Nested objects and arrays are walked by bracket depth; strings are
// skipped with escape handling. Returns -1 on truncated input.
func SkipValue(b []byte, i int) int {
	i = SkipSpace(b, i)
	if i >= len(b) {
		return -1
	}
	switch b[i] {
	case '"':
		_, end := SliceASCII(b, i)
		return end
	case '{', '[':
		depth := 0
		for j := i; j < len(b); j++ {
			switch b[j] {
			case '"':
				_, end := SliceASCII(b, j)
				if end < 0 {
					return -1
				}
				j = end - 1
			case '{', '[':
				depth++
			case '}', ']':
				depth--
				if depth == 0 {
					return j + 1
				}
			}
		}
		return -1
	default:
		for j := i; j < len(b); j++ {
			switch b[j] {
			case ',', '}', ']', ' ', '\t', '\n', '\r':
				return j
			}
		}
		return len(b)
	}
}

///////////////////////////////////////////////////////////////////////////////
// Decimal Decoders — No Allocation, Early Exit on Malformed Input
///////////////////////////////////////////////////////////////////////////////

// ParseUint parses an unsigned decimal integer. ok is false on an empty
// span, a non-digit byte, or overflow past 19 digits.
//
//go:nosplit
func ParseUint(b []byte) (v uint64, ok bool) {
	if len(b) == 0 || len(b) > 19 {
		return 0, false
	}
	for _, c := range b {
		d := c - '0'
		if d > 9 {
			return 0, false
		}
		v = v*10 + uint64(d)
	}
	return v, true
}

// ParseInt parses a signed decimal integer with an optional leading '-'.
func ParseInt(b []byte) (int64, bool) {
	neg := len(b) > 0 && b[0] == '-'
	if neg {
		b = b[1:]
	}
	u, ok := ParseUint(b)
	if !ok {
		return 0, false
	}
	if neg {
		return -int64(u), true
	}
	return int64(u), true
}

///////////////////////////////////////////////////////////////////////////////
// Hash & Mixers — PRNG State
///////////////////////////////////////////////////////////////////////////////

// Mix64 applies a Murmur3-style avalanche to a 64-bit value.
// Used to spread a seed before it drives Xorshift.
//
//go:nosplit
//go:inline
func Mix64(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

// Xorshift is a 64-bit xorshift generator. Not for secrets; the zero state
// is remapped so the sequence never collapses.
type Xorshift struct{ s uint64 }

// NewXorshift seeds a generator.
func NewXorshift(seed uint64) Xorshift {
	s := Mix64(seed)
	if s == 0 {
		s = 0x9e3779b97f4a7c15
	}
	return Xorshift{s: s}
}

// Next advances the generator.
//
//go:nosplit
func (x *Xorshift) Next() uint64 {
	s := x.s
	s ^= s << 13
	s ^= s >> 7
	s ^= s << 17
	x.s = s
	return s
}

// Next32 returns the low half of the next value.
//
//go:nosplit
func (x *Xorshift) Next32() uint32 { return uint32(x.Next()) }
