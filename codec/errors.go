package codec

import (
	"errors"

	"tick2trade/orderbook"
)

// ErrKind classifies a ParseError.
type ErrKind uint8

const (
	// Malformed frames are skipped; the book is untouched.
	Malformed ErrKind = iota + 1
	// Gap frames parsed fine but broke the book's sequence.
	Gap
)

func (k ErrKind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case Gap:
		return "gap"
	}
	return "unknown"
}

// ParseError is returned for frames that cannot be applied. Instances are
// preallocated so the error path does not allocate either.
type ParseError struct {
	Kind   ErrKind
	Reason string
}

func (e *ParseError) Error() string { return "codec: " + e.Kind.String() + ": " + e.Reason }

// Unwrap lets errors.Is(err, orderbook.ErrGap) match gap errors.
func (e *ParseError) Unwrap() error {
	if e.Kind == Gap {
		return orderbook.ErrGap
	}
	return nil
}

// IsMalformed reports whether err is a Malformed ParseError.
func IsMalformed(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Kind == Malformed
}

// IsGap reports whether err is a Gap ParseError.
func IsGap(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Kind == Gap
}

var (
	// ErrNotDepth marks a well-formed frame that carries no depth data
	// (subscribe acks, pongs). Callers ignore it.
	ErrNotDepth = errors.New("codec: not a depth frame")

	// ErrBufferTooSmall is returned by formatters that would overflow dst.
	ErrBufferTooSmall = errors.New("codec: buffer too small")

	// ErrGap is the Gap ParseError returned by Apply.
	ErrGap = &ParseError{Kind: Gap, Reason: "update id gap"}

	errNotObject   = &ParseError{Kind: Malformed, Reason: "frame is not an object"}
	errTruncated   = &ParseError{Kind: Malformed, Reason: "truncated frame"}
	errBadKey      = &ParseError{Kind: Malformed, Reason: "bad object key"}
	errBadType     = &ParseError{Kind: Malformed, Reason: "unknown depth type"}
	errBadUpdateID = &ParseError{Kind: Malformed, Reason: "bad update id"}
	errNoUpdateID  = &ParseError{Kind: Malformed, Reason: "missing update id"}
	errNoData      = &ParseError{Kind: Malformed, Reason: "missing data object"}
	errBadLevel    = &ParseError{Kind: Malformed, Reason: "bad price level"}
	errBadNumber   = &ParseError{Kind: Malformed, Reason: "bad number"}
	errTooMany     = &ParseError{Kind: Malformed, Reason: "too many level changes"}
)
