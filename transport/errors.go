// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: errors.go — Transport fault taxonomy
//
// Purpose:
//   - ErrWouldBlock: not a failure, the caller re-polls
//   - *TransportError: terminal fault, the connection is Faulted
// ─────────────────────────────────────────────────────────────────────────────

package transport

import (
	"errors"
	"os"
)

// ErrorKind classifies a terminal fault.
type ErrorKind uint8

const (
	KindHandshakeFailed ErrorKind = iota + 1
	KindConnectionReset
	KindProtocolViolation
)

func (k ErrorKind) String() string {
	switch k {
	case KindHandshakeFailed:
		return "handshake failed"
	case KindConnectionReset:
		return "connection reset"
	case KindProtocolViolation:
		return "protocol violation"
	}
	return "unknown"
}

// TransportError is the fault a Faulted connection carries.
type TransportError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *TransportError) Error() string {
	msg := "transport: " + e.Kind.String()
	if e.Op != "" {
		msg += " during " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// KindOf returns the fault kind behind err, or 0.
func KindOf(err error) ErrorKind {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind
	}
	return 0
}

// wouldBlock is returned by the socket adapter when the kernel has nothing
// to give. crypto/tls keeps its partial record state across temporary
// net.Errors, which is what makes a non-blocking tls.Conn possible.
type wouldBlock struct{}

func (wouldBlock) Error() string   { return "transport: would block" }
func (wouldBlock) Timeout() bool   { return true }
func (wouldBlock) Temporary() bool { return true }

var (
	// ErrWouldBlock means no complete message is available yet.
	ErrWouldBlock error = wouldBlock{}

	ErrNotStreaming  = errors.New("transport: connection is not streaming")
	ErrBusy          = errors.New("transport: connection already in use")
	ErrSilence       = errors.New("transport: peer silent past keep-alive limit")
	ErrTimeout       = errors.New("transport: handshake timed out")
	ErrPeerClosed    = errors.New("transport: close frame received")
	ErrCipherOverrun = errors.New("transport: pending cipher buffer overrun")
	ErrBadFrame      = errors.New("transport: write does not start on a frame header")

	errDeadline = os.ErrDeadlineExceeded
)
