// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: bio.go — net.Conn adapter over a raw socket for crypto/tls
//
// Purpose:
//   - Lets crypto/tls run over a non-blocking fd owned by the hot loop
//   - Buffers ciphertext the kernel would not take yet
//
// Notes:
//   - Blocking mode is used only by the handshake goroutine and waits in
//     poll(2) up to a deadline
//   - Non-blocking mode never waits: reads return ErrWouldBlock, writes
//     land in the pending buffer and are flushed as the socket drains
//
// ⚠️ crypto/tls makes write errors sticky, so Write must never fail while
//    the connection is healthy. Conn checks room before handing it bytes.
// ─────────────────────────────────────────────────────────────────────────────

package transport

import (
	"io"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"tick2trade/constants"
)

var nullAddr net.Addr = &net.TCPAddr{}

type fdConn struct {
	fd       int
	blocking bool
	deadline time.Time

	head, tail int
	pending    [constants.CipherBufferSize]byte
}

func newFdConn() *fdConn { return &fdConn{fd: -1} }

// attach binds the adapter to a fresh socket in blocking mode.
func (b *fdConn) attach(fd int, deadline time.Time) {
	b.fd = fd
	b.blocking = true
	b.deadline = deadline
	b.head, b.tail = 0, 0
}

func (b *fdConn) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(b.fd, p)
		switch {
		case n > 0:
			if !b.blocking {
				rearmQuickAck(b.fd)
			}
			return n, nil
		case err == nil:
			return 0, io.EOF
		case err == unix.EINTR:
			continue
		case err != unix.EAGAIN:
			return 0, err
		}
		if !b.blocking {
			return 0, ErrWouldBlock
		}
		if err := b.wait(unix.POLLIN); err != nil {
			return 0, err
		}
	}
}

func (b *fdConn) Write(p []byte) (int, error) {
	if len(p) > b.room() {
		return 0, ErrCipherOverrun
	}
	if b.tail+len(p) > len(b.pending) {
		b.compact()
	}
	b.tail += copy(b.pending[b.tail:], p)

	if !b.blocking {
		if err := b.flush(); err != nil {
			return 0, err
		}
		return len(p), nil
	}
	for b.buffered() > 0 {
		if err := b.flush(); err != nil {
			return 0, err
		}
		if b.buffered() > 0 {
			if err := b.wait(unix.POLLOUT); err != nil {
				return 0, err
			}
		}
	}
	return len(p), nil
}

// flush writes pending ciphertext until the kernel pushes back.
func (b *fdConn) flush() error {
	for b.head < b.tail {
		n, err := unix.Write(b.fd, b.pending[b.head:b.tail])
		if n > 0 {
			b.head += n
		}
		switch {
		case err == nil:
		case err == unix.EINTR:
		case err == unix.EAGAIN:
			return nil
		default:
			return err
		}
	}
	b.head, b.tail = 0, 0
	return nil
}

func (b *fdConn) buffered() int { return b.tail - b.head }

func (b *fdConn) room() int { return len(b.pending) - b.buffered() }

func (b *fdConn) compact() {
	n := copy(b.pending[:], b.pending[b.head:b.tail])
	b.head, b.tail = 0, n
}

// wait blocks in poll(2) until fd has events or the deadline passes.
func (b *fdConn) wait(events int16) error {
	for {
		left := time.Until(b.deadline)
		if left <= 0 {
			return errDeadline
		}
		ms := int(left / time.Millisecond)
		if ms == 0 {
			ms = 1
		}
		fds := [1]unix.PollFd{{Fd: int32(b.fd), Events: events}}
		n, err := unix.Poll(fds[:], ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
	}
}

// Close is a no-op: the fd belongs to Conn, never to crypto/tls.
func (b *fdConn) Close() error { return nil }

func (b *fdConn) LocalAddr() net.Addr  { return nullAddr }
func (b *fdConn) RemoteAddr() net.Addr { return nullAddr }

func (b *fdConn) SetDeadline(t time.Time) error {
	b.deadline = t
	return nil
}

func (b *fdConn) SetReadDeadline(t time.Time) error  { return b.SetDeadline(t) }
func (b *fdConn) SetWriteDeadline(t time.Time) error { return b.SetDeadline(t) }
