// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: conn.go — TLS websocket client state machine
//
// Purpose:
//   - Drives one venue stream: connect → TLS → upgrade → streaming
//   - Delivers complete data frames as borrowed views of its read window
//   - Answers pings, sends keep-alive pings, faults on silence
//
// Notes:
//   - Owned by the hot loop; every method except the TLS handshake runs
//     on Thread 0 and never blocks
//   - The handshake runs on a helper goroutine that owns the fd until it
//     reports on hsDone
//   - Write accepts a prefix and the caller keeps the rest; control frames
//     are slotted in only between whole caller frames
//
// ⚠️ ReadMessage payloads are valid until the next ReadMessage call
// ─────────────────────────────────────────────────────────────────────────────

package transport

import (
	"crypto/tls"
	"net/netip"
	"time"

	gws "github.com/gobwas/ws"
	"golang.org/x/sys/unix"

	"tick2trade/constants"
	"tick2trade/utils"
	"tick2trade/ws"
)

// silenceFactor keep-alive intervals without a byte from the peer fault
// the connection.
const silenceFactor = 3

// recordSlack bounds TLS record overhead for n plaintext bytes.
func recordSlack(n int) int { return (n/1024 + 1) * 96 }

// Config describes one endpoint. Addr is resolved before the hot loop runs.
type Config struct {
	Addr             netip.AddrPort
	Host             string
	Path             string
	TLS              *tls.Config
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	SocketBuffer     int
	ReadBuffer       int

	// Poll, when set, receives the fd once the TLS handshake is done.
	Poll  Registrar
	Token int32
}

type Conn struct {
	cfg   Config
	state State
	fault *TransportError

	fd         int
	registered bool
	writeArmed bool
	bio        *fdConn
	tc         *tls.Conn
	hs         *ws.Handshake
	hsDone     chan error
	hsInFlight bool

	started  int64
	lastRx   int64
	lastPing int64
	closeBy  int64

	rbuf   []byte
	rs, re int

	outstanding int
	pongDue     bool
	pongLen     int
	pongBody    [125]byte
	ctl         [ws.MaxHeaderSize + 125]byte
	rng         utils.Xorshift
}

// New prepares an idle connection. Nothing is dialled until Connect.
func New(cfg Config) (*Conn, error) {
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}
	if cfg.ReadBuffer <= 0 {
		cfg.ReadBuffer = constants.ReadBufferSize
	}
	if cfg.SocketBuffer <= 0 {
		cfg.SocketBuffer = constants.SocketBufferSize
	}
	tc := &tls.Config{}
	if cfg.TLS != nil {
		tc = cfg.TLS.Clone()
	}
	if tc.ServerName == "" {
		tc.ServerName = cfg.Host
	}
	cfg.TLS = tc

	hs, err := ws.NewHandshake(cfg.Host, cfg.Path)
	if err != nil {
		return nil, err
	}
	return &Conn{
		cfg:    cfg,
		fd:     -1,
		bio:    newFdConn(),
		hs:     hs,
		hsDone: make(chan error, 1),
		rbuf:   make([]byte, cfg.ReadBuffer),
		rng:    utils.NewXorshift(uint64(time.Now().UnixNano()) ^ uint64(cfg.Addr.Port())),
	}, nil
}

func (c *Conn) State() State { return c.state }

// Fault is the error that moved the stream to Faulted, if any.
func (c *Conn) Fault() error {
	if c.fault == nil {
		return nil
	}
	return c.fault
}

// Connect starts a fresh attempt from Idle.
func (c *Conn) Connect(now int64) error {
	if c.state != Idle {
		return ErrBusy
	}
	if err := c.hs.Reset(); err != nil {
		return c.fail(KindHandshakeFailed, "upgrade key", err)
	}
	fd, err := dial(c.cfg.Addr, c.cfg.SocketBuffer)
	if err != nil {
		return c.fail(KindHandshakeFailed, "connect", err)
	}
	c.fd = fd
	c.started = now
	c.state = Connecting
	return nil
}

// Step advances the state machine and runs housekeeping. It returns the
// fault if this call moved the connection to Faulted.
func (c *Conn) Step(now int64) error {
	switch c.state {
	case Connecting:
		return c.stepConnecting(now)
	case TLSHandshaking:
		return c.stepTLS(now)
	case ProtocolUpgrading:
		return c.stepUpgrade(now)
	case Streaming:
		return c.stepStreaming(now)
	case Closing:
		c.stepClosing(now)
	}
	return nil
}

func (c *Conn) timedOut(now int64) bool {
	return now-c.started > int64(c.cfg.HandshakeTimeout)
}

func (c *Conn) stepConnecting(now int64) error {
	done, err := connected(c.fd)
	if err != nil {
		return c.fail(KindHandshakeFailed, "connect", err)
	}
	if !done {
		if c.timedOut(now) {
			return c.fail(KindHandshakeFailed, "connect", ErrTimeout)
		}
		return nil
	}

	c.bio.attach(c.fd, time.Now().Add(c.cfg.HandshakeTimeout-time.Duration(now-c.started)))
	c.tc = tls.Client(c.bio, c.cfg.TLS)
	c.state = TLSHandshaking
	c.hsInFlight = true
	go func(tc *tls.Conn, done chan<- error) {
		done <- tc.Handshake()
	}(c.tc, c.hsDone)
	return nil
}

func (c *Conn) stepTLS(now int64) error {
	select {
	case err := <-c.hsDone:
		c.hsInFlight = false
		if err != nil {
			return c.fail(KindHandshakeFailed, "tls", err)
		}
	default:
		// the helper's own deadline ends it shortly after ours
		return nil
	}

	c.bio.blocking = false
	if c.cfg.Poll != nil {
		if err := c.cfg.Poll.Add(c.fd, c.cfg.Token); err != nil {
			return c.fail(KindHandshakeFailed, "poll register", err)
		}
		c.registered = true
	}
	if _, err := c.tc.Write(c.hs.Request()); err != nil {
		return c.fail(KindHandshakeFailed, "upgrade write", err)
	}
	c.state = ProtocolUpgrading
	return c.stepUpgrade(now)
}

func (c *Conn) stepUpgrade(now int64) error {
	if err := c.bio.flush(); err != nil {
		return c.fail(KindHandshakeFailed, "upgrade write", err)
	}
	var rerr error
	for c.re < len(c.rbuf) {
		n, err := c.tc.Read(c.rbuf[c.re:])
		c.re += n
		if err != nil {
			if err != ErrWouldBlock {
				rerr = err
			}
			break
		}
		if n == 0 {
			break
		}
	}

	// a read error right behind a complete response surfaces again on the
	// first ReadMessage; crypto/tls keeps it
	hn, err := c.hs.CheckResponse(c.rbuf[:c.re])
	if err != nil {
		return c.fail(KindHandshakeFailed, "upgrade", err)
	}
	if hn == 0 {
		if rerr != nil {
			return c.fail(KindHandshakeFailed, "upgrade read", rerr)
		}
		if c.re == len(c.rbuf) {
			return c.fail(KindHandshakeFailed, "upgrade read", ws.ErrFrameTooLarge)
		}
		if c.timedOut(now) {
			return c.fail(KindHandshakeFailed, "upgrade", ErrTimeout)
		}
		return nil
	}

	// bytes past the response are the first frames
	c.rs = hn
	c.state = Streaming
	c.lastRx = now
	c.lastPing = now
	return nil
}

func (c *Conn) stepStreaming(now int64) error {
	if err := c.flush(); err != nil {
		return err
	}
	if c.cfg.PingInterval <= 0 {
		return nil
	}
	iv := int64(c.cfg.PingInterval)
	if now-c.lastRx > silenceFactor*iv {
		return c.fail(KindConnectionReset, "keep-alive", ErrSilence)
	}
	if now-c.lastPing >= iv && c.outstanding == 0 {
		if err := c.control(gws.OpPing, nil); err != nil {
			return err
		}
		c.lastPing = now
	}
	if c.pongDue {
		return c.sendPong()
	}
	return nil
}

func (c *Conn) stepClosing(now int64) {
	if c.bio.buffered() > 0 && now < c.closeBy {
		if c.bio.flush() == nil && c.bio.buffered() > 0 {
			return
		}
	}
	c.teardown()
	c.state = Idle
}

// Frame encodes payload as one masked text frame into dst.
func (c *Conn) Frame(dst, payload []byte) (int, error) {
	v := c.rng.Next()
	mask := [4]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	return ws.EncodeFrame(dst, gws.OpText, payload, mask)
}

// Write hands encoded frames to TLS. It may accept only a prefix; the
// caller keeps the remainder and passes it on the next call. n == 0 with a
// nil error means the pending cipher buffer is full.
func (c *Conn) Write(p []byte) (int, error) {
	if c.state != Streaming {
		return 0, c.notStreaming()
	}
	room := c.bio.room() - recordSlack(len(p))
	n := len(p)
	if n > room {
		n = room
	}
	if n <= 0 {
		return 0, c.flush()
	}
	if err := c.track(p, n); err != nil {
		return 0, err
	}
	if _, err := c.tc.Write(p[:n]); err != nil {
		return 0, c.fail(KindConnectionReset, "write", err)
	}
	if c.outstanding == 0 && c.pongDue {
		if err := c.sendPong(); err != nil {
			return n, err
		}
	}
	return n, c.armWrite()
}

// track advances the frame cursor over the first n bytes of p.
func (c *Conn) track(p []byte, n int) error {
	out := c.outstanding
	for off := 0; off < n; {
		if out == 0 {
			size, ok := ws.FrameLen(p[off:])
			if !ok {
				return ErrBadFrame
			}
			out = size
		}
		take := n - off
		if take > out {
			take = out
		}
		out -= take
		off += take
	}
	c.outstanding = out
	return nil
}

// ReadMessage returns the next complete data frame, or ErrWouldBlock.
func (c *Conn) ReadMessage(now int64) ([]byte, error) {
	if c.state != Streaming {
		return nil, c.notStreaming()
	}
	limit := len(c.rbuf) - ws.MaxHeaderSize
	for {
		if c.rs == c.re {
			c.rs, c.re = 0, 0
		}
		h, hn, err := ws.DecodeHeader(c.rbuf[c.rs:c.re], limit)
		if err != nil {
			return nil, c.fail(KindProtocolViolation, "frame", err)
		}
		if hn > 0 && c.re-c.rs >= hn+int(h.Length) {
			start := c.rs + hn
			payload := c.rbuf[start : start+int(h.Length)]
			c.rs = start + int(h.Length)

			switch {
			case h.OpCode.IsControl():
				if err := c.onControl(h.OpCode, payload); err != nil {
					return nil, err
				}
				continue
			case !h.Fin || h.OpCode == gws.OpContinuation:
				return nil, c.fail(KindProtocolViolation, "frame", ws.ErrFragmented)
			}
			return payload, nil
		}

		if c.rs > 0 {
			c.re = copy(c.rbuf, c.rbuf[c.rs:c.re])
			c.rs = 0
		}
		n, err := c.tc.Read(c.rbuf[c.re:])
		if n > 0 {
			c.re += n
			c.lastRx = now
			continue
		}
		if err == nil || err == ErrWouldBlock {
			return nil, ErrWouldBlock
		}
		return nil, c.fail(KindConnectionReset, "read", err)
	}
}

func (c *Conn) onControl(op gws.OpCode, payload []byte) error {
	switch op {
	case gws.OpPing:
		c.pongLen = copy(c.pongBody[:], payload)
		c.pongDue = true
		if c.outstanding == 0 {
			return c.sendPong()
		}
	case gws.OpClose:
		var body [2]byte
		_ = c.control(gws.OpClose, ws.ClosePayload(&body, gws.StatusNormalClosure))
		return c.fail(KindConnectionReset, "read", ErrPeerClosed)
	}
	return nil
}

func (c *Conn) sendPong() error {
	if err := c.control(gws.OpPong, c.pongBody[:c.pongLen]); err != nil {
		return err
	}
	c.pongDue = false
	return nil
}

// control writes one control frame between caller frames. It is skipped
// when the pending buffer has no room; the next Step retries pongs and
// pings fire again on schedule.
func (c *Conn) control(op gws.OpCode, payload []byte) error {
	if c.outstanding != 0 {
		return nil
	}
	size := ws.FrameSize(len(payload))
	if c.bio.room()-recordSlack(size) < size {
		return nil
	}
	v := c.rng.Next32()
	n, err := ws.EncodeFrame(c.ctl[:], op, payload, [4]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
	if err != nil {
		return c.fail(KindProtocolViolation, "control", err)
	}
	if _, err := c.tc.Write(c.ctl[:n]); err != nil {
		return c.fail(KindConnectionReset, "write", err)
	}
	return c.armWrite()
}

// flush pushes pending ciphertext and keeps write interest in sync.
func (c *Conn) flush() error {
	if c.bio.buffered() == 0 {
		return c.armWrite()
	}
	if err := c.bio.flush(); err != nil {
		return c.fail(KindConnectionReset, "write", err)
	}
	return c.armWrite()
}

func (c *Conn) armWrite() error {
	want := c.bio.buffered() > 0
	if want == c.writeArmed || !c.registered {
		return nil
	}
	if err := c.cfg.Poll.SetWrite(c.fd, c.cfg.Token, want); err != nil {
		return c.fail(KindConnectionReset, "poll", err)
	}
	c.writeArmed = want
	return nil
}

// Close starts a graceful shutdown: a close frame if the stream is between
// frames, then up to drain for pending bytes to leave.
func (c *Conn) Close(now int64, drain time.Duration) {
	switch c.state {
	case Idle, Closing:
		return
	case Streaming:
		var body [2]byte
		_ = c.control(gws.OpClose, ws.ClosePayload(&body, gws.StatusNormalClosure))
		if c.state != Streaming {
			c.Reset()
			return
		}
		c.state = Closing
		c.closeBy = now + int64(drain)
		c.stepClosing(now)
	default:
		c.Reset()
	}
}

// Reset drops the connection at once and returns to Idle.
func (c *Conn) Reset() {
	c.teardown()
	c.state = Idle
}

func (c *Conn) teardown() {
	if c.fd >= 0 {
		if c.registered {
			_ = c.cfg.Poll.Remove(c.fd)
		}
		if c.hsInFlight {
			// the helper still reads the fd; wake it and let it close
			_ = unix.Shutdown(c.fd, unix.SHUT_RDWR)
			fd, done := c.fd, c.hsDone
			go func() {
				<-done
				unix.Close(fd)
			}()
			c.hsDone = make(chan error, 1)
			c.bio = newFdConn()
		} else {
			unix.Close(c.fd)
		}
	}
	c.fd = -1
	c.tc = nil
	c.hsInFlight = false
	c.registered = false
	c.writeArmed = false
	c.bio.head, c.bio.tail = 0, 0
	c.rs, c.re = 0, 0
	c.outstanding = 0
	c.pongDue = false
	c.fault = nil
}

func (c *Conn) fail(kind ErrorKind, op string, err error) error {
	if c.fault == nil {
		c.fault = &TransportError{Kind: kind, Op: op, Err: err}
	}
	c.state = Faulted
	return c.fault
}

func (c *Conn) notStreaming() error {
	if c.fault != nil {
		return c.fault
	}
	return ErrNotStreaming
}
