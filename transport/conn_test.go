package transport

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gws "github.com/gobwas/ws"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"tick2trade/ws"
)

// ==============================================================================
// LOCAL VENUE
// ==============================================================================

// venue serves a TLS websocket endpoint backed by gorilla/websocket.
func venue(t *testing.T, up websocket.Upgrader, handle func(*websocket.Conn)) Config {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		handle(c)
	}))
	t.Cleanup(srv.Close)
	return configFor(t, srv)
}

func configFor(t *testing.T, srv *httptest.Server) Config {
	t.Helper()
	pool := x509.NewCertPool()
	if srv.Certificate() != nil {
		pool.AddCert(srv.Certificate())
	}
	return Config{
		Addr:             srv.Listener.Addr().(*net.TCPAddr).AddrPort(),
		Host:             "127.0.0.1",
		Path:             "/v5/public/linear",
		TLS:              &tls.Config{RootCAs: pool},
		HandshakeTimeout: 3 * time.Second,
		ReadBuffer:       64 << 10,
	}
}

func now() int64 { return time.Now().UnixNano() }

func drive(t *testing.T, c *Conn, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for c.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state %s, want %s", c.State(), want)
		}
		if err := c.Step(now()); err != nil && want != Faulted {
			t.Fatalf("fault while waiting for %s: %v", want, err)
		}
		time.Sleep(100 * time.Microsecond)
	}
}

func dialed(t *testing.T, cfg Config) *Conn {
	t.Helper()
	c, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(c.Reset)
	require.NoError(t, c.Connect(now()))
	drive(t, c, Streaming)
	return c
}

// next returns a copy of the next data message, or the first hard error.
func next(t *testing.T, c *Conn) ([]byte, error) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := c.Step(now()); err != nil {
			return nil, err
		}
		msg, err := c.ReadMessage(now())
		if err == nil {
			return append([]byte(nil), msg...), nil
		}
		if err != ErrWouldBlock {
			return nil, err
		}
		time.Sleep(100 * time.Microsecond)
	}
	t.Fatal("no message")
	return nil, nil
}

func send(t *testing.T, c *Conn, msg string) {
	t.Helper()
	buf := make([]byte, ws.FrameSize(len(msg)))
	n, err := c.Frame(buf, []byte(msg))
	require.NoError(t, err)
	for off := 0; off < n; {
		w, err := c.Write(buf[off:n])
		require.NoError(t, err)
		off += w
		_ = c.Step(now())
	}
}

// ==============================================================================
// STREAMING
// ==============================================================================

func TestConnEcho(t *testing.T) {
	cfg := venue(t, websocket.Upgrader{WriteBufferSize: 128 << 10}, func(c *websocket.Conn) {
		for {
			mt, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			if c.WriteMessage(mt, msg) != nil {
				return
			}
		}
	})
	cfg.ReadBuffer = 256 << 10
	c := dialed(t, cfg)

	for _, msg := range []string{`{"op":"ping"}`, string(bytes.Repeat([]byte("q"), 300)), string(bytes.Repeat([]byte("w"), 70000))} {
		send(t, c, msg)
		got, err := next(t, c)
		require.NoError(t, err)
		require.Equal(t, msg, string(got))
	}
	require.Equal(t, Streaming, c.State())
}

func TestConnPushAfterUpgrade(t *testing.T) {
	done := make(chan struct{})
	defer close(done)
	cfg := venue(t, websocket.Upgrader{}, func(c *websocket.Conn) {
		_ = c.WriteMessage(websocket.TextMessage, []byte("first"))
		_ = c.WriteMessage(websocket.TextMessage, []byte("second"))
		<-done
	})
	c := dialed(t, cfg)

	got, err := next(t, c)
	require.NoError(t, err)
	require.Equal(t, "first", string(got))
	got, err = next(t, c)
	require.NoError(t, err)
	require.Equal(t, "second", string(got))
}

func TestConnAnswersPing(t *testing.T) {
	pongs := make(chan string, 1)
	cfg := venue(t, websocket.Upgrader{}, func(c *websocket.Conn) {
		c.SetPongHandler(func(data string) error {
			pongs <- data
			return nil
		})
		_ = c.WriteControl(websocket.PingMessage, []byte("hb"), time.Now().Add(time.Second))
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	})
	c := dialed(t, cfg)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		_ = c.Step(now())
		_, err := c.ReadMessage(now())
		require.ErrorIs(t, err, ErrWouldBlock)
		select {
		case data := <-pongs:
			require.Equal(t, "hb", data)
			return
		default:
			time.Sleep(100 * time.Microsecond)
		}
	}
	t.Fatal("pong never reached the venue")
}

func TestConnKeepAlivePings(t *testing.T) {
	pings := make(chan struct{}, 8)
	cfg := venue(t, websocket.Upgrader{}, func(c *websocket.Conn) {
		c.SetPingHandler(func(string) error {
			select {
			case pings <- struct{}{}:
			default:
			}
			return c.WriteControl(websocket.PongMessage, nil, time.Now().Add(time.Second))
		})
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	})
	cfg.PingInterval = 20 * time.Millisecond
	c := dialed(t, cfg)

	deadline := time.Now().Add(2 * time.Second)
	seen := 0
	for seen < 3 && time.Now().Before(deadline) {
		require.NoError(t, c.Step(now()))
		_, err := c.ReadMessage(now())
		require.ErrorIs(t, err, ErrWouldBlock)
		select {
		case <-pings:
			seen++
		default:
			time.Sleep(time.Millisecond)
		}
	}
	require.Equal(t, 3, seen)
	require.Equal(t, Streaming, c.State())
}

// ==============================================================================
// FAULTS
// ==============================================================================

func TestConnFragmentedIsViolation(t *testing.T) {
	done := make(chan struct{})
	defer close(done)
	cfg := venue(t, websocket.Upgrader{}, func(c *websocket.Conn) {
		// first fragment of a text message: FIN clear, unmasked, 2 bytes
		_, _ = c.UnderlyingConn().Write([]byte{0x01, 0x02, 'a', 'b'})
		<-done
	})
	c := dialed(t, cfg)

	_, err := next(t, c)
	require.Equal(t, KindProtocolViolation, KindOf(err))
	require.ErrorIs(t, err, ws.ErrFragmented)
	require.Equal(t, Faulted, c.State())

	_, err = c.Write([]byte{0x81, 0x80, 0, 0, 0, 0})
	require.Equal(t, KindProtocolViolation, KindOf(err))
	_, err = c.ReadMessage(now())
	require.Equal(t, KindProtocolViolation, KindOf(err))

	c.Reset()
	require.Equal(t, Idle, c.State())
	require.NoError(t, c.Fault())
}

func TestConnPeerDrop(t *testing.T) {
	cfg := venue(t, websocket.Upgrader{}, func(c *websocket.Conn) {
		_ = c.UnderlyingConn().Close()
	})
	c := dialed(t, cfg)

	_, err := next(t, c)
	require.Equal(t, KindConnectionReset, KindOf(err))
	require.Equal(t, Faulted, c.State())
}

func TestConnPeerCloseFrame(t *testing.T) {
	done := make(chan struct{})
	defer close(done)
	cfg := venue(t, websocket.Upgrader{}, func(c *websocket.Conn) {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "maintenance")
		_ = c.WriteMessage(websocket.CloseMessage, msg)
		<-done
	})
	c := dialed(t, cfg)

	_, err := next(t, c)
	require.Equal(t, KindConnectionReset, KindOf(err))
	require.ErrorIs(t, err, ErrPeerClosed)
}

func TestConnSilence(t *testing.T) {
	done := make(chan struct{})
	defer close(done)
	cfg := venue(t, websocket.Upgrader{}, func(c *websocket.Conn) {
		<-done // never reads, never answers pings
	})
	cfg.PingInterval = 10 * time.Millisecond
	c := dialed(t, cfg)

	_, err := next(t, c)
	require.Equal(t, KindConnectionReset, KindOf(err))
	require.ErrorIs(t, err, ErrSilence)
}

func TestConnPlainServerFailsTLS(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	c, err := New(configFor(t, srv))
	require.NoError(t, err)
	t.Cleanup(c.Reset)
	require.NoError(t, c.Connect(now()))
	drive(t, c, Faulted)

	require.Equal(t, KindHandshakeFailed, KindOf(c.Fault()))
}

func TestConnUpgradeRefused(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	c, err := New(configFor(t, srv))
	require.NoError(t, err)
	t.Cleanup(c.Reset)
	require.NoError(t, c.Connect(now()))
	drive(t, c, Faulted)

	require.Equal(t, KindHandshakeFailed, KindOf(c.Fault()))
	require.ErrorIs(t, c.Fault(), ws.ErrBadStatus)
}

func TestConnRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().(*net.TCPAddr).AddrPort()
	require.NoError(t, l.Close())

	c, err := New(Config{Addr: addr, Host: "127.0.0.1", HandshakeTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(c.Reset)
	if err := c.Connect(now()); err == nil {
		drive(t, c, Faulted)
	}
	require.Equal(t, Faulted, c.State())
	require.Equal(t, KindHandshakeFailed, KindOf(c.Fault()))
}

func TestConnNotStreaming(t *testing.T) {
	c, err := New(Config{Host: "127.0.0.1"})
	require.NoError(t, err)

	_, err = c.ReadMessage(now())
	require.ErrorIs(t, err, ErrNotStreaming)
	_, err = c.Write([]byte("x"))
	require.ErrorIs(t, err, ErrNotStreaming)
	require.NoError(t, c.Step(now()))
}

// ==============================================================================
// LIFECYCLE
// ==============================================================================

func TestConnReconnect(t *testing.T) {
	cfg := venue(t, websocket.Upgrader{}, func(c *websocket.Conn) {
		for {
			mt, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			_ = c.WriteMessage(mt, msg)
		}
	})
	c := dialed(t, cfg)
	send(t, c, "one")
	_, err := next(t, c)
	require.NoError(t, err)

	c.Reset()
	require.NoError(t, c.Connect(now()))
	drive(t, c, Streaming)
	send(t, c, "two")
	got, err := next(t, c)
	require.NoError(t, err)
	require.Equal(t, "two", string(got))
}

func TestConnGracefulClose(t *testing.T) {
	codes := make(chan int, 1)
	cfg := venue(t, websocket.Upgrader{}, func(c *websocket.Conn) {
		_, _, err := c.ReadMessage()
		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			codes <- ce.Code
		}
	})
	c := dialed(t, cfg)

	c.Close(now(), 100*time.Millisecond)
	drive(t, c, Idle)

	select {
	case code := <-codes:
		require.Equal(t, websocket.CloseNormalClosure, code)
	case <-time.After(5 * time.Second):
		t.Fatal("venue saw no close frame")
	}
}

func TestConnRegistersWithPoller(t *testing.T) {
	release := make(chan struct{})
	done := make(chan struct{})
	defer close(done)
	cfg := venue(t, websocket.Upgrader{}, func(c *websocket.Conn) {
		<-release
		_ = c.WriteMessage(websocket.TextMessage, []byte("tick"))
		<-done
	})
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()
	cfg.Poll, cfg.Token = p, 3
	c := dialed(t, cfg)

	// drain anything the handshake left readable
	for {
		_, err := c.ReadMessage(now())
		if err == ErrWouldBlock {
			break
		}
		require.NoError(t, err)
	}
	close(release)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ready, err := p.Wait(50 * time.Millisecond)
		require.NoError(t, err)
		for _, r := range ready {
			if r.Token != 3 || !r.Readable {
				continue
			}
			msg, err := c.ReadMessage(now())
			if err == ErrWouldBlock {
				continue
			}
			require.NoError(t, err)
			require.Equal(t, "tick", string(msg))
			return
		}
	}
	t.Fatal("poller never reported the stream readable")
}

func TestTrackFrames(t *testing.T) {
	c := &Conn{}
	var a, b [32]byte
	na, _ := ws.EncodeFrame(a[:], gws.OpText, []byte("hello"), [4]byte{})
	nb, _ := ws.EncodeFrame(b[:], gws.OpText, []byte("world!"), [4]byte{})
	stream := append(append([]byte{}, a[:na]...), b[:nb]...)

	require.NoError(t, c.track(stream, na+3))
	require.Equal(t, nb-3, c.outstanding)
	require.NoError(t, c.track(stream[na+3:], nb-3))
	require.Zero(t, c.outstanding)

	require.ErrorIs(t, c.track([]byte{0x81}, 1), ErrBadFrame)
}
