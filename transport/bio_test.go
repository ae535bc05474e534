package transport

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// socketPair returns two connected non-blocking stream sockets.
func socketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	for _, fd := range fds {
		require.NoError(t, unix.SetNonblock(fd, true))
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func nonBlocking(fd int) *fdConn {
	b := newFdConn()
	b.attach(fd, time.Now().Add(time.Second))
	b.blocking = false
	return b
}

func TestFdConnReadWouldBlock(t *testing.T) {
	a, peer := socketPair(t)
	b := nonBlocking(a)

	var buf [16]byte
	_, err := b.Read(buf[:])
	require.ErrorIs(t, err, ErrWouldBlock)

	_, err = unix.Write(peer, []byte("abc"))
	require.NoError(t, err)
	n, err := b.Read(buf[:])
	require.NoError(t, err)
	require.Equal(t, "abc", string(buf[:n]))

	unix.Shutdown(peer, unix.SHUT_WR)
	_, err = b.Read(buf[:])
	require.ErrorIs(t, err, io.EOF)
}

func TestFdConnPendingDrains(t *testing.T) {
	a, peer := socketPair(t)
	b := nonBlocking(a)

	chunk := bytes.Repeat([]byte{'z'}, 32<<10)
	total := 0
	for b.buffered() == 0 && total < 16<<20 {
		n, err := b.Write(chunk)
		require.NoError(t, err)
		total += n
	}
	require.Positive(t, b.buffered(), "kernel never pushed back")

	got := 0
	buf := make([]byte, 64<<10)
	deadline := time.Now().Add(5 * time.Second)
	for got < total {
		require.True(t, time.Now().Before(deadline))
		n, err := unix.Read(peer, buf)
		if n > 0 {
			require.Equal(t, bytes.Repeat([]byte{'z'}, n), buf[:n])
			got += n
		} else if err != nil && err != unix.EAGAIN {
			t.Fatal(err)
		}
		require.NoError(t, b.flush())
	}
	require.Equal(t, total, got)
	require.Zero(t, b.buffered())
}

func TestFdConnOverrun(t *testing.T) {
	a, _ := socketPair(t)
	b := nonBlocking(a)

	chunk := make([]byte, 64<<10)
	var err error
	for i := 0; i < 1<<10 && err == nil; i++ {
		_, err = b.Write(chunk)
	}
	require.True(t, errors.Is(err, ErrCipherOverrun), "got %v", err)
	require.Less(t, b.room(), len(chunk))
}

func TestFdConnBlockingDeadline(t *testing.T) {
	a, _ := socketPair(t)
	b := newFdConn()
	b.attach(a, time.Now().Add(20*time.Millisecond))

	start := time.Now()
	var buf [4]byte
	_, err := b.Read(buf[:])
	require.ErrorIs(t, err, errDeadline)
	require.Less(t, time.Since(start), time.Second)
}
