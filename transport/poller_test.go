package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestPollerReadiness(t *testing.T) {
	a, peer := socketPair(t)
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Add(a, 7))

	ready, err := p.Wait(5 * time.Millisecond)
	require.NoError(t, err)
	require.Empty(t, ready)

	_, err = unix.Write(peer, []byte("x"))
	require.NoError(t, err)
	ready, err = p.Wait(time.Second)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	require.Equal(t, int32(7), ready[0].Token)
	require.True(t, ready[0].Readable)
	require.False(t, ready[0].Writable)

	require.NoError(t, p.SetWrite(a, 7, true))
	ready, err = p.Wait(time.Second)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	require.True(t, ready[0].Writable)

	require.NoError(t, p.Remove(a))
	ready, err = p.Wait(5 * time.Millisecond)
	require.NoError(t, err)
	require.Empty(t, ready)
}

func TestPollerWaitZeroAlloc(t *testing.T) {
	a, peer := socketPair(t)
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Add(a, 1))
	_, err = unix.Write(peer, []byte("x"))
	require.NoError(t, err)

	allocs := testing.AllocsPerRun(50, func() {
		_, _ = p.Wait(0)
	})
	require.Zero(t, allocs)
}
