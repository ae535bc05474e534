//go:build linux

// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: poller_linux.go — epoll readiness multiplexer
//
// Purpose:
//   - The only place Thread 0 suspends, bounded by the wait timeout
//
// Notes:
//   - Level-triggered: a connection read until ErrWouldBlock is re-reported
//     only when new bytes arrive
//   - Results land in a fixed array; Wait allocates nothing
// ─────────────────────────────────────────────────────────────────────────────

package transport

import (
	"time"

	"golang.org/x/sys/unix"
)

type Poller struct {
	epfd   int
	events [maxPollEvents]unix.EpollEvent
	ready  [maxPollEvents]Readiness
}

func NewPoller() (*Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &Poller{epfd: fd}, nil
}

func (p *Poller) Add(fd int, token int32) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLRDHUP, Fd: token}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *Poller) SetWrite(fd int, token int32, on bool) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLRDHUP, Fd: token}
	if on {
		ev.Events |= unix.EPOLLOUT
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *Poller) Remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait blocks up to timeout and returns the ready set. The slice is reused
// by the next call.
func (p *Poller) Wait(timeout time.Duration) ([]Readiness, error) {
	ms := int(timeout / time.Millisecond)
	if ms == 0 && timeout > 0 {
		ms = 1
	}
	n, err := unix.EpollWait(p.epfd, p.events[:], ms)
	if err != nil {
		if err == unix.EINTR {
			return p.ready[:0], nil
		}
		return p.ready[:0], err
	}
	for i := 0; i < n; i++ {
		ev := p.events[i].Events
		p.ready[i] = Readiness{
			Token:    p.events[i].Fd,
			Readable: ev&(unix.EPOLLIN|unix.EPOLLPRI) != 0,
			Writable: ev&unix.EPOLLOUT != 0,
			Hangup:   ev&(unix.EPOLLHUP|unix.EPOLLERR|unix.EPOLLRDHUP) != 0,
		}
	}
	return p.ready[:n], nil
}

func (p *Poller) Close() error { return unix.Close(p.epfd) }
