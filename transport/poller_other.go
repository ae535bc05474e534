//go:build !linux

// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: poller_other.go — poll(2) readiness multiplexer
//
// Purpose:
//   - Same contract as the epoll poller for hosts without epoll
// ─────────────────────────────────────────────────────────────────────────────

package transport

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

var errPollerFull = errors.New("transport: poller full")

type Poller struct {
	n      int
	fds    [maxPollEvents]unix.PollFd
	tokens [maxPollEvents]int32
	ready  [maxPollEvents]Readiness
}

func NewPoller() (*Poller, error) { return &Poller{}, nil }

func (p *Poller) Add(fd int, token int32) error {
	if p.n == maxPollEvents {
		return errPollerFull
	}
	p.fds[p.n] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	p.tokens[p.n] = token
	p.n++
	return nil
}

func (p *Poller) SetWrite(fd int, _ int32, on bool) error {
	for i := 0; i < p.n; i++ {
		if p.fds[i].Fd == int32(fd) {
			p.fds[i].Events = unix.POLLIN
			if on {
				p.fds[i].Events |= unix.POLLOUT
			}
			return nil
		}
	}
	return unix.ENOENT
}

func (p *Poller) Remove(fd int) error {
	for i := 0; i < p.n; i++ {
		if p.fds[i].Fd == int32(fd) {
			p.n--
			p.fds[i], p.tokens[i] = p.fds[p.n], p.tokens[p.n]
			return nil
		}
	}
	return unix.ENOENT
}

func (p *Poller) Wait(timeout time.Duration) ([]Readiness, error) {
	ms := int(timeout / time.Millisecond)
	if ms == 0 && timeout > 0 {
		ms = 1
	}
	if p.n == 0 {
		time.Sleep(timeout)
		return p.ready[:0], nil
	}
	_, err := unix.Poll(p.fds[:p.n], ms)
	if err != nil {
		if err == unix.EINTR {
			return p.ready[:0], nil
		}
		return p.ready[:0], err
	}
	k := 0
	for i := 0; i < p.n; i++ {
		re := p.fds[i].Revents
		if re == 0 {
			continue
		}
		p.ready[k] = Readiness{
			Token:    p.tokens[i],
			Readable: re&unix.POLLIN != 0,
			Writable: re&unix.POLLOUT != 0,
			Hangup:   re&(unix.POLLHUP|unix.POLLERR) != 0,
		}
		k++
	}
	return p.ready[:k], nil
}

func (p *Poller) Close() error { return nil }
