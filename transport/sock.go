// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: sock.go — Raw non-blocking TCP sockets
//
// Purpose:
//   - Opens a tuned, non-blocking TCP socket and starts connect(2)
//   - Reports completion through SO_ERROR without blocking
//
// Notes:
//   - Nagle is disabled; buffer sizes come from the caller
//   - TCP_QUICKACK is applied on Linux only (sock_linux.go)
// ─────────────────────────────────────────────────────────────────────────────

package transport

import (
	"net/netip"

	"golang.org/x/sys/unix"
)

// dial opens a socket to addr and starts a non-blocking connect. The
// returned fd is connecting or, on loopback, occasionally already connected.
func dial(addr netip.AddrPort, sockBuf int) (int, error) {
	domain := unix.AF_INET
	if addr.Addr().Is6() && !addr.Addr().Is4In6() {
		domain = unix.AF_INET6
	}
	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := tune(fd, sockBuf); err != nil {
		unix.Close(fd)
		return -1, err
	}

	var sa unix.Sockaddr
	if domain == unix.AF_INET {
		sa = &unix.SockaddrInet4{Port: int(addr.Port()), Addr: addr.Addr().Unmap().As4()}
	} else {
		sa = &unix.SockaddrInet6{Port: int(addr.Port()), Addr: addr.Addr().As16()}
	}
	if err := unix.Connect(fd, sa); err != nil && err != unix.EINPROGRESS && err != unix.EINTR {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// tune sets latency options shared by every platform.
func tune(fd, sockBuf int) error {
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		return err
	}
	if sockBuf > 0 {
		// best effort, the kernel clamps to its own limits
		_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, sockBuf)
		_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, sockBuf)
	}
	return tunePlatform(fd)
}

// connected polls a connecting fd once. done is false while the connect is
// still in progress; err is the connect result once done.
func connected(fd int) (done bool, err error) {
	fds := [1]unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	n, err := unix.Poll(fds[:], 0)
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return true, err
	}
	if n == 0 {
		return false, nil
	}
	soErr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return true, err
	}
	if soErr != 0 {
		return true, unix.Errno(soErr)
	}
	return true, nil
}
