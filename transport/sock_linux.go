//go:build linux

package transport

import "golang.org/x/sys/unix"

// tunePlatform disables delayed ACKs. Linux resets the flag after some
// events; it is re-armed on every read by rearmQuickAck.
func tunePlatform(fd int) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_QUICKACK, 1)
}

func rearmQuickAck(fd int) {
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_QUICKACK, 1)
}
