// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: frame.go — RFC 6455 frame header decode & masked encode
//
// Purpose:
//   - Decodes server frame headers straight out of a receive window
//   - Encodes masked client frames into a caller buffer
//
// Notes:
//   - Types, opcodes, header validation and masking come from gobwas/ws;
//     its io.Reader/io.Writer helpers are not used because they allocate
//   - Server frames must be unmasked; client frames are always masked
//
// ⚠️ Decoded payload views alias the window; consume before compaction
// ─────────────────────────────────────────────────────────────────────────────

package ws

import (
	"encoding/binary"
	"errors"

	gws "github.com/gobwas/ws"
)

// MaxHeaderSize is the largest client frame header: 2 + 8 length + 4 mask.
const MaxHeaderSize = 14

var (
	ErrFrameTooLarge = errors.New("ws: frame exceeds receive buffer")
	ErrFragmented    = errors.New("ws: fragmented messages are not supported")
	ErrShortBuffer   = errors.New("ws: destination too small for frame")
)

// DecodeHeader parses one frame header from the front of b.
//
// n is the header length. n == 0 with a nil error means b does not yet hold
// a full header. The returned error is a gobwas protocol error for frames a
// client must reject, or ErrFrameTooLarge when the payload could never fit
// in limit bytes.
//
//go:nosplit
func DecodeHeader(b []byte, limit int) (h gws.Header, n int, err error) {
	if len(b) < 2 {
		return h, 0, nil
	}
	h.Fin = b[0]&0x80 != 0
	h.Rsv = (b[0] & 0x70) >> 4
	h.OpCode = gws.OpCode(b[0] & 0x0f)
	h.Masked = b[1]&0x80 != 0

	n = 2
	switch l := b[1] & 0x7f; {
	case l < 126:
		h.Length = int64(l)
	case l == 126:
		if len(b) < 4 {
			return h, 0, nil
		}
		h.Length = int64(binary.BigEndian.Uint16(b[2:4]))
		n = 4
	default:
		if len(b) < 10 {
			return h, 0, nil
		}
		v := binary.BigEndian.Uint64(b[2:10])
		if v > uint64(limit) {
			return h, 0, ErrFrameTooLarge
		}
		h.Length = int64(v)
		n = 10
	}
	if h.Masked {
		if len(b) < n+4 {
			return h, 0, nil
		}
		copy(h.Mask[:], b[n:n+4])
		n += 4
	}

	if err := gws.CheckHeader(h, gws.StateClientSide); err != nil {
		return h, 0, err
	}
	if h.Length > int64(limit) {
		return h, 0, ErrFrameTooLarge
	}
	return h, n, nil
}

// FrameSize returns the encoded size of a masked client frame.
//
//go:nosplit
func FrameSize(payloadLen int) int {
	switch {
	case payloadLen < 126:
		return 2 + 4 + payloadLen
	case payloadLen <= 0xffff:
		return 4 + 4 + payloadLen
	}
	return 10 + 4 + payloadLen
}

// FrameLen returns the full encoded size of the frame at the front of b,
// header included, masked or not. ok is false while the header is short.
//
//go:nosplit
func FrameLen(b []byte) (size int, ok bool) {
	if len(b) < 2 {
		return 0, false
	}
	n := 2
	var l uint64
	switch l7 := b[1] & 0x7f; {
	case l7 < 126:
		l = uint64(l7)
	case l7 == 126:
		if len(b) < 4 {
			return 0, false
		}
		l = uint64(binary.BigEndian.Uint16(b[2:4]))
		n = 4
	default:
		if len(b) < 10 {
			return 0, false
		}
		l = binary.BigEndian.Uint64(b[2:10])
		n = 10
	}
	if b[1]&0x80 != 0 {
		n += 4
	}
	return n + int(l), true
}

// EncodeFrame writes a final, masked client frame carrying payload into dst
// and returns its length.
func EncodeFrame(dst []byte, op gws.OpCode, payload []byte, mask [4]byte) (int, error) {
	size := FrameSize(len(payload))
	if size > len(dst) {
		return 0, ErrShortBuffer
	}
	dst[0] = 0x80 | byte(op)
	n := 2
	switch l := len(payload); {
	case l < 126:
		dst[1] = 0x80 | byte(l)
	case l <= 0xffff:
		dst[1] = 0x80 | 126
		binary.BigEndian.PutUint16(dst[2:4], uint16(l))
		n = 4
	default:
		dst[1] = 0x80 | 127
		binary.BigEndian.PutUint64(dst[2:10], uint64(l))
		n = 10
	}
	copy(dst[n:n+4], mask[:])
	n += 4
	copy(dst[n:], payload)
	gws.Cipher(dst[n:n+len(payload)], mask, 0)
	return size, nil
}

// ClosePayload fills a close frame body with a status code.
func ClosePayload(dst *[2]byte, code gws.StatusCode) []byte {
	binary.BigEndian.PutUint16(dst[:], uint16(code))
	return dst[:]
}
