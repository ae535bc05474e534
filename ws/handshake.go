// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: handshake.go — Client upgrade request & response validation
//
// Purpose:
//   - Prebuilds the HTTP/1.1 upgrade request into a fixed buffer
//   - Validates the 101 response incrementally as bytes arrive
//
// Notes:
//   - A fresh Sec-WebSocket-Key is drawn for every connection attempt
//   - No I/O here: the transport feeds bytes and writes the request
//
// ⚠️ Response bytes past the header terminator belong to the first frame;
//    callers keep them.
// ─────────────────────────────────────────────────────────────────────────────

package ws

import (
	"bytes"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"unsafe"

	"tick2trade/constants"
)

const acceptGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

var (
	ErrRequestTooLarge = errors.New("ws: upgrade request exceeds buffer")
	ErrBadStatus       = errors.New("ws: upgrade refused")
	ErrBadAccept       = errors.New("ws: Sec-WebSocket-Accept mismatch")
	ErrResponseTooLong = errors.New("ws: upgrade response exceeds buffer")

	acceptHeader = []byte("sec-websocket-accept:")

	// crlfcrlfPattern is CRLF-CRLF as a native-endian word.
	crlfcrlfPattern = *(*uint32)(unsafe.Pointer(&[4]byte{'\r', '\n', '\r', '\n'}))
)

// Handshake is one client upgrade attempt.
type Handshake struct {
	host string
	path string

	req    [constants.UpgradeRequestSize]byte
	reqLen int
	accept [28]byte
}

// NewHandshake prepares an upgrade for ws(s)://host/path.
func NewHandshake(host, path string) (*Handshake, error) {
	h := &Handshake{host: host, path: path}
	if err := h.Reset(); err != nil {
		return nil, err
	}
	return h, nil
}

// Reset draws a new key and rebuilds the request. Called per connect.
func (h *Handshake) Reset() error {
	var nonce [16]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return err
	}
	var key [24]byte
	base64.StdEncoding.Encode(key[:], nonce[:])
	return h.build(key[:])
}

func (h *Handshake) build(key []byte) error {
	parts := [...]string{
		"GET ", h.path, " HTTP/1.1\r\nHost: ", h.host,
		"\r\nUpgrade: websocket\r\nConnection: Upgrade\r\nSec-WebSocket-Key: ",
	}
	n := 0
	for _, p := range parts {
		if n+len(p) > len(h.req) {
			return ErrRequestTooLarge
		}
		n += copy(h.req[n:], p)
	}
	const tail = "\r\nSec-WebSocket-Version: 13\r\n\r\n"
	if n+len(key)+len(tail) > len(h.req) {
		return ErrRequestTooLarge
	}
	n += copy(h.req[n:], key)
	n += copy(h.req[n:], tail)
	h.reqLen = n

	sum := sha1.New()
	sum.Write(key)
	sum.Write([]byte(acceptGUID))
	var digest [sha1.Size]byte
	base64.StdEncoding.Encode(h.accept[:], sum.Sum(digest[:0]))
	return nil
}

// Request returns the prebuilt upgrade request.
func (h *Handshake) Request() []byte { return h.req[:h.reqLen] }

// ExpectedAccept returns the Sec-WebSocket-Accept value the server must echo.
func (h *Handshake) ExpectedAccept() []byte { return h.accept[:] }

// CheckResponse inspects the bytes received so far. It returns the length
// of the HTTP header block once complete, 0 while more bytes are needed,
// or an error if the server refused or answered with the wrong accept key.
func (h *Handshake) CheckResponse(resp []byte) (int, error) {
	end := FindTerminator(resp)
	if end < 0 {
		if len(resp) >= constants.HandshakeBufferSize {
			return 0, ErrResponseTooLong
		}
		return 0, nil
	}
	head := resp[:end]

	// "HTTP/1.1 101"
	if len(head) < 12 || !bytes.HasPrefix(head, []byte("HTTP/1.")) || string(head[8:12]) != " 101" {
		return 0, ErrBadStatus
	}

	for line := range bytes.SplitSeq(head, []byte("\r\n")) {
		if len(line) < len(acceptHeader) || !bytes.EqualFold(line[:len(acceptHeader)], acceptHeader) {
			continue
		}
		if bytes.Equal(bytes.TrimSpace(line[len(acceptHeader):]), h.accept[:]) {
			return end + 4, nil
		}
		return 0, ErrBadAccept
	}
	return 0, ErrBadAccept
}

// FindTerminator returns the offset of the first CRLF-CRLF, or -1.
//
//go:nosplit
func FindTerminator(data []byte) int {
	if len(data) < 4 {
		return -1
	}
	for i := 0; i <= len(data)-4; i++ {
		if *(*uint32)(unsafe.Pointer(&data[i])) == crlfcrlfPattern {
			return i
		}
	}
	return -1
}
