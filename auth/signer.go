// Package auth signs venue requests with HMAC-SHA256.
//
// Signatures are written as lowercase hex into a caller-owned [64]byte so
// the order path can sign without allocating. The hash state is reset and
// reused between calls, which makes a Signer single-goroutine.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strconv"
)

// HexLen is the length of a hex-encoded SHA-256 tag.
const HexLen = 64

var realtimePrefix = []byte("GET/realtime")

// Signer holds one keyed HMAC.
type Signer struct {
	mac hash.Hash
	sum [sha256.Size]byte
	num [20]byte
}

// NewSigner keys a signer with secret.
func NewSigner(secret string) *Signer {
	return &Signer{mac: hmac.New(sha256.New, []byte(secret))}
}

// Sign writes hex(HMAC(secret, payload)) into out.
func (s *Signer) Sign(payload []byte, out *[HexLen]byte) {
	s.mac.Reset()
	s.mac.Write(payload)
	hex.Encode(out[:], s.mac.Sum(s.sum[:0]))
}

// SignRealtime signs the websocket auth payload "GET/realtime"+expires.
func (s *Signer) SignRealtime(expiresMs int64, out *[HexLen]byte) {
	s.mac.Reset()
	s.mac.Write(realtimePrefix)
	s.mac.Write(strconv.AppendInt(s.num[:0], expiresMs, 10))
	hex.Encode(out[:], s.mac.Sum(s.sum[:0]))
}
