package config

import (
	"encoding/hex"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
	"gopkg.in/yaml.v3"
)

// Fingerprint hashes the configuration with credentials blanked, so two
// sessions run with the same settings share a fingerprint.
func (c *Config) Fingerprint() string {
	cp := *c
	cp.Credentials = Credentials{}
	b, err := yaml.Marshal(&cp)
	if err != nil {
		return ""
	}
	sum := sha3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Session identifies one process run.
type Session struct {
	ID     string // uuid, the recorder session key
	Prefix string // client order id prefix, constants.ClientIDPrefixLen chars
}

// NewSession draws a fresh session id.
func NewSession() Session {
	id := uuid.New()
	var buf [32]byte
	hex.Encode(buf[:], id[:])
	return Session{ID: id.String(), Prefix: string(buf[:8])}
}
