package transport

// Readiness is one poller result.
type Readiness struct {
	Token    int32
	Readable bool
	Writable bool
	Hangup   bool
}

// Registrar is the part of a poller a Conn drives: it adds its fd once
// the TLS handshake is done and asks for write readiness while
// ciphertext is pending.
type Registrar interface {
	Add(fd int, token int32) error
	SetWrite(fd int, token int32, on bool) error
	Remove(fd int) error
}

const maxPollEvents = 16
