package engine

import (
	"time"

	"tick2trade/transport"
)

// fakeStream is an in-memory Stream. Connect goes straight to Streaming;
// frames are the raw payload.
type fakeStream struct {
	state    transport.State
	inbox    [][]byte
	sent     []string
	connects int
	closed   int

	failNext  error
	failWrite error // returned by the next Write, which faults the stream
	fault     error
}

func (f *fakeStream) State() transport.State { return f.state }
func (f *fakeStream) Fault() error           { return f.fault }

func (f *fakeStream) Connect(int64) error {
	f.connects++
	f.state = transport.Streaming
	return nil
}

func (f *fakeStream) Step(int64) error {
	if f.failNext == nil {
		return nil
	}
	err := f.failNext
	f.failNext, f.fault, f.state = nil, err, transport.Faulted
	return err
}

func (f *fakeStream) ReadMessage(int64) ([]byte, error) {
	if f.state != transport.Streaming {
		return nil, transport.ErrNotStreaming
	}
	if len(f.inbox) == 0 {
		return nil, transport.ErrWouldBlock
	}
	m := f.inbox[0]
	f.inbox = f.inbox[1:]
	return m, nil
}

func (f *fakeStream) Frame(dst, payload []byte) (int, error) {
	return copy(dst, payload), nil
}

func (f *fakeStream) Write(p []byte) (int, error) {
	if f.state != transport.Streaming {
		return 0, transport.ErrNotStreaming
	}
	if err := f.failWrite; err != nil {
		f.failWrite, f.fault, f.state = nil, err, transport.Faulted
		return 0, err
	}
	f.sent = append(f.sent, string(p))
	return len(p), nil
}

func (f *fakeStream) Close(int64, time.Duration) {
	f.closed++
	f.state = transport.Idle
}

func (f *fakeStream) Reset() {
	f.state = transport.Idle
	f.inbox = nil
}

func (f *fakeStream) push(frames ...string) {
	for _, s := range frames {
		f.inbox = append(f.inbox, []byte(s))
	}
}

func (f *fakeStream) last() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

// fakePoller reports every stream readable on every wait.
type fakePoller struct{ waits int }

var allReady = []transport.Readiness{
	{Token: TokenMarketA, Readable: true},
	{Token: TokenMarketB, Readable: true},
	{Token: TokenTrade, Readable: true},
}

func (p *fakePoller) Wait(time.Duration) ([]transport.Readiness, error) {
	p.waits++
	return allReady, nil
}
