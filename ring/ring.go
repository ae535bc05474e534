// ring.go
//
// Lock-free single-producer/single-consumer ring buffer carrying values of
// one fixed type from Thread 0 to Thread 1.  Cursors sit on their own cache
// lines and each slot carries a sequence number, so TryPush/TryPop need one
// acquire load and one release store each and nothing else.
//
// The ring is split at construction into a Producer and a Consumer handle.
// Each handle embeds a noCopy marker; `go vet` reports any copy, which keeps
// the one-writer/one-reader contract visible in code review.

package ring

import (
	"sync/atomic"
	"time"
)

const (
	spinBudget = 224                   // TryPop polls before PopWait sleeps
	sleepStep  = 50 * time.Microsecond // PopWait nap between polls
)

// slot couples a value with its sequence stamp.
type slot[T any] struct {
	seq atomic.Uint64
	val T
}

type ring[T any] struct {
	_    [64]byte // consumer cursor isolated on its own cache-line
	head uint64
	//lint:ignore U1000 padding to keep head & tail on different cache-lines
	_pad1 [56]byte
	tail  uint64
	//lint:ignore U1000 padding to keep hot fields from colliding with metadata
	_pad2 [56]byte
	mask  uint64
	buf   []slot[T]
}

// noCopy is recognised by `go vet -copylocks`.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Producer is the write half. Only Thread 0 holds it.
type Producer[T any] struct {
	_       noCopy
	r       *ring[T]
	dropped uint64
}

// Consumer is the read half. Only Thread 1 holds it.
type Consumer[T any] struct {
	_ noCopy
	r *ring[T]
}

// New allocates a ring whose size must be a power-of-two; otherwise it
// panics so that the bit-masking arithmetic stays valid.
func New[T any](size int) (*Producer[T], *Consumer[T]) {
	if size <= 0 || size&(size-1) != 0 {
		panic("ring: size must be >0 and a power of two")
	}
	r := &ring[T]{
		mask: uint64(size - 1),
		buf:  make([]slot[T], size),
	}
	for i := range r.buf {
		r.buf[i].seq.Store(uint64(i))
	}
	return &Producer[T]{r: r}, &Consumer[T]{r: r}
}

// TryPush enqueues v, returning false if the buffer is full.  A false
// return is counted as a drop; the caller carries on.
func (p *Producer[T]) TryPush(v T) bool {
	r := p.r
	t := r.tail
	s := &r.buf[t&r.mask]
	if s.seq.Load() != t {
		p.dropped++ // consumer has not yet reclaimed the slot
		return false
	}
	s.val = v
	s.seq.Store(t + 1)
	r.tail = t + 1
	return true
}

// Dropped returns the number of failed pushes so far. Producer side only.
func (p *Producer[T]) Dropped() uint64 { return p.dropped }

// Cap returns the ring capacity.
func (p *Producer[T]) Cap() int { return len(p.r.buf) }

// TryPop dequeues one value; ok is false when the buffer is empty.
func (c *Consumer[T]) TryPop() (v T, ok bool) {
	r := c.r
	h := r.head
	s := &r.buf[h&r.mask]
	if s.seq.Load() != h+1 {
		return v, false // producer has not yet published to the slot
	}
	v = s.val
	var zero T
	s.val = zero
	s.seq.Store(h + uint64(len(r.buf)))
	r.head = h + 1
	return v, true
}

// PopWait polls for up to timeout: a short spin with cpuRelax, then short
// sleeps.  ok is false if nothing arrived in time.
func (c *Consumer[T]) PopWait(timeout time.Duration) (v T, ok bool) {
	for i := 0; i < spinBudget; i++ {
		if v, ok = c.TryPop(); ok {
			return v, true
		}
		cpuRelax()
	}
	deadline := time.Now().Add(timeout)
	for {
		if v, ok = c.TryPop(); ok {
			return v, true
		}
		if !time.Now().Before(deadline) {
			return v, false
		}
		time.Sleep(sleepStep)
	}
}

// Cap returns the ring capacity.
func (c *Consumer[T]) Cap() int { return len(c.r.buf) }
