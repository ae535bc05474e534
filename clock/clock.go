// Package clock provides the monotonic nanosecond timestamps stamped on ring
// events and used for tick-to-trade latency.
//
// Readings come from the TSC when the CPU exposes an invariant one and fall
// back to the OS clock otherwise. Call Calibrate once at startup, before the
// hot thread is spawned.
package clock

import (
	"time"

	"github.com/templexxx/tsc"
)

// Func is a clock source. The engine takes one so tests can drive time.
type Func func() int64

// Calibrate aligns the TSC-derived clock with the wall clock.
func Calibrate() { tsc.Calibrate() }

// Now returns the current reading in nanoseconds.
//
//go:nosplit
func Now() int64 { return tsc.UnixNano() }

// Since returns the elapsed time between start and Now.
func Since(start int64) time.Duration { return time.Duration(Now() - start) }

// Manual is a test clock advanced by hand.
type Manual struct{ ns int64 }

// NewManual starts a manual clock at ns.
func NewManual(ns int64) *Manual { return &Manual{ns: ns} }

// Now returns the current manual reading.
func (m *Manual) Now() int64 { return m.ns }

// Advance moves the manual clock forward by d.
func (m *Manual) Advance(d time.Duration) { m.ns += int64(d) }
