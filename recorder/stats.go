package recorder

import (
	"time"

	"tick2trade/ring"
)

// VenueStats are the running counters for one venue.
type VenueStats struct {
	Ticks     uint64
	Gaps      uint64
	Resyncs   uint64
	Malformed uint64
	Faults    uint64
	Orders    uint64
	Fills     uint64
	Rejects   uint64

	latN   uint64
	latSum float64
	latMax float64
}

func (s *VenueStats) count(c ring.Code) {
	switch c {
	case ring.CodeGap:
		s.Gaps++
	case ring.CodeResync:
		s.Resyncs++
	case ring.CodeMalformed:
		s.Malformed++
	case ring.CodeTransportFault:
		s.Faults++
	}
}

func (s *VenueStats) observeLatency(ns float64) {
	s.latN++
	s.latSum += ns
	if ns > s.latMax {
		s.latMax = ns
	}
}

// MeanLatency is the mean tick-to-trade time over every sample.
func (s *VenueStats) MeanLatency() time.Duration {
	if s.latN == 0 {
		return 0
	}
	return time.Duration(s.latSum / float64(s.latN))
}

// MaxLatency is the slowest sample seen.
func (s *VenueStats) MaxLatency() time.Duration { return time.Duration(s.latMax) }

// Samples is the number of latency samples seen.
func (s *VenueStats) Samples() uint64 { return s.latN }
