package strategy

import (
	"errors"
	"time"
)

// ErrGuardBreached reports a latency or loss guard trip.
var ErrGuardBreached = errors.New("strategy: guard breached")

// LatencyGuard trips after a run of slow ticks. A single fast tick ends the
// run.
type LatencyGuard struct {
	limit  int64
	need   int
	streak int
}

// NewLatencyGuard trips after consecutive ticks slower than limit. A zero
// limit disables the guard.
func NewLatencyGuard(limit time.Duration, consecutive int) *LatencyGuard {
	if consecutive < 1 {
		consecutive = 1
	}
	return &LatencyGuard{limit: int64(limit), need: consecutive}
}

// Observe records one tick's processing time in nanoseconds.
func (g *LatencyGuard) Observe(ns int64) error {
	if g.limit <= 0 {
		return nil
	}
	if ns <= g.limit {
		g.streak = 0
		return nil
	}
	g.streak++
	if g.streak < g.need {
		return nil
	}
	g.streak = 0
	return ErrGuardBreached
}

// Streak returns the current run of slow ticks.
func (g *LatencyGuard) Streak() int { return g.streak }

func (g *LatencyGuard) Reset() { g.streak = 0 }
