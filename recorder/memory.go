package recorder

import (
	"runtime"
	rtdebug "runtime/debug"
	"runtime/metrics"

	"github.com/phuslu/log"
)

// heapMetric is live plus unswept heap objects. Reading it does not stop
// the world, unlike runtime.ReadMemStats.
const heapMetric = "/memory/classes/heap/objects:bytes"

// memGuard trims the heap above soft and complains above hard. The
// process runs with the collector off, so this is the only place a GC
// happens.
type memGuard struct {
	soft   uint64
	hard   uint64
	sample [1]metrics.Sample
}

func (g *memGuard) heap() uint64 {
	g.sample[0].Name = heapMetric
	metrics.Read(g.sample[:])
	if g.sample[0].Value.Kind() != metrics.KindUint64 {
		return 0
	}
	return g.sample[0].Value.Uint64()
}

func (g *memGuard) check(l *log.Logger) {
	if g.soft == 0 && g.hard == 0 {
		return
	}
	heap := g.heap()
	if g.soft > 0 && heap > g.soft {
		old := rtdebug.SetGCPercent(100)
		runtime.GC()
		rtdebug.SetGCPercent(old)
		l.Warn().Uint64("heap", heap).Uint64("soft", g.soft).Msg("recorder: heap trimmed")
		heap = g.heap()
	}
	if g.hard > 0 && heap > g.hard {
		l.Error().Uint64("heap", heap).Uint64("hard", g.hard).Msg("recorder: heap over hard limit")
	}
}
