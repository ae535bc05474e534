// pinned_consumer.go
//
// Cold-side SPSC consumer.
//
//   • Dedicated OS thread pinned to `core`.
//   • Stays in **hot-spin** (TryPop + cpuRelax) while work has arrived
//     within hotWindow.
//   • After the window it calls onIdle (flush, housekeeping) and then
//     parks in PopWait for at most `idle`, so a quiet feed costs a few
//     wake-ups per second instead of a full core.
//   • On *stop it drains whatever is left, then closes `done` exactly once.
//
// stop contract:
//     Owner                Consumer
//     --------             ------------------------------
//     Store true ───────▶  drain remaining, exit
//                          (consumer never writes)

package ring

import (
	"runtime"
	"time"

	"go.uber.org/atomic"
)

const hotWindow = 50 * time.Millisecond // hot-spin grace after the last item

// PinnedConsumer drains c on its own locked thread until stop is set.
// fn receives a pointer to a stack copy that is valid only for the call.
func PinnedConsumer[T any](
	core int,
	c *Consumer[T],
	stop *atomic.Bool,
	idle time.Duration,
	fn func(*T),
	onIdle func(),
	done chan<- struct{},
) {
	go func() {
		// ── thread & affinity ─────────────────────────────
		runtime.LockOSThread()
		_ = setAffinity(core) // best effort; "no pin" is the fallback
		defer func() {
			runtime.UnlockOSThread()
			close(done)
		}()

		last := time.Now()
		miss := 0

		// ── main loop ─────────────────────────────────────
		for {
			if v, ok := c.TryPop(); ok {
				fn(&v)
				miss = 0
				continue
			}
			if miss == 0 {
				last = time.Now()
			}

			if stop.Load() {
				for {
					v, ok := c.TryPop()
					if !ok {
						return
					}
					fn(&v)
				}
			}

			// ---------- choose spin mode ------------------
			if miss++; miss < spinBudget || time.Since(last) <= hotWindow {
				cpuRelax()
				continue
			}

			if onIdle != nil {
				onIdle()
			}
			if v, ok := c.PopWait(idle); ok {
				fn(&v)
				miss = 0
			}
		}
	}()
}

// Pin locks the calling goroutine to its OS thread and binds that thread
// to core.  A negative core only locks.  Thread 0 calls this first thing.
func Pin(core int) error {
	runtime.LockOSThread()
	if core < 0 {
		return nil
	}
	return setAffinity(core)
}
