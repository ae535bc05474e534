// control.go - Cross-thread control flags for the trading core
// ============================================================================
// SYSTEM CONTROL ORCHESTRATION
// ============================================================================
//
// The only state shared between Thread 0, Thread 1 and the operator:
//
//   • kill       : operator kill switch; Thread 0 checks it once per loop
//                  iteration and runs the Safe Mode cancel-all sequence
//   • lossGuard  : latched by the cold thread when cumulative PnL breaches
//                  the configured loss limit; blocks Safe Mode recovery
//   • stop       : tells the cold consumer to drain and exit
//
// Each flag is single-writer / multi-reader. No flag carries data: they are
// coarse signals, never a channel for market or order state.

package control

import "go.uber.org/atomic"

// Flags bundles the control signals for one engine instance.
// The zero value is ready to use with every flag cleared.
type Flags struct {
	kill      atomic.Bool
	lossGuard atomic.Bool
	stop      atomic.Bool
}

// ============================================================================
// GLOBAL STATE MANAGEMENT
// ============================================================================

var global Flags

// Global returns the process-wide flag set wired into main.
func Global() *Flags { return &global }

// Kill sets the process-wide kill switch.
func Kill() { global.Kill() }

// Shutdown asks the process-wide cold consumer to drain and exit.
func Shutdown() { global.Shutdown() }

// ============================================================================
// KILL SWITCH
// ============================================================================

// Kill sets the kill switch. Safe to call from any goroutine, any number of
// times.
func (f *Flags) Kill() { f.kill.Store(true) }

// Killed reports whether the kill switch is set.
//
//go:nosplit
func (f *Flags) Killed() bool { return f.kill.Load() }

// ============================================================================
// LOSS GUARD
// ============================================================================

// TripLossGuard latches the loss guard. Only the cold thread calls this.
// It reports whether this call was the one that tripped it.
func (f *Flags) TripLossGuard() bool { return !f.lossGuard.Swap(true) }

// LossGuardTripped reports whether the loss guard is latched.
//
//go:nosplit
func (f *Flags) LossGuardTripped() bool { return f.lossGuard.Load() }

// ClearLossGuard releases the latch. Operator action only.
func (f *Flags) ClearLossGuard() { f.lossGuard.Store(false) }

// ============================================================================
// SHUTDOWN
// ============================================================================

// Shutdown signals the cold consumer to drain remaining events and exit.
func (f *Flags) Shutdown() { f.stop.Store(true) }

// Stopping reports whether Shutdown was called.
func (f *Flags) Stopping() bool { return f.stop.Load() }

// StopFlag exposes the shutdown flag for ring.PinnedConsumer.
func (f *Flags) StopFlag() *atomic.Bool { return &f.stop }
