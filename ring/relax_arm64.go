//go:build arm64 && !noasm

// relax_arm64.go
//
// Go declaration for cpuRelax on arm64.  relax_arm64.s emits YIELD, the
// spin-loop hint on ARMv8.

package ring

// cpuRelax executes the arm64 YIELD instruction.
//
//go:noescape
func cpuRelax()
