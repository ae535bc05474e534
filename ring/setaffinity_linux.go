//go:build linux

// setaffinity_linux.go
//
// Linux-only binding for `sched_setaffinity(2)` that pins **this** OS thread
// to a single logical CPU.  The CPUSet lives on the stack; the call is made
// once per thread at startup.

package ring

import "golang.org/x/sys/unix"

// setAffinity pins the *current thread* to `cpu` (0-based).  Negative
// indices are ignored.
func setAffinity(cpu int) error {
	if cpu < 0 {
		return nil
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set) // pid 0 → current thread
}
