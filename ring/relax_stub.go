//go:build (!amd64 && !arm64) || noasm

// relax_stub.go
//
// Portable fall-back for other architectures or when assembly stubs are
// disabled.  Declares cpuRelax as an empty function so source compiles
// unchanged on every architecture.

package ring

// cpuRelax is a no-op on unsupported targets.
func cpuRelax() {}
