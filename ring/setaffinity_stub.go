//go:build !linux

// setaffinity_stub.go
//
// Thread affinity is a Linux facility here; elsewhere threads are only
// locked, never bound.

package ring

func setAffinity(int) error { return nil }
