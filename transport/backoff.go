package transport

import "time"

// Backoff is the wait before reconnect attempt number failures (1-based):
// base doubled per consecutive failure, capped at max. Zero failures means
// reconnect at once.
func Backoff(failures int, base, max time.Duration) time.Duration {
	if failures <= 0 || base <= 0 {
		return 0
	}
	d := base
	for i := 1; i < failures; i++ {
		if d >= max/2 {
			return max
		}
		d <<= 1
	}
	if d > max {
		return max
	}
	return d
}
