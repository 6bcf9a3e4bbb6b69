package session

import (
	"math/rand"
	"time"
)

// calculateBackoff returns the delay before retry number attempt (0-based):
// exponential doubling from base, capped, with 25% jitter either way so
// simultaneous clients don't reconnect in lockstep.
func calculateBackoff(attempt int, base, cap time.Duration) time.Duration {
	delay := base << uint(attempt)
	if delay > cap || delay <= 0 {
		delay = cap
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2+1)) - delay/4
	delay += jitter
	if delay < 0 {
		delay = 0
	}
	return delay
}
