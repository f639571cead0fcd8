package worker

import (
	"math"
	"math/rand"
	"time"
)

// ExponentialBackoff doubles base per attempt up to capDelay, plus up to
// 250ms of jitter.
func ExponentialBackoff(attempt int, base, capDelay time.Duration) time.Duration {
	// attempt=0 => base
	// attempt=1 => 2*base
	// attempt=2 => 4*base

	multiple := math.Pow(2, float64(attempt))
	delay := time.Duration(float64(base) * multiple)

	if delay > capDelay || delay <= 0 {
		delay = capDelay
	}

	// small jitter (0–250ms) to avoid thundering herd
	delay += time.Duration(rand.Intn(250)) * time.Millisecond
	return delay
}
