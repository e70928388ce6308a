package heal

import (
	"math/rand"
	"time"
)

const (
	backoffBase = 30 * time.Second
	backoffCap  = 15 * time.Minute

	jitterMin = 0.8
	jitterMax = 1.2
)

// Backoff is a computed restart delay.
type Backoff struct {
	Delay         time.Duration `json:"delay_ms"`
	NextAllowedAt time.Time     `json:"next_allowed_at"`
}

// ComputeBackoff returns an exponential restart delay with uniform jitter:
// min(30s × 2^restartCount, 15m) scaled by a factor in [0.8, 1.2]. The
// jitter can push the final delay past the nominal cap by up to 20%; that
// spread is what prevents a fleet of failed runners from restarting in
// lockstep.
func ComputeBackoff(restartCount int, now time.Time) Backoff {
	if restartCount < 0 {
		restartCount = 0
	}
	base := backoffCap
	if restartCount < 10 {
		base = backoffBase << uint(restartCount)
		if base > backoffCap {
			base = backoffCap
		}
	}
	jitter := jitterMin + (jitterMax-jitterMin)*rand.Float64()
	delay := time.Duration(float64(base) * jitter)
	return Backoff{Delay: delay, NextAllowedAt: now.Add(delay)}
}
