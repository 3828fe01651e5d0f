// Package pacing provides the randomized inter-request delay used between
// search API calls and between page fetches. The pipeline is strictly
// sequential, which is what makes these sleeps an effective rate limiter.
package pacing

import (
	"math/rand"
	"time"
)

// Pacer sleeps for a uniformly random duration in [Min, Max].
type Pacer struct {
	Min time.Duration
	Max time.Duration
}

// Wait blocks for one randomized interval. A zero pacer returns immediately,
// which is what tests rely on.
func (p Pacer) Wait() {
	d := p.Min
	if p.Max > p.Min {
		d += time.Duration(rand.Int63n(int64(p.Max - p.Min + 1)))
	}
	if d > 0 {
		time.Sleep(d)
	}
}
