package rest

import (
	"math"
	"time"
)

// Policy controls how many times a request is attempted and how long to wait
// between attempts.
type Policy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay before the second attempt
	MaxDelay    time.Duration // cap for computed delays, 0 means capped only by overflow
	Jitter      float64       // extra random fraction added on top of the delay, 0 disables
}

// DefaultPolicy mirrors the limits the public annotation services tolerate:
// five attempts starting at one second.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Backoff returns the computed delay before retry n (1 for the first retry).
// Jitter is not included.
func (p Policy) Backoff(n int) time.Duration {
	if n < 1 || p.BaseDelay <= 0 {
		return 0
	}

	d := p.BaseDelay
	for i := 1; i < n; i++ {
		// Doubling past this point would wrap negative and skip the wait.
		if d > math.MaxInt64/2 {
			d = math.MaxInt64
			break
		}
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}
