package domain

import (
	"math/rand/v2"
	"time"
)

// RetryPolicy bounds per-item retries in the pipeline. It is a plain
// value invoked by the stage that needs it, decoupled from any I/O.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries including the first.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the pipeline default: three attempts,
// half-second base, thirty-second cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
	}
}

// Normalise fills zero fields from the default policy.
func (p RetryPolicy) Normalise() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	return p
}

// Delay returns the backoff before retry number attempt (1-based):
// BaseDelay doubled per attempt, capped at MaxDelay, with up to 25%
// random jitter subtracted to spread concurrent retries.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	jitter := time.Duration(rand.Float64() * 0.25 * float64(delay))
	return delay - jitter
}
