package core

import (
	"time"
)

const (
	// DefaultMaxAttempts is how many consecutive transient failures are
	// tolerated before giving up.
	DefaultMaxAttempts = 5
	// DefaultBackoffBase is the unit the backoff wait grows by.
	DefaultBackoffBase = 10 * time.Second
)

// RetryPolicy decides how long to wait after consecutive transient
// failures and when to stop trying. The wait grows linearly with the
// attempt number; any fully successful page fetch resets the count.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
}

// NewRetryPolicy creates a retry policy, falling back to the defaults
// for non-positive arguments.
func NewRetryPolicy(maxAttempts int, base time.Duration) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if base <= 0 {
		base = DefaultBackoffBase
	}
	return &RetryPolicy{MaxAttempts: maxAttempts, BackoffBase: base}
}

// NextDelay returns the wait before retry number attempt (1-based).
// ok is false once the attempt count exceeds MaxAttempts, meaning the
// caller should give up.
func (p *RetryPolicy) NextDelay(attempt int) (delay time.Duration, ok bool) {
	if attempt > p.MaxAttempts {
		return 0, false
	}
	return time.Duration(attempt) * p.BackoffBase, true
}
