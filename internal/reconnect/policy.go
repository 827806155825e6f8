// Package reconnect holds the retry policy for dropped console sessions.
//
// Back-off is linear: attempt n waits BaseDelay*n. Growth is bounded by the
// attempt limit rather than by a cap on the delay.
package reconnect

import "time"

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 3 * time.Second
)

// ShouldRetry reports whether another attempt fits in the budget
func ShouldRetry(attempt, maxAttempts int) bool {
	return attempt < maxAttempts
}

// Delay returns the wait before the given attempt
func Delay(attempt int, baseDelay time.Duration) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return baseDelay * time.Duration(attempt)
}

// Policy bundles the retry limits for one manager
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy returns the stock 5 attempts / 3s policy
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// Normalize fills zero fields with defaults
func (p Policy) Normalize() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	return p
}

// ShouldRetry applies the package function with this policy's limit
func (p Policy) ShouldRetry(attempt int) bool {
	return ShouldRetry(attempt, p.MaxAttempts)
}

// Delay applies the package function with this policy's base delay
func (p Policy) Delay(attempt int) time.Duration {
	return Delay(attempt, p.BaseDelay)
}

// Budget counts consecutive failed connection attempts against a policy.
// The zero value is not usable; create one with NewBudget.
type Budget struct {
	policy  Policy
	attempt int
}

// NewBudget creates an empty budget
func NewBudget(p Policy) *Budget {
	return &Budget{policy: p.Normalize()}
}

// Attempt returns the number of failures recorded since the last Reset
func (b *Budget) Attempt() int { return b.attempt }

// Policy returns the policy the budget was created with
func (b *Budget) Policy() Policy { return b.policy }

// Fail records one more failure. It returns the retry delay and true while
// the budget allows another attempt, or zero and false once it is spent.
func (b *Budget) Fail() (time.Duration, bool) {
	b.attempt++
	if !b.policy.ShouldRetry(b.attempt) {
		return 0, false
	}
	return b.policy.Delay(b.attempt), true
}

// Reset clears the failure count after a successful open
func (b *Budget) Reset() { b.attempt = 0 }
