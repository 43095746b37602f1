package domain

import "time"

const (
	DefaultMaxRetries = 3
	DefaultCooldown   = 6 * time.Hour
)

// RetryPolicy is shared by the auto-debit and payout retry sweeps.
type RetryPolicy struct {
	MaxRetries int
	Cooldown   time.Duration
}

// DefaultRetryPolicy returns three attempts six hours apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: DefaultMaxRetries, Cooldown: DefaultCooldown}
}

// Exhausted reports whether retryCount failures trip the circuit breaker.
func (p RetryPolicy) Exhausted(retryCount int) bool {
	return retryCount >= p.MaxRetries
}

// CooledDown reports whether enough time has passed since lastAttempt to try again.
func (p RetryPolicy) CooledDown(lastAttempt *time.Time, now time.Time) bool {
	if lastAttempt == nil {
		return true
	}
	return !now.Before(lastAttempt.Add(p.Cooldown))
}
