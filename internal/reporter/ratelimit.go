package reporter

import (
	"sync"
	"time"
)

// Decision is the verdict of the rate limiter for one attempt.
type Decision int

const (
	Allowed Decision = iota
	RejectedCooldown
	RejectedCircuitOpen
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case RejectedCooldown:
		return "cooldown"
	case RejectedCircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

// RateLimiter combines a fixed cooldown between accepted attempts with a
// counter that opens the circuit after MaxRequests attempts in a window.
// Rejected attempts never touch the counters.
type RateLimiter struct {
	mu          sync.Mutex
	policy      Policy
	lastRequest time.Time
	inWindow    int
}

// NewRateLimiter creates a limiter for the given policy.
func NewRateLimiter(policy Policy) *RateLimiter {
	return &RateLimiter{policy: policy}
}

// Allow decides whether an attempt at now may proceed and records it if so.
func (l *RateLimiter) Allow(now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.lastRequest.IsZero() {
		elapsed := now.Sub(l.lastRequest)
		if elapsed < l.policy.Cooldown {
			return RejectedCooldown
		}
		if elapsed > l.policy.Window {
			l.inWindow = 0
		}
	}

	if l.inWindow >= l.policy.MaxRequests {
		return RejectedCircuitOpen
	}

	l.lastRequest = now
	l.inWindow++
	return Allowed
}

// Snapshot returns the time of the last accepted attempt and the number of
// attempts counted in the current window.
func (l *RateLimiter) Snapshot() (time.Time, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastRequest, l.inWindow
}
