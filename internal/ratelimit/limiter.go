// Package ratelimit enforces the per-user daily like quota and the short
// cooldown between consecutive requests. State is in-memory only; a
// restart resets every user, which is acceptable for an advisory quota.
package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultMaxRequests = 5
	DefaultWindow      = 24 * time.Hour
	DefaultCooldown    = 30 * time.Second
)

// Verdict says whether a request may proceed.
type Verdict int

const (
	Allow Verdict = iota
	DenyQuota
	DenyCooldown
)

// Decision is the result of CheckAndReserve. RetryAfter is set on denials;
// Remaining is set on Allow.
type Decision struct {
	Verdict    Verdict
	RetryAfter time.Duration
	Remaining  int
}

type userState struct {
	used        int
	windowStart time.Time
	lastRequest time.Time
}

// Limiter tracks quota windows and cooldowns per user. All state mutation
// happens under one mutex so two concurrent requests from the same user
// cannot race past the quota check.
type Limiter struct {
	mu          sync.Mutex
	users       map[string]*userState
	maxRequests int
	window      time.Duration
	cooldown    time.Duration
}

func New(maxRequests int, window, cooldown time.Duration) *Limiter {
	return &Limiter{
		users:       make(map[string]*userState),
		maxRequests: maxRequests,
		window:      window,
		cooldown:    cooldown,
	}
}

func NewDefault() *Limiter {
	return New(DefaultMaxRequests, DefaultWindow, DefaultCooldown)
}

// CheckAndReserve decides whether the user's request may proceed and, on
// Allow, consumes one unit of quota immediately. The reservation is not
// refunded if the upstream call later fails; refunding would let an
// abusive client hammer a failing upstream for free.
func (l *Limiter) CheckAndReserve(userID string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.users[userID]
	if !ok {
		st = &userState{windowStart: now}
		l.users[userID] = st
	}

	if now.Sub(st.windowStart) >= l.window {
		st.used = 0
		st.windowStart = now
	}

	if st.used >= l.maxRequests {
		return Decision{
			Verdict:    DenyQuota,
			RetryAfter: st.windowStart.Add(l.window).Sub(now),
		}
	}

	if !st.lastRequest.IsZero() {
		if elapsed := now.Sub(st.lastRequest); elapsed < l.cooldown {
			return Decision{
				Verdict:    DenyCooldown,
				RetryAfter: l.cooldown - elapsed,
			}
		}
	}

	st.used++
	st.lastRequest = now
	return Decision{Verdict: Allow, Remaining: l.maxRequests - st.used}
}

// Stats reports the user's current usage without consuming quota.
func (l *Limiter) Stats(userID string, now time.Time) (used, remaining int, resetIn time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.users[userID]
	if !ok || now.Sub(st.windowStart) >= l.window {
		return 0, l.maxRequests, l.window
	}
	return st.used, l.maxRequests - st.used, st.windowStart.Add(l.window).Sub(now)
}
