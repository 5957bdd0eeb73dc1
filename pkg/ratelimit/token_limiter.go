package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenLimiter enforces a per-minute token budget for LLM requests. The
// window resets a minute after the first consumption in that window.
type TokenLimiter struct {
	mu          sync.Mutex
	maxPerMin   int
	used        int
	windowStart time.Time
}

// NewTokenLimiter creates a limiter allowing maxPerMin tokens per minute.
func NewTokenLimiter(maxPerMin int) *TokenLimiter {
	return &TokenLimiter{maxPerMin: maxPerMin}
}

// Wait blocks until the given number of tokens can be consumed or the
// context is cancelled. Requests larger than the whole budget consume a
// full window rather than blocking forever.
func (l *TokenLimiter) Wait(ctx context.Context, tokens int) error {
	for {
		l.mu.Lock()
		now := time.Now()
		if l.windowStart.IsZero() || now.Sub(l.windowStart) >= time.Minute {
			l.windowStart = now
			l.used = 0
		}
		if l.used+tokens <= l.maxPerMin || l.used == 0 {
			l.used += tokens
			l.mu.Unlock()
			return nil
		}
		wait := time.Minute - now.Sub(l.windowStart)
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// GetRemaining returns the tokens left in the current window.
func (l *TokenLimiter) GetRemaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.windowStart.IsZero() || time.Since(l.windowStart) >= time.Minute {
		return l.maxPerMin
	}
	remaining := l.maxPerMin - l.used
	if remaining < 0 {
		return 0
	}
	return remaining
}
