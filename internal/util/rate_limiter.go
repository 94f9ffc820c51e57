// Package util holds small shared helpers with no domain dependencies.
package util

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

var (
	// ErrRateLimited is returned when the rate limit is exceeded
	ErrRateLimited = errors.New("rate limited")
	// DefaultRate is the default minimum time between requests
	DefaultRate = 100 * time.Millisecond
	// DefaultBurst is the default burst size
	DefaultBurst = 10
)

// RateLimiter is a token bucket limiter used to keep catalog requests
// under the upstream API quota. The rate grows when the upstream reports
// throttling and shrinks back once requests succeed again.
type RateLimiter struct {
	mu           sync.Mutex
	last         time.Time
	rate         time.Duration
	minRate      time.Duration
	maxRate      time.Duration
	tokens       int
	maxTokens    int
	lastThrottle time.Time
}

// NewRateLimiter creates a limiter allowing one request per rate interval
// with the given burst size
func NewRateLimiter(rate time.Duration, burst int) *RateLimiter {
	if rate <= 0 {
		rate = DefaultRate
	}
	if burst <= 0 {
		burst = DefaultBurst
	}

	return &RateLimiter{
		last:         time.Now(),
		rate:         rate,
		minRate:      rate,
		maxRate:      5 * time.Second,
		tokens:       burst,
		maxTokens:    burst,
		lastThrottle: time.Now(),
	}
}

// Wait blocks until a token is available or the context is cancelled
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()

	now := time.Now()

	delta := now.Sub(r.last)
	newTokens := int(float64(delta) / float64(r.rate))
	if newTokens > 0 {
		r.tokens += newTokens
		if r.tokens > r.maxTokens {
			r.tokens = r.maxTokens
		}
		r.last = now
	}

	if r.tokens > 0 {
		r.tokens--
		r.mu.Unlock()
		return nil
	}

	// Jitter up to 20% of the rate to avoid request alignment
	waitTime := r.rate + time.Duration(rand.Float64()*0.2*float64(r.rate))
	next := r.last.Add(waitTime)

	r.mu.Unlock()

	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		r.mu.Lock()
		r.last = next
		r.tokens = 0
		r.mu.Unlock()
		return nil
	}
}

// OnThrottle slows the limiter down after the upstream reported a quota
// hit. It returns how long the caller should wait before retrying: the
// server's Retry-After when longer, otherwise the new rate.
func (r *RateLimiter) OnThrottle(retryAfter time.Duration) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	// Repeated throttling within a short window backs off harder
	if now.Sub(r.lastThrottle) < 5*time.Minute {
		r.rate = time.Duration(1.5 * float64(r.rate))
	} else {
		r.rate = time.Duration(1.2 * float64(r.rate))
	}
	if r.rate > r.maxRate {
		r.rate = r.maxRate
	}
	r.lastThrottle = now

	if retryAfter > 0 && retryAfter > r.rate {
		return retryAfter
	}
	return r.rate
}

// ResetRate restores the minimum rate after a period of healthy responses
func (r *RateLimiter) ResetRate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rate = r.minRate
	r.lastThrottle = time.Now()
}

// GetRate returns the current rate
func (r *RateLimiter) GetRate() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rate
}
