package ratelimit

import (
	"context"
	"log"
	"sync"
	"time"
)

// RateLimiter implements a token bucket rate limiter.
// It allows bursts up to maxTokens, then refills at refillRate tokens/second.
type RateLimiter struct {
	tokens       float64   // Current number of tokens available
	maxTokens    float64   // Maximum bucket capacity
	refillRate   float64   // Tokens added per second
	lastRefill   time.Time // Last time tokens were refilled
	lastWarnTime time.Time // Last time we warned user about rate limiting
	mu           sync.Mutex
}

// NewRateLimiter creates a new rate limiter.
//
// Parameters:
//   - tokensPerSecond: Rate at which tokens are added
//   - burstSize: Maximum tokens that can accumulate (allows brief bursts)
func NewRateLimiter(tokensPerSecond float64, burstSize float64) *RateLimiter {
	return &RateLimiter{
		tokens:     burstSize, // Start with full bucket
		maxTokens:  burstSize,
		refillRate: tokensPerSecond,
		lastRefill: time.Now(),
	}
}

// NewQueryRateLimiter creates the limiter shared by all metadata endpoints
// (listing, metadata fetch, activity, people, search). See constants.go for
// the quota math.
func NewQueryRateLimiter() *RateLimiter {
	return NewRateLimiter(QueryRatePerSec, QueryBurstCapacity)
}

// NewMediaStartRateLimiter creates the limiter consulted before opening a
// new content or export stream.
func NewMediaStartRateLimiter() *RateLimiter {
	return NewRateLimiter(MediaStartRatePerSec, MediaStartBurstCapacity)
}

// Wait blocks until a token is available or context is cancelled.
// Returns an error if the context is cancelled before a token becomes available.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	startTime := time.Now()

	// Try immediate acquire first
	if rl.tryAcquire() {
		return nil
	}

	// Need to wait - warn user if wait might be long
	waitTime := rl.timeUntilNextToken()
	if waitTime > 2*time.Second {
		rl.mu.Lock()
		// Only warn every 10 seconds to avoid spam
		if time.Since(rl.lastWarnTime) > 10*time.Second {
			log.Printf("⏳ Rate limited: waiting ~%.1fs for API capacity...", waitTime.Seconds())
			rl.lastWarnTime = time.Now()
		}
		rl.mu.Unlock()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if rl.tryAcquire() {
			actualWait := time.Since(startTime)
			if actualWait > 5*time.Second {
				log.Printf("⏳ Rate limit wait completed after %.1fs", actualWait.Seconds())
			}
			return nil
		}

		waitDuration := rl.timeUntilNextToken()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitDuration):
			// Loop again to try acquiring
		}
	}
}

// tryAcquire attempts to acquire one token without blocking.
// Returns true if a token was acquired, false otherwise.
func (rl *RateLimiter) tryAcquire() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Refill tokens based on elapsed time
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens += elapsed * rl.refillRate

	// Cap at max tokens (don't accumulate infinitely)
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now

	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return true
	}

	return false
}

// timeUntilNextToken calculates how long to wait until at least one token is available.
func (rl *RateLimiter) timeUntilNextToken() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	tokensNeeded := 1.0 - rl.tokens
	if tokensNeeded <= 0 {
		return 0
	}

	secondsNeeded := tokensNeeded / rl.refillRate
	return time.Duration(secondsNeeded * float64(time.Second))
}

// GetCurrentTokens returns the current number of tokens (for testing/debugging).
func (rl *RateLimiter) GetCurrentTokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	tokens := rl.tokens + (elapsed * rl.refillRate)
	if tokens > rl.maxTokens {
		tokens = rl.maxTokens
	}
	return tokens
}
