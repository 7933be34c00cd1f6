// ABOUTME: Retry utilities for API calls with exponential backoff
// ABOUTME: RetryPolicy advances an explicit RetryState instead of looping on errors
package util

import (
	"math/rand/v2"
	"time"
)

// CalculateBackoff returns exponential backoff with jitter
// Base delay is doubled each attempt, with random jitter up to 25%
func CalculateBackoff(baseDelay time.Duration, attempt int) time.Duration {
	if attempt <= 0 || baseDelay <= 0 {
		return 0
	}
	// Cap attempt to avoid overflow in bit shift (max 30 for safety)
	if attempt > 30 {
		attempt = 30
	}
	// Exponential: 2^attempt * base
	backoff := baseDelay * time.Duration(1<<uint(attempt))
	// Cap at 30 seconds
	if backoff > 30*time.Second || backoff <= 0 {
		backoff = 30 * time.Second
	}
	// Add jitter: -25% to +25% using auto-seeded math/rand/v2
	jitter := time.Duration(rand.Int64N(int64(backoff)/2)) - backoff/4
	return backoff + jitter
}

// RetryPolicy bounds how often a failed call is repeated
type RetryPolicy struct {
	MaxAttempts int           // total attempts including the first, >= 1
	BaseDelay   time.Duration // fed to CalculateBackoff
}

// RetryState is the position of one call in its retry sequence
type RetryState struct {
	Attempt   int           // attempts already made
	NextDelay time.Duration // wait before the next attempt
}

// Next records a failed attempt and reports whether another one is allowed.
// Non-retryable failures end the sequence immediately.
func (p RetryPolicy) Next(state RetryState, retryable bool) (RetryState, bool) {
	state.Attempt++
	state.NextDelay = 0

	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if !retryable || state.Attempt >= maxAttempts {
		return state, false
	}

	state.NextDelay = CalculateBackoff(p.BaseDelay, state.Attempt)
	return state, true
}
