// Package ratelimit gates outbound lookups with a token bucket.
//
// The bucket is refilled lazily on every consumption attempt from the time
// elapsed since the previous attempt; there is no background refill timer.
// A denied attempt never blocks: callers decide how long to back off.
package ratelimit

import (
	"errors"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrInvalidCapacity is returned when the bucket capacity is not positive.
	ErrInvalidCapacity = errors.New("bucket capacity must be positive")

	// ErrInvalidRate is returned when the refill rate is not positive.
	ErrInvalidRate = errors.New("refill rate must be positive")
)

// Clock returns the current time. Tests substitute a manual clock to
// simulate the passage of time without sleeping.
type Clock func() time.Time

// Limiter is a token bucket with a fixed capacity and a constant refill rate.
//
// The bucket starts full and never goes negative. All methods are safe for
// concurrent use.
type Limiter struct {
	mu     sync.Mutex // serializes check-then-consume
	bucket *rate.Limiter
	now    Clock
}

// New creates a [Limiter] holding at most capacity tokens and refilling at
// refillPerSec tokens per second. A nil clock means [time.Now].
func New(capacity int, refillPerSec float64, clock Clock) (*Limiter, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if refillPerSec <= 0 || math.IsNaN(refillPerSec) || math.IsInf(refillPerSec, 0) {
		return nil, ErrInvalidRate
	}
	if clock == nil {
		clock = time.Now
	}
	bucket := rate.NewLimiter(rate.Limit(refillPerSec), capacity)
	// pin the refill origin to the injected clock so the first attempt
	// measures elapsed time against it rather than the zero time
	bucket.SetLimitAt(clock(), rate.Limit(refillPerSec))
	return &Limiter{bucket: bucket, now: clock}, nil
}

// TryConsume takes cost tokens if that many are available and reports
// whether it did. A denied attempt leaves the token count untouched apart
// from the refill it performed.
func (l *Limiter) TryConsume(cost int) bool {
	if cost <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	// AllowN rounds a sub-nanosecond wait down to zero and would grant
	// against a bucket holding slightly less than cost.
	now := l.now()
	if l.bucket.TokensAt(now) < float64(cost) {
		return false
	}
	return l.bucket.AllowN(now, cost)
}

// Tokens returns the number of tokens available right now.
func (l *Limiter) Tokens() float64 {
	return l.bucket.TokensAt(l.now())
}

// Capacity returns the maximum number of tokens the bucket holds.
func (l *Limiter) Capacity() int {
	return l.bucket.Burst()
}

// RefillRate returns the refill rate in tokens per second.
func (l *Limiter) RefillRate() float64 {
	return float64(l.bucket.Limit())
}
