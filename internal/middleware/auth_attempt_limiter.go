package middleware

import (
	"sync"
	"time"
)

// AuthAttemptLimiter throttles repeated authentication failures per client.
// After maxFailures failures inside a window, the client is blocked for
// blockDuration. This guards the auth path only; usage quota is a separate
// mechanism.
type AuthAttemptLimiter struct {
	mu            sync.Mutex
	buckets       map[string]*attemptBucket
	maxFailures   int
	window        time.Duration
	blockDuration time.Duration
	lastSweep     time.Time
}

type attemptBucket struct {
	failures     int
	windowStart  time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

const (
	sweepEvery     = 5 * time.Minute
	staleBucketTTL = 24 * time.Hour
)

// NewAuthAttemptLimiter creates a limiter; non-positive arguments fall back
// to 5 failures per 5 minutes with a 15 minute block.
func NewAuthAttemptLimiter(maxFailures int, window, blockDuration time.Duration) *AuthAttemptLimiter {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	if blockDuration <= 0 {
		blockDuration = 15 * time.Minute
	}
	return &AuthAttemptLimiter{
		buckets:       make(map[string]*attemptBucket),
		maxFailures:   maxFailures,
		window:        window,
		blockDuration: blockDuration,
		lastSweep:     time.Now(),
	}
}

// Allow reports whether the client may attempt authentication right now.
func (l *AuthAttemptLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	defer l.sweepLocked(now)

	b, ok := l.buckets[key]
	if !ok {
		return true
	}
	b.lastSeen = now
	if now.Before(b.blockedUntil) {
		return false
	}
	if now.Sub(b.windowStart) > l.window {
		b.failures = 0
		b.windowStart = now
	}
	return true
}

// RegisterFailure counts one failed authentication for the client.
func (l *AuthAttemptLimiter) RegisterFailure(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	defer l.sweepLocked(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &attemptBucket{windowStart: now}
		l.buckets[key] = b
	}
	b.lastSeen = now
	if now.Sub(b.windowStart) > l.window {
		b.failures = 0
		b.windowStart = now
	}
	b.failures++
	if b.failures >= l.maxFailures {
		b.blockedUntil = now.Add(l.blockDuration)
		b.failures = 0
		b.windowStart = now
	}
}

// RegisterSuccess clears the client's failure history.
func (l *AuthAttemptLimiter) RegisterSuccess(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.buckets, key)
	l.sweepLocked(time.Now())
}

func (l *AuthAttemptLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < sweepEvery {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > staleBucketTTL && now.After(b.blockedUntil) {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}
