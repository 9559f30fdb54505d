// Package ratelimit provides per-key token bucket rate limiting for the HTTP
// API and MCP tools.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is returned by CheckLimit when a bucket is empty.
var ErrRateLimited = errors.New("rate limit exceeded")

// idleBucketTTL is how long an untouched bucket is kept before pruning.
const idleBucketTTL = 10 * time.Minute

// Limiter hands out one token bucket per key: an HTTP client address or
// an MCP tool name. Safe for concurrent use.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perSecond float64
	burst     float64
	now       func() time.Time
	lastPrune time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// take refills b for the time since it was last seen and spends one token
// if a whole one is available.
func (b *bucket) take(now time.Time, perSecond, burst float64) bool {
	if dt := now.Sub(b.seen).Seconds(); dt > 0 {
		b.tokens = min(burst, b.tokens+perSecond*dt)
		b.seen = now
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// NewLimiter returns a limiter refilling perSecond tokens per key. New keys
// start with a full bucket of burst tokens.
func NewLimiter(perSecond float64, burst int) *Limiter {
	return &Limiter{
		buckets:   make(map[string]*bucket),
		perSecond: perSecond,
		burst:     float64(burst),
		now:       time.Now,
	}
}

// PerMinute creates a limiter allowing perMinute requests per key per minute.
func PerMinute(perMinute float64, burst int) *Limiter {
	return NewLimiter(perMinute/60.0, burst)
}

// Allow reports whether a request for key may proceed, spending a token if so.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, seen: now}
		l.buckets[key] = b
	}
	return b.take(now, l.perSecond, l.burst)
}

// Len reports how many keys currently hold a bucket.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// pruneLocked drops idle buckets that have refilled to burst, so per-client
// keys do not grow without bound.
func (l *Limiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastPrune) < idleBucketTTL {
		return
	}
	l.lastPrune = now
	for key, b := range l.buckets {
		idle := now.Sub(b.seen)
		if idle >= idleBucketTTL && b.tokens+l.perSecond*idle.Seconds() >= l.burst {
			delete(l.buckets, key)
		}
	}
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates the default set of per-tool rate limiters.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"aisoc_simulate": PerMinute(30, 5), // CPU bound, O(years * N log N)
		"aisoc_runs":     PerMinute(60, 10),
		"aisoc_run":      PerMinute(60, 10),
	}
}

// CheckLimit spends a token from the limiter registered for toolName and
// returns an error wrapping ErrRateLimited when none is left. Unregistered
// tools are not limited.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	if l, ok := limiters[toolName]; ok && !l.Allow(toolName) {
		return fmt.Errorf("%w for %s, please try again shortly", ErrRateLimited, toolName)
	}
	return nil
}
