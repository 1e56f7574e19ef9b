// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file is the edge rate limiter: one token bucket per sender, keyed
// the way the rest of the pipeline identifies senders (user id, guest
// session token, then client IP). It protects the accept and polling
// endpoints from a single noisy client; the per-office budget protecting
// congressional intakes is a separate gate in the admission package.
//
// The limiter is process-local. Replays detected by IdempotencyValidator
// bypass it entirely, so retrying an already-stored delivery never burns
// tokens.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Bucket sweep cadence and idle eviction window.
const (
	sweepEvery = 5000
	bucketTTL  = 10 * time.Minute
)

// keyFunc selects the identity used to key a rate-limit bucket. The
// returned string must be stable for the duration of a request.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by the sender identity model used across the
// API: the authenticated user id when present (context first, then the
// X-User-ID header), else the guest session token, else the client IP.
// Prefixes keep the three namespaces from colliding.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get("userID"); ok {
			if s, ok := v.(string); ok && s != "" {
				return "user:" + s
			}
		}
		if h := c.GetHeader("X-User-ID"); h != "" {
			return "user:" + h
		}
		if h := c.GetHeader("X-Session-Token"); h != "" {
			return "guest:" + h
		}
		return "ip:" + c.ClientIP()
	}
}

// senderBucket pairs one sender's limiter with its last use, so idle
// buckets can be swept.
type senderBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per sender key. Buckets are
// created on demand in a mutex-guarded map; a sweep pass every sweepEvery
// lookups evicts entries idle longer than the TTL, keeping memory bounded
// under churning guest traffic. Safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn keyFunc

	mu      sync.Mutex
	buckets map[string]*senderBucket

	ttl    time.Duration
	sweepN uint64
}

// NewRateLimiter constructs a RateLimiter refilling rps tokens per second
// with the given burst capacity, keyed by keyFn. Burst values <= 0 are
// coerced to 1 so a bucket can always hold at least one token. Install it
// with Handler().
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		buckets: make(map[string]*senderBucket),
		ttl:     bucketTTL,
	}
}

// bucket returns (and touches) the limiter for key, creating it if
// absent. The sweep runs before the lookup so an idle bucket is evicted
// even when it is the one being fetched.
func (rl *RateLimiter) bucket(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	rl.sweepN++
	if rl.sweepN >= sweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.sweepN = 0
	}

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		lim := b.limiter
		rl.mu.Unlock()
		return lim
	}

	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets[key] = &senderBucket{limiter: lim, lastSeen: now}
	rl.mu.Unlock()
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked this request
// as a replay of a previously completed delivery. Handler skips limiting
// for replays.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass) // set by IdempotencyValidator
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns the enforcement middleware. Replays pass through
// untouched; every other request spends one token or is answered with
// 429, a compact JSON body, and a Retry-After hint derived from the
// bucket's refill rate.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		lim := rl.bucket(rl.keyFn(c))
		r := lim.ReserveN(time.Now(), 1)
		if !r.OK() {
			rl.deny(c, time.Second)
			return
		}
		if delay := r.Delay(); delay > 0 {
			r.Cancel()
			rl.deny(c, delay)
			return
		}
		c.Next()
	}
}

// deny aborts with 429. Retry-After is rounded up to whole seconds and
// never below one.
func (rl *RateLimiter) deny(c *gin.Context, wait time.Duration) {
	secs := int64(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.FormatInt(secs, 10))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "rate_limited",
		"message":    "rate limit exceeded",
	})
}
