// Package admission gates outbound submissions. This file implements the
// single-process stores: dedup claims land in the submission_dedup table
// (the unique index does the arbitration) and office buckets are
// x/time/rate limiters held in a mutex-guarded map with opportunistic
// garbage collection, the same shape as the HTTP edge limiter. Suitable
// for one replica; multi-replica deployments should use the Redis stores
// so all replicas share one budget.
package admission

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
	"github.com/tbourn/go-advocacy-backend/internal/repo"
)

// LocalDedup claims tuples through the relational unique index.
type LocalDedup struct {
	db *gorm.DB
}

// NewLocalDedup builds a dedup store on the given database handle.
func NewLocalDedup(db *gorm.DB) *LocalDedup {
	return &LocalDedup{db: db}
}

// Claim inserts the tuple row. A unique violation means someone (possibly a
// concurrent goroutine of the same job) already claimed it today.
func (s *LocalDedup) Claim(ctx context.Context, templateID, officeID, userID, day string) (bool, error) {
	err := repo.CreateSubmissionDedup(ctx, s.db, templateID, officeID, userID, day)
	if errors.Is(err, repo.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Release deletes the tuple row so the sender's daily slot is usable again.
func (s *LocalDedup) Release(ctx context.Context, templateID, officeID, userID, day string) error {
	return repo.DeleteSubmissionDedup(ctx, s.db, templateID, officeID, userID, day)
}

// officeBucket holds one office's limiter and the last time it was used,
// so idle buckets can be evicted.
type officeBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalBuckets keeps one token bucket per office in process memory.
//
// Buckets are created on demand and stored in a map guarded by a mutex.
// Idle buckets are evicted after a TTL via opportunistic cleanup during
// lookups to keep memory bounded. Safe for concurrent use.
type LocalBuckets struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*officeBucket

	ttl      time.Duration
	cleanupN uint64
}

// NewLocalBuckets constructs a bucket store with the given refill rate
// (tokens per second) and burst capacity. Burst values <= 0 are coerced
// to 1 so a bucket can always hold at least one token.
func NewLocalBuckets(rps float64, burst int) *LocalBuckets {
	if burst <= 0 {
		burst = 1
	}
	return &LocalBuckets{
		rps:     rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*officeBucket),
		ttl:     30 * time.Minute, // evict idle entries after TTL
	}
}

// getBucket returns (and touches) the limiter for key, creating it if
// absent. Cleanup runs before the lookup so an idle bucket can be evicted
// even when it is the one being fetched.
func (s *LocalBuckets) getBucket(key string) *rate.Limiter {
	now := time.Now()

	s.mu.Lock()
	s.cleanupN++
	if s.cleanupN >= 5000 {
		for k, b := range s.buckets {
			if now.Sub(b.lastSeen) >= s.ttl {
				delete(s.buckets, k)
			}
		}
		s.cleanupN = 0
	}

	if b, ok := s.buckets[key]; ok {
		b.lastSeen = now
		lim := b.limiter
		s.mu.Unlock()
		return lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.buckets[key] = &officeBucket{limiter: lim, lastSeen: now}
	s.mu.Unlock()
	return lim
}

// Take consumes one token from the office bucket. When the bucket is
// empty the reservation is cancelled (returning the token debt) and the
// reservation's delay is reported as the retry hint.
func (s *LocalBuckets) Take(ctx context.Context, chamber domain.Chamber, officeID string) (bool, time.Duration, error) {
	lim := s.getBucket(string(chamber) + ":" + officeID)

	r := lim.ReserveN(time.Now(), 1)
	if !r.OK() {
		// Requested more than the burst allows; cannot ever succeed.
		return false, 0, nil
	}
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return false, delay, nil
	}
	return true, 0, nil
}

// NewLocalController wires the two local stores into a Controller.
func NewLocalController(db *gorm.DB, rps float64, burst int) *Controller {
	return NewController(NewLocalDedup(db), NewLocalBuckets(rps, burst))
}
