// Package admission gates outbound submissions. This file implements the
// Redis-backed stores used when the service runs with more than one
// replica. Dedup claims are SET NX keys that expire after their UTC day
// has passed; office buckets live in a small hash updated by a
// pre-compiled Lua script, so the refill, capacity check, and consume
// happen in one atomic server-side step. The caller's clock is passed
// into the script, which keeps replicas consistent with each other to
// within their clock skew and makes the script deterministic under test.
package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
)

// Lua script for an atomic token-bucket take. State is a hash of the
// fractional token count and the last refill timestamp (ms). Returns
// {allowed, waitMillis}; waitMillis is 0 when allowed or when the bucket
// can never refill (rate <= 0).
const bucketTakeLuaScript = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
    tokens = capacity
    ts = now
end

local elapsed = now - ts
if elapsed < 0 then
    elapsed = 0
end
tokens = math.min(capacity, tokens + elapsed * rate / 1000.0)

local allowed = 0
local wait = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
elseif rate > 0 then
    wait = math.ceil((1 - tokens) * 1000.0 / rate)
end

redis.call("HSET", key, "tokens", tokens, "ts", now)
redis.call("PEXPIRE", key, ttl)
return {allowed, wait}
`

// RedisDedup claims tuples with SET NX so exactly one replica wins.
type RedisDedup struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisDedup builds a dedup store on the given client.
func NewRedisDedup(client *redis.Client) *RedisDedup {
	return &RedisDedup{client: client, now: time.Now}
}

// Claim sets the tuple key if absent. The key expires once its day is
// over, so Redis handles the daily window reset.
func (s *RedisDedup) Claim(ctx context.Context, templateID, officeID, userID, day string) (bool, error) {
	key := fmt.Sprintf("dedup:%s:%s:%s:%s", templateID, officeID, userID, day)
	ok, err := s.client.SetNX(ctx, key, "1", dedupTTL(day, s.now().UTC())).Result()
	if err != nil {
		return false, fmt.Errorf("dedup claim: %w", err)
	}
	return ok, nil
}

// Release deletes the tuple key so the sender's daily slot is usable again.
func (s *RedisDedup) Release(ctx context.Context, templateID, officeID, userID, day string) error {
	key := fmt.Sprintf("dedup:%s:%s:%s:%s", templateID, officeID, userID, day)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("dedup release: %w", err)
	}
	return nil
}

// dedupTTL returns how long a claim for the given UTC day must live:
// until the end of that day plus a one-hour grace, never less than a
// minute. Unparseable days fall back to a full day.
func dedupTTL(day string, now time.Time) time.Duration {
	d, err := time.Parse(domain.DedupDayFormat, day)
	if err != nil {
		return 24 * time.Hour
	}
	ttl := d.Add(25 * time.Hour).Sub(now)
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return ttl
}

// RedisBuckets keeps one token bucket per office in Redis.
type RedisBuckets struct {
	client *redis.Client
	script *redis.Script

	rps   float64
	burst int
	ttlMS int64
	now   func() time.Time
}

// NewRedisBuckets constructs a bucket store with the given refill rate
// (tokens per second) and burst capacity. Burst values <= 0 are coerced
// to 1, matching the local store.
func NewRedisBuckets(client *redis.Client, rps float64, burst int) *RedisBuckets {
	if burst <= 0 {
		burst = 1
	}
	// Keep state long enough for a full refill, then let Redis drop it.
	ttlMS := int64(24 * time.Hour / time.Millisecond)
	if rps > 0 {
		ttlMS = int64(float64(burst)/rps*1000) + 60_000
	}
	return &RedisBuckets{
		client: client,
		script: redis.NewScript(bucketTakeLuaScript),
		rps:    rps,
		burst:  burst,
		ttlMS:  ttlMS,
		now:    time.Now,
	}
}

// Take runs the atomic check-and-consume script against the office's
// bucket key.
func (s *RedisBuckets) Take(ctx context.Context, chamber domain.Chamber, officeID string) (bool, time.Duration, error) {
	key := fmt.Sprintf("bucket:%s:%s", chamber, officeID)

	res, err := s.script.Run(ctx, s.client,
		[]string{key},
		s.rps,
		s.burst,
		s.now().UnixMilli(),
		s.ttlMS,
	).Slice()
	if err != nil {
		return false, 0, fmt.Errorf("bucket take: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("bucket take: unexpected script reply %v", res)
	}

	allowed, _ := res[0].(int64)
	waitMS, _ := res[1].(int64)
	return allowed == 1, time.Duration(waitMS) * time.Millisecond, nil
}

// NewRedisController wires the two Redis stores into a Controller.
func NewRedisController(client *redis.Client, rps float64, burst int) *Controller {
	return NewController(NewRedisDedup(client), NewRedisBuckets(client, rps, burst))
}
