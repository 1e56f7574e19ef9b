// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the Idempotency-Key handling for the delivery
// accept endpoint. The middleware validates the header, stashes the key
// for the handler, and asks a pluggable lookup whether this (sender, key)
// pair already produced a job. A hit flags the request as a replay, which
// the handler serves from the stored job and the rate limiter waves
// through, so retrying a delivery is always free and never double-sends.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client's retry key on unsafe methods.
// A client retrying one logical delivery pins one key across attempts.
const HeaderIdempotencyKey = "Idempotency-Key"

// defaultKeyMaxLen caps accepted key lengths when options leave it unset.
const defaultKeyMaxLen = 200

// defaultKeyPattern accepts RFC 7230 token characters plus the separators
// UUIDs and ULIDs use.
var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// Context keys for idempotency state. Unexported; read them through the
// accessor helpers.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool, true when a stored job exists
	ctxKeyRateBypass = "rate.bypass" // bool, true to skip rate limiting
)

// GetIdempotencyKey returns the validated key IdempotencyValidator stored
// for this request. Handlers read it here instead of re-reading the
// header, so they only ever see keys that passed validation.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether this request repeats a delivery that already
// has a job. The accept handler answers a replay with the stored job
// instead of creating another one.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions adjusts header validation. MaxLen <= 0 falls back to
// 200; a nil Pattern falls back to the token pattern above. Key TTL is
// the lookup's business, not the middleware's.
type IdempotencyOptions struct {
	MaxLen  int
	Pattern *regexp.Regexp
}

// IdempotencyLookup answers whether (senderID, key) already maps to a
// stored, unexpired job at the given time. An error means the lookup
// itself failed and is treated as "no replay" so a storage hiccup cannot
// block fresh deliveries.
type IdempotencyLookup func(ctx context.Context, senderID, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator returns the middleware guarding the accept
// endpoint.
//
// A request without the header passes through untouched. A malformed key
// is rejected with 400 before any handler runs. A well-formed key is
// stored in the context; when the lookup also reports a stored job, the
// replay and rate-bypass flags are set. Serving the replay body stays
// with the handler, which fetches the stored job by key.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultKeyMaxLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_idempotency_key",
				"message": "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			exists, _ := lookup(c.Request.Context(), senderFromCtx(c), key, time.Now().UTC())
			if exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}

// senderFromCtx resolves the sender the same way the handlers do: the
// authenticated user id from the context, then the X-User-ID header, then
// the guest session token. "demo-user" keeps local development working
// without auth wired up.
func senderFromCtx(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
		return h
	}
	if h := strings.TrimSpace(c.GetHeader("X-Session-Token")); h != "" {
		return h
	}
	return "demo-user"
}
