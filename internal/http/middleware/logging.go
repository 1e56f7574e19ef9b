// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides the request ID injector and a panic-safe recovery
// handler; the access logger itself lives in redact_logger.go:
//
//   - RequestID() gives every request a correlation id, propagated through
//     the X-Request-ID header and the Gin context. Accept responses, error
//     bodies, and every log line quote it, so one id follows a delivery
//     from submission to its job's terminal state.
//   - Recovery() turns a handler panic into a JSON 500 that still carries
//     the correlation id. Worker goroutines inside the dispatcher recover
//     separately; this one only covers the HTTP path.
//   - LoggerFrom() hands back the request-scoped logger RedactingLogger
//     parked, or a bare global one when none was attached, so callers skip
//     the nil check.
//
// Install RequestID first, then the access logger, then Recovery, so that
// a panic is reported with the id already assigned.
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key holding the correlation id.
	requestIDKey = "requestID"
	// requestIDHeader carries the correlation id on the wire.
	requestIDHeader = "X-Request-ID"
	// queryLogCap bounds how many bytes of a query string reach the log.
	queryLogCap = 2048
)

// RequestID reuses the caller's X-Request-ID when present (clients retrying
// a delivery tend to pin one) and mints a UUIDv4 otherwise. The id is
// stored in the context and echoed on the response header before any
// downstream middleware runs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Recovery logs the panic value and stack under the correlation id, then
// answers with the standard JSON 500 body when nothing has been written
// yet. A partially written response is only aborted; its bytes cannot be
// unsent.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid, _ := c.Get(requestIDKey)
				log.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", ctxString(rid)).
					Msg("panic recovered")

				if !c.Writer.Written() {
					c.Header("Content-Type", "application/json")
					c.Header(requestIDHeader, ctxString(rid))
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"request_id": ctxString(rid),
						"code":       "internal_error",
						"message":    "internal server error",
					})
					return
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the logger the access logger attached to this
// request, or a field-free logger off the global when the access logger is
// not in the chain.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get("logger"); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// ctxString reads a Gin context value as a string, empty for any other
// type.
func ctxString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// clip caps s at max bytes, marking the cut with an ellipsis. max <= 0
// means no cap. Byte slicing can split a rune, which is tolerable in a
// log field.
func clip(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
