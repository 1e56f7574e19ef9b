// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger for the delivery
// API. Delivery submissions carry constituent contact details, so the
// logger never records request or response bodies, fully masks credential
// headers, and scrubs email addresses, phone numbers, and UUID-shaped
// identifiers out of query strings and remaining header values before the
// line is emitted through zerolog.
//
// Usage:
//
//	r := gin.New()
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-Api-Key", "X-Session-Token"},
//	}))
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// piiPattern pairs a compiled matcher with its replacement token.
type piiPattern struct {
	re   *regexp.Regexp
	repl string
}

// piiPatterns are applied in order. UUID-shaped ids go first so the loose
// phone matcher never eats the digit runs inside one; phone goes last for
// the same reason relative to everything else.
var piiPatterns = []piiPattern{
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`), "[REDACTED:id]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`), "[REDACTED:email]"},
	// Digits with optional country/area segments, e.g. "+1 202-555-0173",
	// "(202) 555-0173", "202 555 0173".
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`), "[REDACTED:phone]"},
}

// scrubText substitutes every PII pattern occurrence in s with its token.
func scrubText(s string) string {
	if s == "" {
		return s
	}
	for _, p := range piiPatterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}

// RedactOptions extends the built-in header mask list.
//
// MaskHeaders names headers whose values are replaced wholesale with
// "[REDACTED]". Matching is case-insensitive and merged with the always
// masked set (Authorization, Cookie, Set-Cookie).
type RedactOptions struct {
	MaskHeaders []string
}

// RedactingLogger returns middleware that writes one structured line per
// request after the handler chain finishes.
//
// Each line carries the request id, method, route path, scrubbed query
// string, status, response size, latency, and the scrubbed header map.
// Lines log at info, rising to warn for 4xx and error for 5xx. The
// request id is read from the response header (where RequestID put it)
// and falls back to the request header for callers that supplied their
// own. Before the handlers run, a logger preloaded with the request id,
// method, and route path is parked in the context for LoggerFrom.
//
// Scrubbing lowers, but cannot remove, the risk of constituent data
// reaching logs. Clients still must not place contact details in query
// strings when a request body would do.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, name := range opts.MaskHeaders {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			masked[name] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		// Prefer the route pattern over the raw path so one noisy job id
		// cannot spread a single endpoint across many log signatures.
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		safeQuery := clip(scrubText(c.Request.URL.RawQuery), queryLogCap)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for name, values := range c.Request.Header {
			if _, hide := masked[strings.ToLower(name)]; hide {
				safeHeaders[name] = "[REDACTED]"
				continue
			}
			safeHeaders[name] = scrubText(strings.Join(values, ", "))
		}

		reqID := c.Writer.Header().Get("X-Request-ID")
		if reqID == "" {
			reqID = c.GetHeader("X-Request-ID")
		}

		l := log.With().
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set("logger", &l)

		c.Next()

		status := c.Writer.Status()
		ev := l.Info()
		switch {
		case status >= 500:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		}

		ev.
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
