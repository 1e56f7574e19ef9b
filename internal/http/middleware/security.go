// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders, which stamps a conservative set of
// hardening headers onto every response. The API serves JSON only, so there
// is no Content-Security-Policy here; the headers cover MIME sniffing,
// framing, referrer leakage, optional browser feature policies, cache
// suppression for responses that carry constituent data, and HSTS when the
// deployment terminates TLS end-to-end.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// defaultHSTSMaxAge applies when EnableHSTS is set without a max age.
const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions selects which optional header groups SecurityHeaders
// emits.
//
// EnableHSTS adds Strict-Transport-Security, and only on requests that
// actually arrived over HTTPS (direct TLS or X-Forwarded-Proto: https from
// the proxy). Leave it off for localhost or when the proxy-to-app hop is
// plain HTTP. HSTSMaxAge falls back to 180 days when zero or negative.
//
// NoStore adds Cache-Control: no-store plus the legacy Pragma/Expires pair.
// Delivery submissions and job-status responses include sender addresses,
// so the production config keeps this on.
//
// EnablePolicy adds Permissions-Policy and
// X-Permitted-Cross-Domain-Policies. Browsers honor them; other clients
// ignore them.
type SecurityOptions struct {
	EnableHSTS   bool
	HSTSMaxAge   time.Duration
	NoStore      bool
	EnablePolicy bool
}

// SecurityHeaders returns middleware that applies the configured header
// set before the handler chain runs.
//
// Unconditionally set:
//
//	X-Content-Type-Options: nosniff
//	X-Frame-Options: DENY
//	Referrer-Policy: no-referrer
//
// The remaining groups follow SecurityOptions. When an upstream middleware
// already assigned X-Request-ID, that name is also appended to
// Access-Control-Expose-Headers so browser clients polling a delivery job
// can read the id they should quote in support requests.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	// The HSTS value never varies per request; build it once.
	hstsValue := "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		if opt.EnableHSTS && requestIsHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hstsValue)
		}

		if rid := h.Get("X-Request-ID"); rid != "" {
			appendExposedHeader(h, "X-Request-ID")
		}

		c.Next()
	}
}

// requestIsHTTPS reports whether the request used TLS, either directly or
// according to the proxy's X-Forwarded-Proto header.
func requestIsHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// appendExposedHeader adds name to Access-Control-Expose-Headers without
// clobbering names some other middleware already exposed.
func appendExposedHeader(h http.Header, name string) {
	const key = "Access-Control-Expose-Headers"
	cur := h.Get(key)
	switch {
	case cur == "":
		h.Set(key, name)
	case !strings.Contains(cur, name):
		h.Set(key, cur+", "+name)
	}
}
