// Package handlers provides HTTP handler implementations for the public API.
//
// This file holds the response envelope helpers every endpoint goes
// through. Failures always render the ErrorResponse shape with a stable
// code, and 5xx failures are additionally logged with the request-scoped
// logger, so a client-reported request id can be matched to a server log
// line. Success bodies are endpoint-specific and written through ok().
//
// A failed lookup renders as:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "job not found"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-advocacy-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by every endpoint.
// RequestID echoes the X-Request-ID header when one was assigned. Code is
// machine-readable (the errors.go constants); Message is safe to show to
// a constituent.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code      string `json:"code" example:"not_found"`
	Message   string `json:"message" example:"job not found"`
}

// fail aborts the request with status and the standard envelope. Server
// errors (>= 500) also log at error level through the request-scoped
// logger; client errors stay quiet here because the access logger already
// records them at warn.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail exposes fail for the router's NoRoute and NoMethod handlers, which
// live outside this package but must render the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes body as JSON with the given status.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
