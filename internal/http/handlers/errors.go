// Package handlers defines the HTTP-layer error codes shared by all API
// endpoints.
//
// Every error response pairs an HTTP status with one of these codes, so
// clients branch on the code rather than parse the message. Generic codes
// track their status line (bad_request, forbidden, conflict). The
// domain-specific ones mark failures the status alone cannot distinguish:
// dispatch_failed for a delivery that could not be queued, resolve_failed
// for a geographic scope that could not be matched, list_failed for a
// representatives listing error.
//
// Example:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "forbidden",
//	  "message": "job belongs to another sender"
//	}
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeDispatchFailed   = "dispatch_failed"
	ErrCodeResolveFailed    = "resolve_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
