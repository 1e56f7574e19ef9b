// Package services defines the business logic for accepting deliveries and
// reporting job progress. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

// Delivery-related errors.
var (
	// ErrInvalidRoutingAddress is returned when the inbound routing token
	// cannot be decoded. No delivery request or job is created.
	ErrInvalidRoutingAddress = errors.New("invalid routing address")

	// ErrTemplateMissing is returned when a decoded routing token carries
	// no template identifier.
	ErrTemplateMissing = errors.New("template id is missing")

	// ErrEmptyMessage is returned when a delivery request arrives with an
	// empty message body.
	ErrEmptyMessage = errors.New("message body is empty")

	// ErrTooLong is returned when the subject or body exceeds the maximum
	// configured length limit.
	ErrTooLong = errors.New("message too long")

	// ErrJobNotFound indicates that the requested job does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobForbidden is returned when a requester asks about a job whose
	// underlying delivery request they do not own.
	ErrJobForbidden = errors.New("job belongs to another sender")
)
