// Package admission decides whether a single (sender, template, office)
// submission may proceed. Two gates run in a fixed order:
//
//  1. Dedup: each sender may message a given office about a given template
//     once per UTC day. Duplicates are rejected before any token is spent.
//  2. Token bucket: each office has a refill-based budget so bursts from
//     many senders cannot flood one congressional intake.
//
// Both gates are expressed as narrow store interfaces with a local
// (SQLite + in-process buckets) and a Redis implementation, chosen at
// startup. Every store operation is a single atomic check-and-consume;
// there is no read-then-write window for concurrent submissions to slip
// through.
package admission

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
)

// Outcome is the verdict for one submission.
type Outcome string

const (
	// Admitted means both gates passed and a token was consumed.
	Admitted Outcome = "admitted"
	// Duplicate means the sender already messaged this office about this
	// template today. No token was consumed.
	Duplicate Outcome = "duplicate"
	// RateLimited means the office bucket had no token. The dedup claim is
	// released, because nothing was submitted; a later retry goes through
	// both gates again.
	RateLimited Outcome = "rate_limited"
)

// AdmitRequest identifies one prospective submission.
type AdmitRequest struct {
	TemplateID string
	OfficeID   string
	Chamber    domain.Chamber
	// UserID is the sender identity: the user id, or the session token for
	// guests.
	UserID string
	// Day is the UTC calendar day of the submission (domain.DedupDay).
	Day string
}

// Decision is the outcome of Admit plus scheduling advice for rejections.
type Decision struct {
	Outcome Outcome
	// RetryAfter is how long the caller should wait before the office
	// bucket has a token again. Only set for RateLimited.
	RetryAfter time.Duration
}

// DedupStore claims once-per-day submission tuples. Claim returns false
// when the tuple was already claimed. Claims are first-writer-wins under
// concurrency. Release undoes a claim that never led to an external call;
// while a claim is held no other caller can own the tuple, so releasing
// only ever removes the caller's own claim.
type DedupStore interface {
	Claim(ctx context.Context, templateID, officeID, userID, day string) (bool, error)
	Release(ctx context.Context, templateID, officeID, userID, day string) error
}

// BucketStore consumes one token from an office bucket. When no token is
// available it returns allowed=false and how long until one would be.
type BucketStore interface {
	Take(ctx context.Context, chamber domain.Chamber, officeID string) (allowed bool, retryAfter time.Duration, err error)
}

// Controller runs the two admission gates in order.
type Controller struct {
	dedup  DedupStore
	bucket BucketStore
}

// NewController builds a Controller from explicit stores.
func NewController(dedup DedupStore, bucket BucketStore) *Controller {
	return &Controller{dedup: dedup, bucket: bucket}
}

// Admit applies the dedup gate, then the token bucket. A store failure is
// returned as an error and counts as no decision; the caller records it as
// a delivery error for that office.
func (c *Controller) Admit(ctx context.Context, req AdmitRequest) (Decision, error) {
	fresh, err := c.dedup.Claim(ctx, req.TemplateID, req.OfficeID, req.UserID, req.Day)
	if err != nil {
		return Decision{}, err
	}
	if !fresh {
		admissionDecisions.WithLabelValues(string(Duplicate)).Inc()
		return Decision{Outcome: Duplicate}, nil
	}

	allowed, wait, err := c.bucket.Take(ctx, req.Chamber, req.OfficeID)
	if err != nil {
		c.release(ctx, req)
		return Decision{}, err
	}
	if !allowed {
		c.release(ctx, req)
		admissionDecisions.WithLabelValues(string(RateLimited)).Inc()
		return Decision{Outcome: RateLimited, RetryAfter: wait}, nil
	}

	admissionDecisions.WithLabelValues(string(Admitted)).Inc()
	return Decision{Outcome: Admitted}, nil
}

// release undoes a fresh claim on paths where no external call will
// happen. Best effort: if it fails, the tuple stays claimed for the rest
// of the day, which errs on the side of fewer submissions.
func (c *Controller) release(ctx context.Context, req AdmitRequest) {
	if err := c.dedup.Release(ctx, req.TemplateID, req.OfficeID, req.UserID, req.Day); err != nil {
		log.Warn().
			Err(err).
			Str("office_id", req.OfficeID).
			Msg("could not release dedup claim")
	}
}
