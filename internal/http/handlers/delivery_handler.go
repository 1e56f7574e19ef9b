// Delivery HTTP handlers.
//
// This file exposes the REST endpoint that accepts advocacy messages for
// congressional delivery:
//   - POST /deliveries   (accept a message, resolve recipients, start dispatch)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Acceptance is asynchronous: the
// endpoint returns 202 with a job id as soon as the fan-out is enqueued, and
// clients poll GET /jobs/{id} for progress.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous accepted
// delivery exists for (sender, key), the handler returns the original job
// reference and sets `Idempotency-Replayed: true` instead of dispatching again.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
	"github.com/tbourn/go-advocacy-backend/internal/http/middleware"
	"github.com/tbourn/go-advocacy-backend/internal/repo"
	"github.com/tbourn/go-advocacy-backend/internal/services"
	"github.com/tbourn/go-advocacy-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// DeliveryService defines the message acceptance operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type DeliveryService interface {
	// Accept validates the routing address and content, resolves recipient
	// offices, and starts an asynchronous dispatch job.
	Accept(ctx context.Context, in services.AcceptInput) (*services.AcceptResult, error)
	// Representatives previews the offices a sender resolves to without
	// creating a delivery. userID is empty for guests.
	Representatives(ctx context.Context, userID, address string) ([]domain.Office, error)
}

// JobService defines the job polling operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type JobService interface {
	// Status returns the current state of one job for its owning sender.
	Status(ctx context.Context, requesterID, jobID string) (*services.JobStatus, error)
	// ListPage returns a page of the sender's jobs and the total count.
	ListPage(ctx context.Context, requesterID string, page, pageSize int) ([]domain.Job, int64, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for deliveries, jobs, and representative
// lookups. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	deliverySvc DeliveryService
	jobSvc      JobService
	idemTTL     time.Duration
}

// New constructs a Handlers instance bound to the given services. idemTTL
// controls how long a stored Idempotency-Key remains replayable; values <= 0
// default to 24 hours.
func New(deliverySvc DeliveryService, jobSvc JobService, idemTTL time.Duration) *Handlers {
	if idemTTL <= 0 {
		idemTTL = 24 * time.Hour
	}
	return &Handlers{deliverySvc: deliverySvc, jobSvc: jobSvc, idemTTL: idemTTL}
}

// senderID extracts the requesting sender's identity from the Gin context
// (set by upstream middleware). If absent, it falls back to the "X-User-ID"
// header, then to "X-Session-Token" for guest sessions, and finally to
// "demo-user". The same value matches either delivery_requests.user_id or
// delivery_requests.session_token, so it works for both sender kinds.
func senderID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
		if h := strings.TrimSpace(c.GetHeader("X-Session-Token")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// authUserID returns the authenticated user id, or "" when the request
// carries no user identity (guest sessions included). Unlike senderID it
// never falls back to the session token, because user-scoped lookups such as
// the offices-on-file cache must not be keyed by session tokens.
func authUserID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return ""
}

//
// DTOs
//

// CreateDeliveryRequest is the JSON payload for accepting an advocacy message.
type CreateDeliveryRequest struct {
	// RoutingAddress is the raw routing token from the inbound message,
	// e.g. "congress+climate-user123" or "congress+guest-climate-sess789".
	RoutingAddress string `json:"routing_address" binding:"required" example:"congress+climate-user123"`
	// Subject is the message subject line.
	Subject string `json:"subject" example:"Support the Clean Energy Act"`
	// Body is the personalized message text. It must be non-empty.
	Body string `json:"body" binding:"required,min=1" example:"Dear Representative, I urge you to support..."`
	// Address is the sender's free-text location, consulted when no
	// offices are on file for the sender.
	Address string `json:"address,omitempty" example:"Oakland, CA"`
}

// CreateDeliveryResponse acknowledges an accepted delivery. Delivery itself
// is asynchronous; poll /jobs/{job_id} for progress.
type CreateDeliveryResponse struct {
	// RequestID identifies the stored delivery request.
	RequestID string `json:"request_id"`
	// JobID identifies the dispatch job tracking per-office submissions.
	JobID string `json:"job_id"`
	// ExpectedCount is the number of offices the job will attempt.
	ExpectedCount int `json:"expected_count"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	return utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), defaultPage),
		utils.AtoiDefault(c.Query("page_size"), defaultPageSize),
		maxPageSize,
	)
}

// idempotencyKey returns the validated Idempotency-Key when the middleware
// stashed one, falling back to the raw header so handlers still work when the
// validator is not installed (tests, minimal routers).
func idempotencyKey(c *gin.Context) (string, bool) {
	if key, ok := middleware.GetIdempotencyKey(c); ok {
		return key, true
	}
	if v := strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey)); v != "" {
		return v, true
	}
	return "", false
}

//
// Handlers
//

// CreateDelivery godoc
// @ID          createDelivery
// @Summary     Accept an advocacy message for delivery
// @Description Validates the routing address, resolves the sender's congressional offices,
// @Description and starts an asynchronous dispatch job. Returns 202 with the job reference.
// @Description Supports idempotency via the Idempotency-Key header (same key → same job).
// @Tags        Deliveries
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       X-Session-Token  header  string  false "Guest session token"    example(sess789)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.CreateDeliveryRequest  true  "Delivery payload"
//
// @Success     202  {object}  handlers.CreateDeliveryResponse  "Delivery accepted"
// @Failure     400  {object}  handlers.ErrorResponse           "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse           "Job already exists for this request"
// @Failure     500  {object}  handlers.ErrorResponse           "Dispatch failed"
// @Router      /deliveries [post]
func (h *Handlers) CreateDelivery(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "routing_address and body required")
		return
	}

	sender := senderID(c)

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := idempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.deliverySvc.(*services.DeliveryService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, sender, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if job, err2 := repo.GetJob(ctx, svc.DB, rec.JobID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusAccepted, CreateDeliveryResponse{
						RequestID:     job.DeliveryRequestID,
						JobID:         job.ID,
						ExpectedCount: job.ExpectedCount,
					})
					return
				}
			}
		}
	}

	res, err := h.deliverySvc.Accept(ctx, services.AcceptInput{
		RoutingAddress: req.RoutingAddress,
		Subject:        req.Subject,
		Body:           req.Body,
		Address:        req.Address,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRoutingAddress):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid routing address")
		case errors.Is(err, services.ErrTemplateMissing):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "routing address must name a template")
		case errors.Is(err, services.ErrEmptyMessage):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message body required")
		case errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "subject or body too long")
		case errors.Is(err, repo.ErrDuplicate):
			fail(c, http.StatusConflict, ErrCodeConflict, "a job already exists for this delivery request")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeDispatchFailed, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.deliverySvc.(*services.DeliveryService); okSvc && svc.DB != nil {
			_, _ = repo.CreateIdempotency(ctx, svc.DB, sender, idemKey, res.JobID, http.StatusAccepted, h.idemTTL)
		}
	}

	ok(c, http.StatusAccepted, CreateDeliveryResponse{
		RequestID:     res.RequestID,
		JobID:         res.JobID,
		ExpectedCount: res.ExpectedCount,
	})
}
