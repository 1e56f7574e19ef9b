// Job HTTP handlers.
//
// This file exposes REST endpoints for polling delivery jobs:
//   - GET /jobs/{id}   (job status with per-office attempts, ETag support)
//   - GET /jobs        (list the sender's jobs, paginated, ETag support)
//
// Handlers are transport-thin:
//   - validate inputs (job id shape)
//   - delegate to application services (JobService)
//   - implement conditional responses (ETag) for cheap polling
//
// Ownership: both endpoints scope every read to the requesting sender. A job
// that belongs to another sender yields 403; an unknown id yields 404. The
// ETag pre-check is ownership-scoped as well, so a conditional request can
// never confirm the existence of someone else's job.
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
	"github.com/tbourn/go-advocacy-backend/internal/repo"
	"github.com/tbourn/go-advocacy-backend/internal/services"
	"github.com/tbourn/go-advocacy-backend/internal/utils"
)

//
// DTOs
//

// JobStatusResponse is the polling view of one delivery job.
type JobStatusResponse struct {
	JobID         string          `json:"job_id"`
	State         domain.JobState `json:"state" example:"partial"`
	ExpectedCount int             `json:"expected_count"`
	// ProgressPercent is a display convenience; State is authoritative.
	ProgressPercent int `json:"progress_percent"`
	// Attempts lists per-office outcomes in recording order.
	Attempts    []domain.SubmissionAttempt `json:"attempts"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
	CompletedAt *time.Time                 `json:"completed_at,omitempty"`
}

// ListJobsResponse wraps a page of jobs and pagination information.
type ListJobsResponse struct {
	Jobs       []domain.Job `json:"jobs"`
	Pagination Pagination   `json:"pagination"`
}

//
// Handlers
//

// GetJob godoc
// @ID          getJob
// @Summary     Get delivery job status
// @Description Returns the job state, per-office attempts, and progress for a job owned
// @Description by the current sender. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Jobs
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"       example(user123)
// @Param       X-Session-Token  header  string  false "Guest session token"         example(sess789)
// @Param       If-None-Match    header  string  false "Return 304 if ETag matches"  example(W/\"job:abc:completed:3:1\")
// @Param       id               path    string  true  "Job ID (UUID)"               format(uuid)
//
// @Success     200  {object} handlers.JobStatusResponse
// @Header      200  {string} ETag "Weak ETag for current job state"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Job belongs to another sender"
// @Failure     404  {object} handlers.ErrorResponse "Job not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /jobs/{id} [get]
func (h *Handlers) GetJob(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("id")

	if _, err := uuid.Parse(jobID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "job id must be a UUID")
		return
	}

	sender := senderID(c)

	// ETag pre-check (best effort, ownership-scoped).
	var db *gorm.DB
	if svc, ok := h.jobSvc.(*services.JobService); ok {
		db = svc.DB
	}
	if db != nil {
		state, attempts, updatedAt, err := repo.JobStats(ctx, db, jobID, sender)
		if err == nil {
			etag := fmt.Sprintf(`W/"job:%s:%s:%d:%d"`, jobID, state, attempts, updatedAt.Unix())
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	st, err := h.jobSvc.Status(ctx, sender, jobID)
	if err != nil {
		switch err {
		case services.ErrJobNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "job not found")
		case services.ErrJobForbidden:
			fail(c, http.StatusForbidden, ErrCodeForbidden, "job belongs to another sender")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, JobStatusResponse{
		JobID:           st.JobID,
		State:           st.State,
		ExpectedCount:   st.ExpectedCount,
		ProgressPercent: st.ProgressPercent,
		Attempts:        st.Attempts,
		CreatedAt:       st.CreatedAt,
		UpdatedAt:       st.UpdatedAt,
		CompletedAt:     st.CompletedAt,
	})
}

// ListJobs godoc
// @ID          listJobs
// @Summary     List delivery jobs (paginated)
// @Description Returns a page of the sender's jobs, newest first. Supports weak ETag via
// @Description If-None-Match and may return 304.
// @Tags        Jobs
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"       example(user123)
// @Param       X-Session-Token  header  string  false "Guest session token"         example(sess789)
// @Param       If-None-Match    header  string  false "Return 304 if ETag matches"  example(W/\"jobs:user123:3:1\")
// @Param       page             query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size        query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListJobsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /jobs [get]
func (h *Handlers) ListJobs(c *gin.Context) {
	ctx := c.Request.Context()
	sender := senderID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.jobSvc.(*services.JobService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.JobsStats(ctx, db, sender)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"jobs:%s:%d:%d"`, sender, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.jobSvc.ListPage(ctx, sender, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListJobsResponse{
		Jobs: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
