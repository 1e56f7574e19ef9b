// Package services – JobService
//
// This file implements JobService, which answers polling clients asking
// about delivery jobs. It enforces ownership of the underlying delivery
// request, returns attempts in recording order, and derives a display-only
// progress percentage from the attempt count.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
	"github.com/tbourn/go-advocacy-backend/internal/repo"
)

// JobStatus is the polling view of one delivery job.
type JobStatus struct {
	JobID         string
	State         domain.JobState
	ExpectedCount int
	// Attempts are in recording order.
	Attempts []domain.SubmissionAttempt
	// ProgressPercent is a display convenience derived from the attempt
	// count; State is the authoritative signal.
	ProgressPercent int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// JobService reads job state on behalf of the sender that owns it.
type JobService struct {
	// DB is the GORM handle used for reads.
	DB *gorm.DB
}

// NewJobService constructs a JobService.
func NewJobService(db *gorm.DB) *JobService { return &JobService{DB: db} }

// Status returns the current state of one job for its owner. Requesters who
// do not own the underlying delivery request get ErrJobForbidden; unknown
// ids get ErrJobNotFound.
func (s *JobService) Status(ctx context.Context, requesterID, jobID string) (*JobStatus, error) {
	tr := otel.Tracer("services/JobService")
	ctx, span := tr.Start(ctx, "Status",
		trace.WithAttributes(attribute.String("job.id", jobID)),
	)
	defer span.End()

	job, err := repo.GetJobForSender(ctx, s.DB, jobID, requesterID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		// Distinguish an unknown job from someone else's job.
		switch _, gerr := repo.GetJob(ctx, s.DB, jobID); {
		case gerr == nil:
			return nil, ErrJobForbidden
		case errors.Is(gerr, repo.ErrNotFound):
			return nil, ErrJobNotFound
		default:
			return nil, gerr
		}
	}

	attempts, err := repo.ListAttempts(ctx, s.DB, jobID)
	if err != nil {
		return nil, err
	}

	return &JobStatus{
		JobID:           job.ID,
		State:           job.State,
		ExpectedCount:   job.ExpectedCount,
		Attempts:        attempts,
		ProgressPercent: progressPercent(len(attempts), job.ExpectedCount),
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
		CompletedAt:     job.CompletedAt,
	}, nil
}

// ListPage returns a page of the requester's jobs, newest first, plus the
// total count for pagination. It applies defaults for invalid page/pageSize.
func (s *JobService) ListPage(ctx context.Context, requesterID string, page, pageSize int) ([]domain.Job, int64, error) {
	tr := otel.Tracer("services/JobService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountJobs(ctx, s.DB, requesterID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Job{}, 0, nil
	}

	items, err := repo.ListJobsPage(ctx, s.DB, requesterID, offset, pageSize)
	return items, total, err
}

// progressPercent maps recorded/expected attempts to 0-100. A job with
// nothing expected is already done.
func progressPercent(attempted, expected int) int {
	if expected <= 0 {
		return 100
	}
	p := attempted * 100 / expected
	if p > 100 {
		p = 100
	}
	return p
}
