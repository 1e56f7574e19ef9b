// Package repo implements the delivery data layer on GORM. This file covers
// the Job aggregate, the mutable delivery state machine attached to exactly
// one DeliveryRequest:
//
//   - CreateJob: insert a queued job (one per request, enforced by schema)
//   - GetJob: fetch a job by primary key
//   - GetJobForSender: fetch a job only if the sender owns its request
//   - ListJobsPage / CountJobs: paginated sender-scoped job history
//   - MarkJobProcessing: guarded queued -> processing transition
//   - FinalizeJob: guarded transition into a terminal state
//
// State transitions use conditional UPDATEs so concurrent workers cannot
// resurrect a job that already reached completed, partial, or failed.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
)

// openStates are the states a job may still leave.
var openStates = []string{
	string(domain.JobStateQueued),
	string(domain.JobStateProcessing),
}

// CreateJob inserts a queued job for the given delivery request.
// A second job for the same request violates the unique index and is
// reported as ErrDuplicate.
func CreateJob(ctx context.Context, db *gorm.DB, deliveryRequestID string, expectedCount int) (*domain.Job, error) {
	now := time.Now().UTC()
	job := &domain.Job{
		ID:                uuid.NewString(),
		DeliveryRequestID: deliveryRequestID,
		State:             domain.JobStateQueued,
		ExpectedCount:     expectedCount,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := db.WithContext(ctx).Create(job).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return job, nil
}

// GetJob returns the job with the given id, or ErrNotFound.
func GetJob(ctx context.Context, db *gorm.DB, id string) (*domain.Job, error) {
	var job domain.Job
	if err := db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJobForSender returns the job with the given id together with its
// delivery request, but only when the request was created by senderID
// (matched against either the user id or the guest session token).
// Jobs owned by someone else are indistinguishable from missing ones.
func GetJobForSender(ctx context.Context, db *gorm.DB, id, senderID string) (*domain.Job, error) {
	var job domain.Job
	err := db.WithContext(ctx).
		Preload("DeliveryRequest").
		Joins("JOIN delivery_requests ON delivery_requests.id = jobs.delivery_request_id").
		Where("jobs.id = ? AND (delivery_requests.user_id = ? OR delivery_requests.session_token = ?)", id, senderID, senderID).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// CountJobs returns how many jobs belong to the sender.
func CountJobs(ctx context.Context, db *gorm.DB, senderID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Job{}).
		Joins("JOIN delivery_requests ON delivery_requests.id = jobs.delivery_request_id").
		Where("delivery_requests.user_id = ? OR delivery_requests.session_token = ?", senderID, senderID).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ListJobsPage returns one page of the sender's jobs, newest first.
// The id tiebreak keeps the order stable when timestamps collide.
func ListJobsPage(ctx context.Context, db *gorm.DB, senderID string, offset, limit int) ([]domain.Job, error) {
	var jobs []domain.Job
	err := db.WithContext(ctx).
		Preload("DeliveryRequest").
		Joins("JOIN delivery_requests ON delivery_requests.id = jobs.delivery_request_id").
		Where("delivery_requests.user_id = ? OR delivery_requests.session_token = ?", senderID, senderID).
		Order("jobs.created_at DESC, jobs.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// MarkJobProcessing moves a queued job to processing. It reports whether
// this call performed the transition; false means the job was missing or
// had already left the queued state.
func MarkJobProcessing(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("id = ? AND state = ?", id, string(domain.JobStateQueued)).
		Updates(map[string]any{
			"state":      string(domain.JobStateProcessing),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FinalizeJob moves an open job into the given terminal state and stamps
// completed_at. It reports whether this call performed the transition;
// false means another worker finalized the job first, which callers treat
// as an idempotent no-op. Non-terminal states are rejected outright.
func FinalizeJob(ctx context.Context, db *gorm.DB, id string, state domain.JobState, at time.Time) (bool, error) {
	if !state.Terminal() {
		return false, fmt.Errorf("finalize job %s: state %q is not terminal", id, state)
	}
	res := db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("id = ? AND state IN ?", id, openStates).
		Updates(map[string]any{
			"state":        string(state),
			"completed_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
