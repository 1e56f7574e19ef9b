// Package repo implements the delivery data layer on GORM. This file covers
// SubmissionAttempt rows, the append-only per-office outcome log beneath a
// Job:
//
//   - CreateAttempt: append one outcome row (transaction friendly)
//   - ListAttempts: all attempts for a job in stable chronological order
//   - CountAttempts: raw attempt count for a job
//   - AttemptTally: attempted and succeeded counts in a single query
//
// Attempts are never updated or deleted; the job state machine derives its
// terminal state from the tally.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
)

// CreateAttempt appends an outcome row. It takes a bare *gorm.DB so the
// dispatcher can pass a transaction handle; callers outside a transaction
// should pass db.WithContext(ctx) themselves.
func CreateAttempt(db *gorm.DB, a *domain.SubmissionAttempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return db.Create(a).Error
}

// ListAttempts returns every attempt for the job ordered by creation time.
// The id tiebreak keeps the order deterministic when timestamps collide.
func ListAttempts(ctx context.Context, db *gorm.DB, jobID string) ([]domain.SubmissionAttempt, error) {
	var attempts []domain.SubmissionAttempt
	err := db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC, id ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

// CountAttempts returns how many attempts exist for the job.
func CountAttempts(ctx context.Context, db *gorm.DB, jobID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.SubmissionAttempt{}).
		Where("job_id = ?", jobID).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Tally summarizes the attempts recorded for one job.
type Tally struct {
	Attempted int64
	Succeeded int64
}

// AttemptTally returns the attempted and succeeded counts for the job in a
// single query, so the two numbers always describe the same snapshot.
func AttemptTally(ctx context.Context, db *gorm.DB, jobID string) (Tally, error) {
	var t Tally
	err := db.WithContext(ctx).
		Model(&domain.SubmissionAttempt{}).
		Select("COUNT(*) AS attempted, COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS succeeded", string(domain.OutcomeSuccess)).
		Where("job_id = ?", jobID).
		Scan(&t).Error
	if err != nil {
		return Tally{}, err
	}
	return t, nil
}
