// Package repo implements the delivery data layer on GORM. This file covers
// the small aggregate queries behind conditional responses: the HTTP layer
// derives ETags from the counts and timestamps returned here without loading
// full rows.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
)

// JobsStats returns aggregate metadata for a sender's jobs: the total number
// of rows and the maximum UpdatedAt timestamp among those rows.
//
// It executes two lightweight queries against the jobs table scoped to the
// provided senderID (user id or guest session token). When the sender has no
// jobs, the returned count is 0 and maxUpdatedAt is nil.
//
// Return values:
//   - count:        total jobs for senderID
//   - maxUpdatedAt: pointer to the greatest UpdatedAt, or nil if no rows
//   - err:          database error, if any
func JobsStats(ctx context.Context, db *gorm.DB, senderID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).
		Model(&domain.Job{}).
		Joins("JOIN delivery_requests ON delivery_requests.id = jobs.delivery_request_id").
		Where("delivery_requests.user_id = ? OR delivery_requests.session_token = ?", senderID, senderID)

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("jobs.updated_at").Order("jobs.updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// JobStats returns metadata for a single job used to build its ETag: the
// current state, the number of recorded attempts, and the job's UpdatedAt.
// The job must belong to senderID; foreign or unknown jobs yield ErrNotFound
// so a conditional pre-check can never confirm another sender's job.
//
// Return values:
//   - state:     the job's current state string
//   - attempts:  total attempts recorded so far
//   - updatedAt: the job's last modification time
//   - err:       ErrNotFound when the job does not exist for this sender,
//     or a database error
func JobStats(ctx context.Context, db *gorm.DB, jobID, senderID string) (state string, attempts int64, updatedAt time.Time, err error) {
	var row struct {
		State     string
		UpdatedAt time.Time
	}
	err = db.WithContext(ctx).
		Model(&domain.Job{}).
		Joins("JOIN delivery_requests ON delivery_requests.id = jobs.delivery_request_id").
		Where("jobs.id = ? AND (delivery_requests.user_id = ? OR delivery_requests.session_token = ?)",
			jobID, senderID, senderID).
		Select("jobs.state", "jobs.updated_at").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", 0, time.Time{}, ErrNotFound
	}
	if err != nil {
		return "", 0, time.Time{}, err
	}

	if attempts, err = CountAttempts(ctx, db, jobID); err != nil {
		return "", 0, time.Time{}, err
	}
	return row.State, attempts, row.UpdatedAt, nil
}
