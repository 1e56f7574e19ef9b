// Package repo implements the delivery data layer on GORM. This file covers
// the once-per-day submission dedup ledger. A row is a claim that one sender
// already messaged one office about one template on a given UTC day; the
// unique index makes the claim first-writer-wins under concurrency.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
)

// CreateSubmissionDedup claims the (template, office, sender, day) tuple.
// The second and every later claim for the same tuple returns ErrDuplicate.
func CreateSubmissionDedup(ctx context.Context, db *gorm.DB, templateID, officeID, userID, day string) error {
	rec := &domain.SubmissionDedup{
		ID:         uuid.NewString(),
		TemplateID: templateID,
		OfficeID:   officeID,
		UserID:     userID,
		Day:        day,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// DeleteSubmissionDedup removes one claim. Used when admission claimed the
// tuple but no external submission followed, so the sender keeps their
// once-per-day slot. Deleting an absent row is a no-op.
func DeleteSubmissionDedup(ctx context.Context, db *gorm.DB, templateID, officeID, userID, day string) error {
	return db.WithContext(ctx).
		Where("template_id = ? AND office_id = ? AND user_id = ? AND day = ?", templateID, officeID, userID, day).
		Delete(&domain.SubmissionDedup{}).Error
}

// PurgeSubmissionDedup deletes claims older than the cutoff day and returns
// how many rows were removed. Day strings compare lexicographically, so a
// plain < works.
func PurgeSubmissionDedup(ctx context.Context, db *gorm.DB, cutoffDay string) (int64, error) {
	res := db.WithContext(ctx).
		Where("day < ?", cutoffDay).
		Delete(&domain.SubmissionDedup{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
