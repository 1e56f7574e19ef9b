// Package repo implements the delivery data layer on GORM. This file covers
// the cached mapping between users and their resolved congressional offices:
//
//   - ListUserOffices: the active offices cached for a user
//   - ReplaceUserOffices: atomically swap a user's cached office set
//
// Authenticated senders hit this cache first on every delivery and on the
// representative lookup API; guests have no row here and re-resolve from
// the routing address each time.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
)

// ListUserOffices returns the active offices cached for the user, ordered
// by office id for a stable response shape.
func ListUserOffices(ctx context.Context, db *gorm.DB, userID string) ([]domain.Office, error) {
	var offices []domain.Office
	err := db.WithContext(ctx).
		Model(&domain.Office{}).
		Joins("JOIN user_offices ON user_offices.office_id = offices.office_id").
		Where("user_offices.user_id = ? AND offices.active = ?", userID, true).
		Order("offices.office_id ASC").
		Find(&offices).Error
	if err != nil {
		return nil, err
	}
	return offices, nil
}

// ReplaceUserOffices deletes the user's cached mapping and writes the new
// office set in one transaction, so readers never observe a partial swap.
func ReplaceUserOffices(ctx context.Context, db *gorm.DB, userID string, officeIDs []string) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&domain.UserOffice{}).Error; err != nil {
			return err
		}
		if len(officeIDs) == 0 {
			return nil
		}
		rows := make([]domain.UserOffice, 0, len(officeIDs))
		for _, officeID := range officeIDs {
			rows = append(rows, domain.UserOffice{
				ID:         uuid.NewString(),
				UserID:     userID,
				OfficeID:   officeID,
				ResolvedAt: now,
			})
		}
		return tx.Create(&rows).Error
	})
}
