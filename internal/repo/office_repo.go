// Package repo implements the delivery data layer on GORM. This file covers
// the congressional office directory:
//
//   - UpsertOffices: idempotent bulk load used by directory seeding
//   - HouseOffice: the active House office for a state and district
//   - HouseOfficesForState: all active House offices in a state
//   - SenateOffices: the active Senate offices for a state
//   - CountOffices: directory size, checked at startup
//
// Reads only ever return active offices; vacant seats stay in the table
// with active=false so attempt history keeps resolving.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
)

// UpsertOffices inserts or refreshes directory rows keyed by office_id.
// Reloading the same seed file is a no-op apart from timestamp churn.
func UpsertOffices(ctx context.Context, db *gorm.DB, offices []domain.Office) error {
	if len(offices) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "office_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"chamber", "state", "district", "display_name", "active", "updated_at"}),
		}).
		Create(&offices).Error
}

// HouseOffice returns the active House office for the district, or
// ErrNotFound when the seat is vacant or the district does not exist.
func HouseOffice(ctx context.Context, db *gorm.DB, state string, district int) (*domain.Office, error) {
	var office domain.Office
	err := db.WithContext(ctx).
		Where("chamber = ? AND state = ? AND district = ? AND active = ?",
			string(domain.ChamberHouse), state, district, true).
		First(&office).Error
	if err != nil {
		return nil, err
	}
	return &office, nil
}

// HouseOfficesForState returns every active House office in the state,
// ordered by district.
func HouseOfficesForState(ctx context.Context, db *gorm.DB, state string) ([]domain.Office, error) {
	var offices []domain.Office
	err := db.WithContext(ctx).
		Where("chamber = ? AND state = ? AND active = ?", string(domain.ChamberHouse), state, true).
		Order("district ASC, office_id ASC").
		Find(&offices).Error
	if err != nil {
		return nil, err
	}
	return offices, nil
}

// SenateOffices returns the active Senate offices for the state in a
// stable order. Territories with no senators yield an empty slice.
func SenateOffices(ctx context.Context, db *gorm.DB, state string) ([]domain.Office, error) {
	var offices []domain.Office
	err := db.WithContext(ctx).
		Where("chamber = ? AND state = ? AND active = ?", string(domain.ChamberSenate), state, true).
		Order("office_id ASC").
		Find(&offices).Error
	if err != nil {
		return nil, err
	}
	return offices, nil
}

// CountOffices returns the number of directory rows, active or not.
func CountOffices(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	if err := db.WithContext(ctx).Model(&domain.Office{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
