// Package repo implements the delivery data layer on GORM. It covers the
// delivery requests, jobs, submission attempts, congressional offices, and
// admission bookkeeping behind the advocacy pipeline, exposing a minimal,
// context-aware API surface over the shared *gorm.DB.
//
// This file covers the DeliveryRequest aggregate, the immutable record of a
// constituent message accepted for delivery.
//
// Design notes
//
//   - Every exported function accepts a context.Context and a *gorm.DB so
//     callers control cancellation, deadlines, and transaction scope.
//   - Rows are never updated after creation; the request is an audit record
//     and downstream state lives on the Job.
//   - Missing rows surface as ErrNotFound (an alias of
//     gorm.ErrRecordNotFound) so services can translate them into API
//     errors without importing GORM.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateDeliveryRequest inserts a new delivery request and returns it.
// Exactly one of userID / sessionToken should be non-nil; the schema-level
// check constraint rejects rows that violate that rule.
func CreateDeliveryRequest(ctx context.Context, db *gorm.DB, templateID, subject, body, routingAddress string, userID, sessionToken *string) (*domain.DeliveryRequest, error) {
	req := &domain.DeliveryRequest{
		ID:             uuid.NewString(),
		TemplateID:     templateID,
		UserID:         userID,
		SessionToken:   sessionToken,
		Subject:        subject,
		Body:           body,
		RoutingAddress: routingAddress,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

// GetDeliveryRequest returns the delivery request with the given id, or
// ErrNotFound when no such row exists.
func GetDeliveryRequest(ctx context.Context, db *gorm.DB, id string) (*domain.DeliveryRequest, error) {
	var req domain.DeliveryRequest
	if err := db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}
