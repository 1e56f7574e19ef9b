// Package services – DeliveryService
//
// This file implements DeliveryService, the application-level component that
// turns one inbound advocacy trigger into a tracked delivery job. It decodes
// the routing token, validates and normalizes the message content, persists
// the immutable DeliveryRequest, resolves the recipient offices, and hands
// the fan-out to the dispatcher. The caller gets back the job id and the
// expected recipient count; everything per-office happens asynchronously.
//
// Service-level errors (e.g., ErrInvalidRoutingAddress) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
	"github.com/tbourn/go-advocacy-backend/internal/repo"
	"github.com/tbourn/go-advocacy-backend/internal/routing"
)

// RecipientResolver yields the offices one sender's messages fan out to.
// congress.Resolver is the production implementation.
type RecipientResolver interface {
	// OfficesForUser returns the user's offices on file, resolving and
	// persisting them from address when none are cached.
	OfficesForUser(ctx context.Context, userID, address string) ([]domain.Office, error)

	// OfficesForAddress resolves offices from address alone, with no
	// per-user cache.
	OfficesForAddress(ctx context.Context, address string) ([]domain.Office, error)
}

// JobDispatcher starts the asynchronous per-office fan-out for one request.
// dispatch.Dispatcher is the production implementation.
type JobDispatcher interface {
	Dispatch(ctx context.Context, req *domain.DeliveryRequest, offices []domain.Office) (string, error)
}

// AcceptInput is one inbound delivery trigger.
type AcceptInput struct {
	// RoutingAddress is the raw routing token, e.g. "congress+climate-user123".
	RoutingAddress string
	// Subject and Body are the already-personalized message content.
	Subject string
	Body    string
	// Address is the sender's free-text location. Consulted only when no
	// offices are on file for the sender.
	Address string
}

// AcceptResult reports the job that now tracks the accepted delivery.
type AcceptResult struct {
	RequestID     string
	JobID         string
	ExpectedCount int
}

// DeliveryService accepts inbound delivery triggers and hands them to the
// dispatcher.
type DeliveryService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Resolver maps senders to their congressional offices.
	Resolver RecipientResolver
	// Dispatcher runs the per-office fan-out.
	Dispatcher JobDispatcher

	// Optional content guards, by rune length.
	MaxSubjectRunes int
	MaxBodyRunes    int
}

// NewDeliveryService constructs a DeliveryService with sane content guards.
func NewDeliveryService(db *gorm.DB, resolver RecipientResolver, dispatcher JobDispatcher) *DeliveryService {
	return &DeliveryService{
		DB:              db,
		Resolver:        resolver,
		Dispatcher:      dispatcher,
		MaxSubjectRunes: 255,
		MaxBodyRunes:    10000,
	}
}

// Accept decodes and validates one trigger, persists the request, resolves
// its recipients, and starts dispatch. The returned job starts queued; zero
// resolved recipients is not an error and yields a job that completes with
// no attempts.
func (s *DeliveryService) Accept(ctx context.Context, in AcceptInput) (*AcceptResult, error) {
	tr := otel.Tracer("services/DeliveryService")
	ctx, span := tr.Start(ctx, "Accept")
	defer span.End()

	info, err := routing.Parse(in.RoutingAddress)
	if err != nil {
		return nil, ErrInvalidRoutingAddress
	}
	if info.TemplateID == "" {
		return nil, ErrTemplateMissing
	}
	span.SetAttributes(
		attribute.String("template.id", info.TemplateID),
		attribute.String("routing.kind", string(info.Kind)),
	)

	subject := normalizeSubject(in.Subject)
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxSubjectRunes > 0 && utf8.RuneCountInString(subject) > s.MaxSubjectRunes {
		return nil, ErrTooLong
	}
	if s.MaxBodyRunes > 0 && utf8.RuneCountInString(body) > s.MaxBodyRunes {
		return nil, ErrTooLong
	}

	var userID, sessionToken *string
	switch info.Kind {
	case routing.KindAuthenticated:
		userID = &info.UserID
	default:
		sessionToken = &info.SessionToken
	}

	req, err := repo.CreateDeliveryRequest(ctx, s.DB, info.TemplateID, subject, body, in.RoutingAddress, userID, sessionToken)
	if err != nil {
		return nil, err
	}

	offices, err := s.resolveOffices(ctx, info, in.Address)
	if err != nil {
		return nil, err
	}

	jobID, err := s.Dispatcher.Dispatch(ctx, req, offices)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("delivery.offices", len(offices)))
	return &AcceptResult{RequestID: req.ID, JobID: jobID, ExpectedCount: len(offices)}, nil
}

// Representatives previews the offices a sender resolves to without creating
// any delivery. userID is empty for guests, who never touch the
// offices-on-file cache.
func (s *DeliveryService) Representatives(ctx context.Context, userID, address string) ([]domain.Office, error) {
	tr := otel.Tracer("services/DeliveryService")
	ctx, span := tr.Start(ctx, "Representatives")
	defer span.End()
	span.SetAttributes(attribute.Bool("authenticated", userID != ""))

	if userID != "" {
		return s.Resolver.OfficesForUser(ctx, userID, address)
	}
	return s.Resolver.OfficesForAddress(ctx, address)
}

// resolveOffices picks the resolution path for the sender identity.
func (s *DeliveryService) resolveOffices(ctx context.Context, info routing.RoutingInfo, address string) ([]domain.Office, error) {
	if info.Kind == routing.KindAuthenticated {
		return s.Resolver.OfficesForUser(ctx, info.UserID, address)
	}
	return s.Resolver.OfficesForAddress(ctx, address)
}

// normalizeSubject trims whitespace and collapses multiple spaces to one.
func normalizeSubject(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
