package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
	"github.com/tbourn/go-advocacy-backend/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

type fakeResolver struct {
	offices []domain.Office
	err     error

	userCalls    int
	addressCalls int
	forUserID    string
	forAddress   string
	addressOnly  string
}

func (f *fakeResolver) OfficesForUser(_ context.Context, userID, address string) ([]domain.Office, error) {
	f.userCalls++
	f.forUserID, f.forAddress = userID, address
	return f.offices, f.err
}

func (f *fakeResolver) OfficesForAddress(_ context.Context, address string) ([]domain.Office, error) {
	f.addressCalls++
	f.addressOnly = address
	return f.offices, f.err
}

type fakeDispatcher struct {
	jobID string
	err   error

	calls   int
	req     *domain.DeliveryRequest
	offices []domain.Office
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req *domain.DeliveryRequest, offices []domain.Office) (string, error) {
	f.calls++
	f.req = req
	f.offices = offices
	if f.err != nil {
		return "", f.err
	}
	if f.jobID == "" {
		return "job-1", nil
	}
	return f.jobID, nil
}

func svcOffices() []domain.Office {
	return []domain.Office{
		{OfficeID: "H-CA-12", Chamber: domain.ChamberHouse, State: "CA", District: 12, DisplayName: "Representative, CA 12th District", Active: true},
		{OfficeID: "S-CA-1", Chamber: domain.ChamberSenate, State: "CA", DisplayName: "Senator for California (Seat 1)", Active: true},
		{OfficeID: "S-CA-2", Chamber: domain.ChamberSenate, State: "CA", DisplayName: "Senator for California (Seat 2)", Active: true},
	}
}

// ---------- Accept() ----------

func TestNewDeliveryService_Defaults(t *testing.T) {
	res := &fakeResolver{}
	disp := &fakeDispatcher{}
	s := NewDeliveryService(nil, res, disp)

	if s.Resolver != res || s.Dispatcher != disp {
		t.Fatalf("collaborators not set")
	}
	if s.MaxSubjectRunes != 255 {
		t.Fatalf("MaxSubjectRunes default = 255, got %d", s.MaxSubjectRunes)
	}
	if s.MaxBodyRunes != 10000 {
		t.Fatalf("MaxBodyRunes default = 10000, got %d", s.MaxBodyRunes)
	}
}

func TestNormalizeSubject(t *testing.T) {
	cases := map[string]string{
		"":                     "",
		"   leading   ":        "leading",
		"multi   spaces":       "multi spaces",
		"tabs\tand\nnewlines ": "tabs and newlines",
		" already ok ":         "already ok",
	}
	for in, want := range cases {
		if got := normalizeSubject(in); got != want {
			t.Errorf("normalizeSubject(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestAccept_InvalidRouting_NoRequestCreated(t *testing.T) {
	db := newSvcDB(t, &domain.DeliveryRequest{})
	s := NewDeliveryService(db, &fakeResolver{}, &fakeDispatcher{})

	for _, token := range []string{"", "support+climate-user1", "congress+justone", "congress+-user1"} {
		_, err := s.Accept(context.Background(), AcceptInput{RoutingAddress: token, Body: "hello"})
		if !errors.Is(err, ErrInvalidRoutingAddress) {
			t.Fatalf("Accept(%q) err = %v; want ErrInvalidRoutingAddress", token, err)
		}
	}

	var n int64
	if err := db.Model(&domain.DeliveryRequest{}).Count(&n).Error; err != nil || n != 0 {
		t.Fatalf("delivery_requests count = %d, %v; want 0 rows after rejected tokens", n, err)
	}
}

func TestAccept_EmptyBody(t *testing.T) {
	db := newSvcDB(t, &domain.DeliveryRequest{})
	s := NewDeliveryService(db, &fakeResolver{}, &fakeDispatcher{})

	_, err := s.Accept(context.Background(), AcceptInput{
		RoutingAddress: "congress+climate-user123",
		Subject:        "Hi",
		Body:           "   \t  ",
	})
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestAccept_TooLong(t *testing.T) {
	db := newSvcDB(t, &domain.DeliveryRequest{})

	t.Run("body", func(t *testing.T) {
		s := NewDeliveryService(db, &fakeResolver{}, &fakeDispatcher{})
		s.MaxBodyRunes = 5
		_, err := s.Accept(context.Background(), AcceptInput{
			RoutingAddress: "congress+climate-user123",
			Body:           "abcdef",
		})
		if !errors.Is(err, ErrTooLong) {
			t.Fatalf("expected ErrTooLong, got %v", err)
		}
	})

	t.Run("subject", func(t *testing.T) {
		s := NewDeliveryService(db, &fakeResolver{}, &fakeDispatcher{})
		s.MaxSubjectRunes = 3
		_, err := s.Accept(context.Background(), AcceptInput{
			RoutingAddress: "congress+climate-user123",
			Subject:        "abcd",
			Body:           "fine",
		})
		if !errors.Is(err, ErrTooLong) {
			t.Fatalf("expected ErrTooLong, got %v", err)
		}
	})
}

func TestAccept_Authenticated(t *testing.T) {
	db := newSvcDB(t, &domain.DeliveryRequest{})
	res := &fakeResolver{offices: svcOffices()}
	disp := &fakeDispatcher{jobID: "job-42"}
	s := NewDeliveryService(db, res, disp)

	out, err := s.Accept(context.Background(), AcceptInput{
		RoutingAddress: "congress+climate-action-user123",
		Subject:        "  Support   the bill  ",
		Body:           "Please vote yes.",
		Address:        "Oakland, CA",
	})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if out.JobID != "job-42" || out.ExpectedCount != 3 || out.RequestID == "" {
		t.Fatalf("result = %+v; want job-42 / 3 / nonempty request id", out)
	}

	// Hyphens inside the template id survive the last-separator split.
	if disp.req.TemplateID != "climate-action" {
		t.Fatalf("template = %q; want climate-action", disp.req.TemplateID)
	}
	if disp.req.UserID == nil || *disp.req.UserID != "user123" {
		t.Fatalf("user id = %v; want user123", disp.req.UserID)
	}
	if disp.req.SessionToken != nil {
		t.Fatalf("session token = %v; want nil for authenticated sender", disp.req.SessionToken)
	}
	if disp.req.Subject != "Support the bill" {
		t.Fatalf("subject = %q; want normalized", disp.req.Subject)
	}
	if len(disp.offices) != 3 {
		t.Fatalf("dispatcher got %d offices; want 3", len(disp.offices))
	}
	if res.userCalls != 1 || res.addressCalls != 0 {
		t.Fatalf("resolver calls user/address = %d/%d; want 1/0", res.userCalls, res.addressCalls)
	}
	if res.forUserID != "user123" || res.forAddress != "Oakland, CA" {
		t.Fatalf("resolver saw user=%q address=%q", res.forUserID, res.forAddress)
	}

	// The request row is persisted and immutable input is kept verbatim.
	stored, err := repo.GetDeliveryRequest(context.Background(), db, out.RequestID)
	if err != nil {
		t.Fatalf("stored request: %v", err)
	}
	if stored.RoutingAddress != "congress+climate-action-user123" {
		t.Fatalf("stored routing address = %q", stored.RoutingAddress)
	}
}

func TestAccept_Guest(t *testing.T) {
	db := newSvcDB(t, &domain.DeliveryRequest{})
	res := &fakeResolver{offices: svcOffices()[:1]}
	disp := &fakeDispatcher{}
	s := NewDeliveryService(db, res, disp)

	out, err := s.Accept(context.Background(), AcceptInput{
		RoutingAddress: "congress+guest-climate-sess789",
		Body:           "Please vote yes.",
		Address:        "Cheyenne, WY",
	})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if out.ExpectedCount != 1 {
		t.Fatalf("expected count = %d; want 1", out.ExpectedCount)
	}
	if disp.req.SessionToken == nil || *disp.req.SessionToken != "sess789" {
		t.Fatalf("session token = %v; want sess789", disp.req.SessionToken)
	}
	if disp.req.UserID != nil {
		t.Fatalf("user id = %v; want nil for guest", disp.req.UserID)
	}
	// Guests never touch the offices-on-file cache.
	if res.userCalls != 0 || res.addressCalls != 1 {
		t.Fatalf("resolver calls user/address = %d/%d; want 0/1", res.userCalls, res.addressCalls)
	}
	if res.addressOnly != "Cheyenne, WY" {
		t.Fatalf("resolver saw address %q", res.addressOnly)
	}
}

func TestAccept_ZeroOffices_StillDispatches(t *testing.T) {
	db := newSvcDB(t, &domain.DeliveryRequest{})
	disp := &fakeDispatcher{}
	s := NewDeliveryService(db, &fakeResolver{}, disp)

	out, err := s.Accept(context.Background(), AcceptInput{
		RoutingAddress: "congress+climate-user123",
		Body:           "Please vote yes.",
	})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if out.ExpectedCount != 0 {
		t.Fatalf("expected count = %d; want 0", out.ExpectedCount)
	}
	if disp.calls != 1 || len(disp.offices) != 0 {
		t.Fatalf("dispatcher calls=%d offices=%d; zero recipients still produce a job", disp.calls, len(disp.offices))
	}
}

func TestAccept_CollaboratorErrorsPropagate(t *testing.T) {
	t.Run("resolver", func(t *testing.T) {
		db := newSvcDB(t, &domain.DeliveryRequest{})
		sentinel := errors.New("directory down")
		s := NewDeliveryService(db, &fakeResolver{err: sentinel}, &fakeDispatcher{})

		_, err := s.Accept(context.Background(), AcceptInput{
			RoutingAddress: "congress+climate-user123",
			Body:           "Please vote yes.",
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected resolver error to propagate, got %v", err)
		}
	})

	t.Run("dispatcher", func(t *testing.T) {
		db := newSvcDB(t, &domain.DeliveryRequest{})
		sentinel := errors.New("job exists")
		s := NewDeliveryService(db, &fakeResolver{}, &fakeDispatcher{err: sentinel})

		_, err := s.Accept(context.Background(), AcceptInput{
			RoutingAddress: "congress+climate-user123",
			Body:           "Please vote yes.",
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected dispatcher error to propagate, got %v", err)
		}
	})
}

func TestAccept_BodyKeptVerbatimAfterTrim(t *testing.T) {
	db := newSvcDB(t, &domain.DeliveryRequest{})
	disp := &fakeDispatcher{}
	s := NewDeliveryService(db, &fakeResolver{}, disp)

	body := "Line one.\n\nLine   two keeps its internal spacing."
	_, err := s.Accept(context.Background(), AcceptInput{
		RoutingAddress: "congress+climate-user123",
		Body:           "  " + body + "  ",
	})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if disp.req.Body != body {
		t.Fatalf("body = %q; want outer trim only, internal spacing intact", disp.req.Body)
	}
}

// ---------- Representatives() ----------

func TestRepresentatives_PickResolutionPath(t *testing.T) {
	res := &fakeResolver{offices: svcOffices()}
	s := NewDeliveryService(nil, res, &fakeDispatcher{})

	got, err := s.Representatives(context.Background(), "user123", "Oakland, CA")
	if err != nil {
		t.Fatalf("Representatives: %v", err)
	}
	if len(got) != 3 || res.userCalls != 1 {
		t.Fatalf("authenticated preview: offices=%d userCalls=%d", len(got), res.userCalls)
	}

	if _, err := s.Representatives(context.Background(), "", "Oakland, CA"); err != nil {
		t.Fatalf("guest Representatives: %v", err)
	}
	if res.addressCalls != 1 {
		t.Fatalf("guest preview must not use the per-user cache; addressCalls=%d", res.addressCalls)
	}
}
