package domain

import (
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Enforce FKs so cascades actually execute.
	db.Exec("PRAGMA foreign_keys=ON;")
	return db
}

func strptr(s string) *string { return &s }

func TestTableNames(t *testing.T) {
	cases := []struct {
		model interface{ TableName() string }
		want  string
	}{
		{DeliveryRequest{}, "delivery_requests"},
		{Job{}, "jobs"},
		{SubmissionAttempt{}, "submission_attempts"},
		{Office{}, "offices"},
		{UserOffice{}, "user_offices"},
		{SubmissionDedup{}, "submission_dedup"},
		{Idempotency{}, "idempotency"},
	}
	for _, c := range cases {
		if got := c.model.TableName(); got != c.want {
			t.Fatalf("%T.TableName() = %q; want %q", c.model, got, c.want)
		}
	}
}

func TestJobStateTerminal(t *testing.T) {
	terminal := []JobState{JobStateCompleted, JobStatePartial, JobStateFailed}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("expected %q to be terminal", s)
		}
	}
	open := []JobState{JobStateQueued, JobStateProcessing, JobState("")}
	for _, s := range open {
		if s.Terminal() {
			t.Fatalf("expected %q to be non-terminal", s)
		}
	}
}

func TestDedupDay_UTC(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("UTC-5", -5*60*60)
	ts := time.Date(2025, 3, 1, 23, 30, 0, 0, loc)
	if got := DedupDay(ts); got != "2025-03-02" {
		t.Fatalf("DedupDay = %q; want %q", got, "2025-03-02")
	}
	if got := DedupDay(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)); got != "2025-03-01" {
		t.Fatalf("DedupDay = %q; want %q", got, "2025-03-01")
	}
}

func TestDeliveryRequestSenderID(t *testing.T) {
	auth := DeliveryRequest{UserID: strptr("u1")}
	if got := auth.SenderID(); got != "u1" {
		t.Fatalf("SenderID = %q; want u1", got)
	}
	guest := DeliveryRequest{SessionToken: strptr("sess-9")}
	if got := guest.SenderID(); got != "sess-9" {
		t.Fatalf("SenderID = %q; want sess-9", got)
	}
	if got := (DeliveryRequest{}).SenderID(); got != "" {
		t.Fatalf("SenderID = %q; want empty", got)
	}
}

func TestMigrations_Indexes_AndCascades(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(
		&DeliveryRequest{}, &Job{}, &SubmissionAttempt{},
		&Office{}, &UserOffice{}, &SubmissionDedup{}, &Idempotency{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()

	// Tables exist
	for _, tbl := range []any{
		&DeliveryRequest{}, &Job{}, &SubmissionAttempt{},
		&Office{}, &UserOffice{}, &SubmissionDedup{}, &Idempotency{},
	} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}

	// Indexes from tags exist
	if !m.HasIndex(&Job{}, "ux_job_delivery_request") {
		t.Fatalf("expected unique index ux_job_delivery_request on jobs")
	}
	if !m.HasIndex(&SubmissionAttempt{}, "idx_job_attempts") {
		t.Fatalf("expected index idx_job_attempts on submission_attempts")
	}
	if !m.HasIndex(&UserOffice{}, "ux_user_office") {
		t.Fatalf("expected unique index ux_user_office on user_offices")
	}
	if !m.HasIndex(&SubmissionDedup{}, "ux_submission_dedup") {
		t.Fatalf("expected unique index ux_submission_dedup on submission_dedup")
	}

	now := time.Now().UTC()

	dr := &DeliveryRequest{
		ID: "dr1", TemplateID: "tpl-1", UserID: strptr("u1"),
		Subject: "S", Body: "B", RoutingAddress: "congress+tpl-1-u1", CreatedAt: now,
	}
	if err := db.Create(dr).Error; err != nil {
		t.Fatalf("insert delivery request: %v", err)
	}

	job := &Job{ID: "j1", DeliveryRequestID: "dr1", State: JobStateQueued, ExpectedCount: 2, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("insert job: %v", err)
	}

	// One live job per delivery request.
	dup := &Job{ID: "j2", DeliveryRequestID: "dr1", State: JobStateQueued, ExpectedCount: 2, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected unique violation for second job on same delivery request")
	}

	a1 := &SubmissionAttempt{ID: "a1", JobID: "j1", OfficeID: "H-CA-12", Chamber: ChamberHouse, Outcome: OutcomeSuccess, CreatedAt: now}
	a2 := &SubmissionAttempt{ID: "a2", JobID: "j1", OfficeID: "S-CA-1", Chamber: ChamberSenate, Outcome: OutcomeError, ErrorDetail: strptr("boom"), CreatedAt: now.Add(time.Second)}
	if err := db.Create(a1).Error; err != nil {
		t.Fatalf("insert a1: %v", err)
	}
	if err := db.Create(a2).Error; err != nil {
		t.Fatalf("insert a2: %v", err)
	}

	// CASCADE: deleting a job removes its attempts.
	if err := db.Delete(&Job{}, "id = ?", "j1").Error; err != nil {
		t.Fatalf("delete job: %v", err)
	}
	var cnt int64
	if err := db.Model(&SubmissionAttempt{}).Where("job_id = ?", "j1").Count(&cnt).Error; err != nil {
		t.Fatalf("count attempts after job delete: %v", err)
	}
	if cnt != 0 {
		t.Fatalf("expected attempts to cascade-delete when job deleted, got count=%d", cnt)
	}
}

func TestDeliveryRequest_SenderConstraint(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&DeliveryRequest{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	now := time.Now().UTC()

	// Neither user id nor session token set: rejected.
	bad := &DeliveryRequest{ID: "dr-bad", TemplateID: "tpl", Subject: "s", Body: "b", RoutingAddress: "r", CreatedAt: now}
	if err := db.Create(bad).Error; err == nil {
		t.Fatalf("expected check violation for delivery request without sender identity")
	}

	// Both set: rejected.
	both := &DeliveryRequest{
		ID: "dr-both", TemplateID: "tpl", UserID: strptr("u"), SessionToken: strptr("s"),
		Subject: "s", Body: "b", RoutingAddress: "r", CreatedAt: now,
	}
	if err := db.Create(both).Error; err == nil {
		t.Fatalf("expected check violation for delivery request with both identities")
	}

	guest := &DeliveryRequest{
		ID: "dr-guest", TemplateID: "tpl", SessionToken: strptr("sess"),
		Subject: "s", Body: "b", RoutingAddress: "r", CreatedAt: now,
	}
	if err := db.Create(guest).Error; err != nil {
		t.Fatalf("insert guest delivery request: %v", err)
	}
}

func TestSubmissionDedup_UniqueTuple(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&SubmissionDedup{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	now := time.Now().UTC()
	day := DedupDay(now)

	first := &SubmissionDedup{ID: "d1", TemplateID: "tpl", OfficeID: "H-CA-12", UserID: "u1", Day: day, CreatedAt: now}
	if err := db.Create(first).Error; err != nil {
		t.Fatalf("insert dedup: %v", err)
	}
	second := &SubmissionDedup{ID: "d2", TemplateID: "tpl", OfficeID: "H-CA-12", UserID: "u1", Day: day, CreatedAt: now}
	if err := db.Create(second).Error; err == nil {
		t.Fatalf("expected unique violation for same dedup tuple")
	}
	// Different office on the same day is fine.
	third := &SubmissionDedup{ID: "d3", TemplateID: "tpl", OfficeID: "S-CA-1", UserID: "u1", Day: day, CreatedAt: now}
	if err := db.Create(third).Error; err != nil {
		t.Fatalf("insert dedup for second office: %v", err)
	}
}
