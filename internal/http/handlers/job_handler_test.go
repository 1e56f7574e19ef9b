package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
	"github.com/tbourn/go-advocacy-backend/internal/repo"
	"github.com/tbourn/go-advocacy-backend/internal/services"
)

// ---------- test DB + seed helpers ----------

func newJobDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:job_handlers_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(
		&domain.DeliveryRequest{}, &domain.Job{}, &domain.SubmissionAttempt{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func strp(s string) *string { return &s }

// seedJob creates a delivery request owned by userID with one job in the given
// state, plus n successful attempts.
func seedJob(t *testing.T, db *gorm.DB, userID string, state domain.JobState, expected, attempts int) *domain.Job {
	t.Helper()

	dr := &domain.DeliveryRequest{
		ID:             uuid.NewString(),
		TemplateID:     "climate",
		UserID:         strp(userID),
		Subject:        "s",
		Body:           "b",
		RoutingAddress: "congress+climate-" + userID,
	}
	if err := db.Create(dr).Error; err != nil {
		t.Fatalf("seed request: %v", err)
	}

	job := &domain.Job{
		ID:                uuid.NewString(),
		DeliveryRequestID: dr.ID,
		State:             state,
		ExpectedCount:     expected,
	}
	if state.Terminal() {
		now := time.Now().UTC()
		job.CompletedAt = &now
	}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}

	for i := 0; i < attempts; i++ {
		att := &domain.SubmissionAttempt{
			ID:                uuid.NewString(),
			JobID:             job.ID,
			OfficeID:          fmt.Sprintf("H-CA-%02d", i+1),
			Chamber:           domain.ChamberHouse,
			Outcome:           domain.OutcomeSuccess,
			ExternalMessageID: strp(fmt.Sprintf("ext-%d", i+1)),
			CreatedAt:         time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
		}
		if err := db.Create(att).Error; err != nil {
			t.Fatalf("seed attempt: %v", err)
		}
	}
	return job
}

// ---------- GetJob ----------

func TestGetJob_BadUUID_NotFound_Forbidden_Internal(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// bad UUID
	{
		h := New(stubDeliverySvc{}, stubJobSvc{}, 0)
		r := gin.New()
		r.GET("/jobs/:id", h.GetJob)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/jobs/not-uuid", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("uuid 400 -> %d", w.Code)
		}
	}

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", services.ErrJobNotFound, http.StatusNotFound},
		{"forbidden", services.ErrJobForbidden, http.StatusForbidden},
		{"internal", gorm.ErrInvalidField, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := stubJobSvc{
				status: func(context.Context, string, string) (*services.JobStatus, error) {
					return nil, tc.err
				},
			}
			h := New(stubDeliverySvc{}, svc, 0)
			r := gin.New()
			r.GET("/jobs/:id", h.GetJob)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/jobs/"+uuid.NewString(), nil)
			req.Header.Set("X-User-ID", "u1")
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("%s -> %d want %d", tc.name, w.Code, tc.want)
			}
		})
	}
}

func TestGetJob_Success_and_ETag304(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newJobDB(t)
	job := seedJob(t, db, "u1", domain.JobStateCompleted, 2, 2)

	svc := services.NewJobService(db)
	h := New(stubDeliverySvc{}, svc, 0)
	r := gin.New()
	r.GET("/jobs/:id", h.GetJob)

	// 200 with the full status view
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/"+job.ID, nil)
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get 200 -> %d body=%s", w.Code, w.Body.String())
	}
	if w.Header().Get("ETag") == "" {
		t.Fatalf("expected ETag header")
	}
	var out JobStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.JobID != job.ID || out.State != domain.JobStateCompleted {
		t.Fatalf("unexpected status: %#v", out)
	}
	if out.ExpectedCount != 2 || out.ProgressPercent != 100 || len(out.Attempts) != 2 {
		t.Fatalf("attempt view mismatch: %#v", out)
	}
	if out.CompletedAt == nil {
		t.Fatalf("terminal job must carry completed_at")
	}

	// Compute the expected ETag the way the handler does
	state, attempts, updatedAt, err := repo.JobStats(context.Background(), db, job.ID, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	etag := fmt.Sprintf(`W/"job:%s:%s:%d:%d"`, job.ID, state, attempts, updatedAt.Unix())

	// 304 path
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/jobs/"+job.ID, nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("etag 304 -> %d", w.Code)
	}
}

func TestGetJob_ForeignSender_NoConditionalLeak(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newJobDB(t)
	job := seedJob(t, db, "u1", domain.JobStateProcessing, 3, 1)

	svc := services.NewJobService(db)
	h := New(stubDeliverySvc{}, svc, 0)
	r := gin.New()
	r.GET("/jobs/:id", h.GetJob)

	// Owner-computed ETag in a foreign request must not produce a 304.
	state, attempts, updatedAt, err := repo.JobStats(context.Background(), db, job.ID, "u1")
	if err != nil {
		t.Fatalf("owner stats: %v", err)
	}
	etag := fmt.Sprintf(`W/"job:%s:%s:%d:%d"`, job.ID, state, attempts, updatedAt.Unix())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/"+job.ID, nil)
	req.Header.Set("X-User-ID", "u2")
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign sender -> %d want 403", w.Code)
	}
	if w.Header().Get("ETag") != "" {
		t.Fatalf("foreign sender must not receive an ETag")
	}
}

// ---------- ListJobs ----------

func TestListJobs_ETag304_and_SuccessPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newJobDB(t)
	seedJob(t, db, "u1", domain.JobStateCompleted, 1, 1)
	seedJob(t, db, "u1", domain.JobStateQueued, 2, 0)

	svc := services.NewJobService(db)
	h := New(stubDeliverySvc{}, svc, 0)
	r := gin.New()
	r.GET("/jobs", h.ListJobs)

	// Compute expected ETag
	count, maxTS, err := repo.JobsStats(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var ts int64
	if maxTS != nil {
		ts = maxTS.Unix()
	}
	etag := fmt.Sprintf(`W/"jobs:%s:%d:%d"`, "u1", count, ts)

	// 304 path
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("etag 304 -> %d", w.Code)
	}

	// 200 success with pagination
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/jobs?page=1&page_size=1", nil)
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list 200 -> %d body=%s", w.Code, w.Body.String())
	}
	var out ListJobsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Pagination.Page != 1 || out.Pagination.PageSize != 1 || out.Pagination.Total != count {
		t.Fatalf("pagination mismatch: %#v", out.Pagination)
	}
	if out.Pagination.TotalPages != 2 || out.Pagination.HasNext != true {
		t.Fatalf("pages/hasnext mismatch: %#v", out.Pagination)
	}
	if len(out.Jobs) != 1 {
		t.Fatalf("expected 1 job on page 1")
	}

	// Another sender sees an empty page, not u1's jobs.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("X-User-ID", "u2")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list other -> %d", w.Code)
	}
	var other ListJobsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &other); err != nil {
		t.Fatalf("json: %v", err)
	}
	if other.Pagination.Total != 0 || len(other.Jobs) != 0 {
		t.Fatalf("cross-sender leak: %#v", other)
	}
}

func TestListJobs_ServiceError_500(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := stubJobSvc{
		listPage: func(context.Context, string, int, int) ([]domain.Job, int64, error) {
			return nil, 0, gorm.ErrInvalidDB
		},
	}
	h := New(stubDeliverySvc{}, svc, 0)
	r := gin.New()
	r.GET("/jobs", h.ListJobs)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("error -> %d", w.Code)
	}
}
