package repo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
)

func TestOpenSQLite_MissingParentDirFailsFast(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "does-not-exist", "app.db")

	db, err := OpenSQLite(bad)
	if err == nil || db != nil {
		t.Fatalf("expected error opening %q, got db=%v err=%v", bad, db, err)
	}

	// The exact error differs by platform and driver; accept the usual forms.
	lower := strings.ToLower(err.Error())
	ok := os.IsNotExist(err) ||
		strings.Contains(lower, "unable to open database file") ||
		strings.Contains(lower, "no such file or directory") ||
		strings.Contains(lower, "out of memory")
	if !ok {
		t.Fatalf("unexpected error opening %q: %v", bad, err)
	}
}

func TestOpenSQLite_PragmasPoolAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	var journalMode string
	if err := db.Raw("PRAGMA journal_mode;").Row().Scan(&journalMode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if strings.ToLower(journalMode) != "wal" {
		t.Fatalf("expected journal_mode=wal, got %q", journalMode)
	}

	intPragmas := []struct {
		stmt string
		want int
	}{
		{"PRAGMA synchronous;", 1}, // NORMAL
		{"PRAGMA foreign_keys;", 1},
		{"PRAGMA busy_timeout;", 5000},
	}
	for _, p := range intPragmas {
		var got int
		if err := db.Raw(p.stmt).Row().Scan(&got); err != nil {
			t.Fatalf("%s: %v", p.stmt, err)
		}
		if got != p.want {
			t.Fatalf("%s = %d, want %d", p.stmt, got, p.want)
		}
	}

	if stats := sqlDB.Stats(); stats.MaxOpenConnections != maxOpenConns {
		t.Fatalf("expected MaxOpenConnections=%d, got %d", maxOpenConns, stats.MaxOpenConnections)
	}

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	m := db.Migrator()
	for _, tbl := range []any{
		&domain.DeliveryRequest{}, &domain.Job{}, &domain.SubmissionAttempt{},
		&domain.Office{}, &domain.UserOffice{}, &domain.SubmissionDedup{}, &domain.Idempotency{},
	} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}

	// An insert round-trip across the hot tables proves the schema is usable.
	now := time.Now().UTC()
	uid := "u1"
	req := &domain.DeliveryRequest{
		ID: "r1", TemplateID: "climate", UserID: &uid,
		Subject: "s", Body: "b", RoutingAddress: "congress+climate-u1", CreatedAt: now,
	}
	if err := db.Create(req).Error; err != nil {
		t.Fatalf("insert delivery request: %v", err)
	}
	job := &domain.Job{ID: "j1", DeliveryRequestID: "r1", State: domain.JobStateQueued, ExpectedCount: 3, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("insert job: %v", err)
	}
	idem := &domain.Idempotency{ID: "i1", Key: "k1", UserID: "u1", JobID: "j1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(idem).Error; err != nil {
		t.Fatalf("insert idempotency: %v", err)
	}

	var got domain.Job
	if err := db.First(&got, "id = ?", "j1").Error; err != nil || got.State != domain.JobStateQueued {
		t.Fatalf("readback job failed: err=%v got=%+v", err, got)
	}
}
