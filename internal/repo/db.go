// Package repo implements the delivery data layer on GORM. This file covers
// the SQLite bootstrap: opening the database, applying the startup pragmas,
// sizing the connection pool, and running the schema migrations.
package repo

import (
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
)

// Connection pool bounds for the embedded database.
const (
	maxOpenConns    = 10
	maxIdleConns    = 10
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute
)

// startupPragmas run on every open. WAL keeps readers from blocking the
// writer; busy_timeout covers the dispatcher workers sharing one file.
var startupPragmas = []string{
	"PRAGMA journal_mode=WAL;",
	"PRAGMA synchronous=NORMAL;",
	"PRAGMA foreign_keys=ON;",
	"PRAGMA busy_timeout=5000;",
}

// OpenSQLite opens (or creates) the database at path and prepares it for use.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Stat the parent directory first; the driver reports a missing one as
	// "out of memory (14)" on some platforms.
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Query spans ride on the global tracer provider; a no-op provider
	// keeps this free when OTel is disabled.
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	for _, p := range startupPragmas {
		db.Exec(p)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetMaxIdleConns(maxIdleConns)
		sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
		sqlDB.SetConnMaxLifetime(connMaxLifetime)
	}

	return db, nil
}

// AutoMigrate creates or updates the schema for every persisted entity.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.DeliveryRequest{},
		&domain.Job{},
		&domain.SubmissionAttempt{},
		&domain.Office{},
		&domain.UserOffice{},
		&domain.SubmissionDedup{},
		&domain.Idempotency{},
	)
}
