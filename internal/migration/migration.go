package migration

import (
	"context"

	"mcsim/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Statements returns the DDL for a sqlx driver name ("postgres" or
// "sqlite3") in execution order. Every statement is idempotent.
func (r *MigrationRunner) Statements(driver string) []string {
	idType, jsonType, tsType, now := "UUID", "JSONB", "TIMESTAMP WITH TIME ZONE", "NOW()"
	if driver == "sqlite3" {
		idType, jsonType, tsType, now = "TEXT", "TEXT", "TIMESTAMP", "CURRENT_TIMESTAMP"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS simulation_runs (
			id ` + idType + ` PRIMARY KEY,
			name VARCHAR(255) NOT NULL DEFAULT '',
			formula TEXT NOT NULL,
			fingerprint CHAR(64) NOT NULL,
			lanes INTEGER NOT NULL CHECK (lanes > 0),
			trials_per_lane INTEGER NOT NULL CHECK (trials_per_lane > 0),
			seed BIGINT NOT NULL,
			manifest ` + jsonType + ` NOT NULL,
			summary ` + jsonType + ` NOT NULL,
			duration_ns BIGINT NOT NULL DEFAULT 0,
			created_at ` + tsType + ` NOT NULL DEFAULT ` + now + `,
			completed_at ` + tsType + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_simulation_runs_created_at ON simulation_runs(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_simulation_runs_fingerprint ON simulation_runs(fingerprint)`,
	}
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin migration")
	}
	defer tx.Rollback()

	for _, stmt := range r.Statements(db.DriverName()) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create simulation_runs schema"))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit migration")
	}
	return nil
}
