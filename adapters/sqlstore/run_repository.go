// Package sqlstore persists runs with sqlx on postgres, or on sqlite for
// local development.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"mcsim/domain/core"
	"mcsim/domain/run"
	"mcsim/domain/summary"
	"mcsim/ports"
)

// runRow mirrors the simulation_runs table. The manifest and summary are
// JSON documents (JSONB on postgres, TEXT on sqlite); the scalar columns
// exist for querying. JSON travels as string because lib/pq sends []byte
// as bytea.
type runRow struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	Formula       string    `db:"formula"`
	Fingerprint   string    `db:"fingerprint"`
	Lanes         int       `db:"lanes"`
	TrialsPerLane int       `db:"trials_per_lane"`
	Seed          int64     `db:"seed"`
	Manifest      string    `db:"manifest"`
	Summary       string    `db:"summary"`
	DurationNS    int64     `db:"duration_ns"`
	CreatedAt     time.Time `db:"created_at"`
	CompletedAt   time.Time `db:"completed_at"`
}

const runColumns = `id, name, formula, fingerprint, lanes, trials_per_lane, seed,
	manifest, summary, duration_ns, created_at, completed_at`

// runRepository implements ports.RunRepository on any sqlx driver with a
// simulation_runs table from internal/migration.
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &runRepository{db: db}
}

// Save inserts a finished run. Runs are immutable, so saving the same ID
// twice is an error.
func (r *runRepository) Save(ctx context.Context, result *run.Result) error {
	row, err := toRow(result)
	if err != nil {
		return err
	}

	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO simulation_runs (`+runColumns+`)
		VALUES (:id, :name, :formula, :fingerprint, :lanes, :trials_per_lane, :seed,
			:manifest, :summary, :duration_ns, :created_at, :completed_at)
	`, row)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID
func (r *runRepository) Get(ctx context.Context, id core.RunID) (*run.Result, error) {
	var row runRow
	query := r.db.Rebind(`SELECT ` + runColumns + ` FROM simulation_runs WHERE id = ?`)
	err := r.db.GetContext(ctx, &row, query, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return fromRow(&row)
}

// List returns the most recent runs; limit <= 0 returns all of them.
func (r *runRepository) List(ctx context.Context, limit int) ([]*run.Result, error) {
	query := `SELECT ` + runColumns + ` FROM simulation_runs ORDER BY created_at DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []runRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	results := make([]*run.Result, 0, len(rows))
	for i := range rows {
		result, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func toRow(result *run.Result) (*runRow, error) {
	m := result.Manifest
	if err := m.Validate(); err != nil {
		return nil, err
	}
	manifestJSON, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}
	return &runRow{
		ID:            m.RunID.String(),
		Name:          m.Name,
		Formula:       m.Formula,
		Fingerprint:   m.Fingerprint.String(),
		Lanes:         m.Lanes,
		TrialsPerLane: m.TrialsPerLane,
		Seed:          m.Seed,
		Manifest:      string(manifestJSON),
		Summary:       string(summaryJSON),
		DurationNS:    int64(result.Duration),
		CreatedAt:     m.CreatedAt.Time(),
		CompletedAt:   result.CompletedAt.Time(),
	}, nil
}

func fromRow(row *runRow) (*run.Result, error) {
	result := &run.Result{
		Duration:    time.Duration(row.DurationNS),
		CompletedAt: core.NewTimestamp(row.CompletedAt),
	}
	if err := json.Unmarshal([]byte(row.Manifest), &result.Manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest for run %s: %w", row.ID, err)
	}
	if row.Summary != "" && row.Summary != "null" {
		var s summary.Summary
		if err := json.Unmarshal([]byte(row.Summary), &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary for run %s: %w", row.ID, err)
		}
		result.Summary = &s
	}
	return result, nil
}
