// Package history persists a record of each process_file run (spec.md
// section 12, run manifest/history) to PostgreSQL via
// github.com/jmoiron/sqlx and github.com/lib/pq, the driver/query style
// the teacher uses for its own run/version history tables.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"egress/internal/config"
)

// Run is one recorded process_file invocation plus its downstream
// analysis outcome, if computed before the run was closed out.
type Run struct {
	ID              string    `db:"id"`
	CreatedAt       time.Time `db:"created_at"`
	SourceName      string    `db:"source_name"`
	CellSize        float64   `db:"cell_size"`
	BufferRadius    int       `db:"buffer_radius"`
	Floors          int       `db:"floors"`
	Rescaled        bool      `db:"rescaled"`
	GeometryFailures int      `db:"geometry_failures"`
	SpaceCount      int       `db:"space_count"`
	ExitCount       int       `db:"exit_count"`
	ViolationCounts []byte    `db:"violation_counts"` // JSONB: {"general":n,"daytime":n,"nighttime":n}
	Manifest        []byte    `db:"manifest"`          // JSONB: full run manifest, see internal/manifest
}

// ViolationCounts is the decoded shape of Run.ViolationCounts.
type ViolationCounts struct {
	General   int `json:"general"`
	Daytime   int `json:"daytime"`
	Nighttime int `json:"nighttime"`
}

// Store records and retrieves run history.
type Store interface {
	RecordRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// PostgresStore implements Store against a PostgreSQL run_history table.
type PostgresStore struct {
	db *sqlx.DB
}

// Open connects to PostgreSQL using cfg and configures the pool per
// cfg.Database's limits.
func Open(cfg config.DatabaseConfig) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// EnsureSchema creates the run_history table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS run_history (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		source_name VARCHAR(255) NOT NULL,
		cell_size DOUBLE PRECISION NOT NULL,
		buffer_radius INTEGER NOT NULL,
		floors INTEGER NOT NULL,
		rescaled BOOLEAN NOT NULL DEFAULT FALSE,
		geometry_failures INTEGER NOT NULL DEFAULT 0,
		space_count INTEGER NOT NULL DEFAULT 0,
		exit_count INTEGER NOT NULL DEFAULT 0,
		violation_counts JSONB,
		manifest JSONB
	);
	CREATE INDEX IF NOT EXISTS idx_run_history_created_at ON run_history(created_at DESC);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("history: ensure schema: %w", err)
	}
	return nil
}

// RecordRun inserts one run record.
func (s *PostgresStore) RecordRun(ctx context.Context, run Run) error {
	const query = `
		INSERT INTO run_history (
			source_name, cell_size, buffer_radius, floors, rescaled,
			geometry_failures, space_count, exit_count, violation_counts, manifest
		) VALUES (
			:source_name, :cell_size, :buffer_radius, :floors, :rescaled,
			:geometry_failures, :space_count, :exit_count, :violation_counts, :manifest
		)`
	if _, err := s.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("history: record run: %w", err)
	}
	return nil
}

// GetRun fetches a run record by id.
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.db.GetContext(ctx, &run, "SELECT * FROM run_history WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("history: get run %s: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	err := s.db.SelectContext(ctx, &runs, "SELECT * FROM run_history ORDER BY created_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	return runs, nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// EncodeViolationCounts marshals counts for the violation_counts column.
func EncodeViolationCounts(v ViolationCounts) []byte {
	b, _ := json.Marshal(v)
	return b
}
