// Package postgres provides a session.Store backed by Postgres. State is
// stored as one JSONB row per run, written through an OTEL-instrumented
// lib/pq connection.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/XSAM/otelsql"
	"github.com/jmoiron/sqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jensholdgaard/franchise-auction/internal/clock"
	"github.com/jensholdgaard/franchise-auction/internal/config"
	"github.com/jensholdgaard/franchise-auction/internal/session"
)

func init() {
	session.Register("postgres", openPostgres)
}

func openPostgres(ctx context.Context, cfg config.SessionConfig, clk clock.Clock) (session.Store, error) {
	db, err := Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return NewStore(db, clk), nil
}

// Connect opens and verifies a Postgres connection with OTEL instrumentation.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := cfg.DSN()

	// Register the OTel-instrumented driver wrapping lib/pq.
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return nil, fmt.Errorf("registering otel driver: %w", err)
	}

	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// Store implements session.Store with sqlx.
type Store struct {
	db  *sqlx.DB
	clk clock.Clock
}

// NewStore returns a Store over an open connection.
func NewStore(db *sqlx.DB, clk clock.Clock) *Store {
	return &Store{db: db, clk: clk}
}

// Save validates the state and upserts it by run ID.
func (s *Store) Save(ctx context.Context, state *session.StateV1) error {
	if err := state.Validate(); err != nil {
		return err
	}
	state.SavedAt = s.clk.Now().UTC()
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (run_id, state, saved_at) VALUES ($1, $2, $3)
		 ON CONFLICT (run_id) DO UPDATE SET state = EXCLUDED.state, saved_at = EXCLUDED.saved_at`,
		state.RunID, raw, state.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", state.RunID, err)
	}
	return nil
}

// Load fetches and validates the state for runID.
func (s *Store) Load(ctx context.Context, runID string) (*session.StateV1, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw, `SELECT state FROM sessions WHERE run_id = $1`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", runID, err)
	}
	var state session.StateV1
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, &session.RehydrationError{Field: "state", Reason: err.Error()}
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	return &state, nil
}

// Delete removes the state for runID. Deleting an absent run is not an
// error.
func (s *Store) Delete(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("deleting session %s: %w", runID, err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }
