// Package store persists scheduling runs to Postgres, keyed by a generated
// run id: the input configuration in the config jsonb column, and the
// generated schedule, derived statistics and warnings together in the
// result jsonb column.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wisbric/shiftroster/internal/engine"
)

// ErrRunNotFound is returned when a lookup by run id matches no row.
var ErrRunNotFound = errors.New("store: run not found")

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx, letting callers pass
// either a pool or an open transaction.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
}

// Store provides persistence for scheduling runs.
type Store struct {
	dbtx DBTX
}

// NewStore creates a Store backed by the given database connection.
func NewStore(dbtx DBTX) *Store {
	return &Store{dbtx: dbtx}
}

// RunStatus distinguishes a run that produced a schedule from one that
// failed outright.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is a persisted scheduling run.
type Run struct {
	ID         uuid.UUID          `json:"id"`
	Status     RunStatus          `json:"status"`
	Config     *engine.Config     `json:"config"`
	Schedule   engine.Schedule    `json:"schedule,omitempty"`
	Statistics *engine.Statistics `json:"statistics,omitempty"`
	Warnings   []string           `json:"warnings,omitempty"`
	Error      string             `json:"error,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// configDoc and resultDoc are the JSON shapes stored in the config/result
// columns; engine.Config and engine.Schedule are marshalled directly, since
// both round-trip cleanly through encoding/json (time.Time implements
// TextMarshaler, so it works as a map key in Schedule and in Holidays).
type configDoc = engine.Config
type resultDoc struct {
	Schedule   engine.Schedule    `json:"schedule"`
	Statistics *engine.Statistics `json:"statistics"`
	Warnings   []string           `json:"warnings"`
}

// marshalConfig encodes cfg as the JSON document stored in the config column.
func marshalConfig(cfg *engine.Config) ([]byte, error) {
	b, err := json.Marshal((*configDoc)(cfg))
	if err != nil {
		return nil, fmt.Errorf("marshalling run config: %w", err)
	}
	return b, nil
}

// marshalResult encodes result as the JSON document stored in the result
// column.
func marshalResult(result *engine.Result) ([]byte, error) {
	b, err := json.Marshal(resultDoc{
		Schedule:   result.State.Schedule,
		Statistics: &result.Statistics,
		Warnings:   result.Warnings,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling run result: %w", err)
	}
	return b, nil
}

// unmarshalRun decodes the config/result columns back into a Run. row
// carries the scalar fields already populated by the caller.
func unmarshalRun(row *Run, configBytes, resultBytes []byte) error {
	var cfg engine.Config
	if len(configBytes) > 0 {
		if err := json.Unmarshal(configBytes, &cfg); err != nil {
			return fmt.Errorf("unmarshalling run config: %w", err)
		}
	}
	row.Config = &cfg

	var doc resultDoc
	if len(resultBytes) > 0 {
		if err := json.Unmarshal(resultBytes, &doc); err != nil {
			return fmt.Errorf("unmarshalling run result: %w", err)
		}
	}
	row.Schedule = doc.Schedule
	row.Statistics = doc.Statistics
	row.Warnings = doc.Warnings
	return nil
}

// CreateRun inserts a completed run and returns its generated id.
func (s *Store) CreateRun(ctx context.Context, cfg *engine.Config, result *engine.Result) (uuid.UUID, error) {
	configBytes, err := marshalConfig(cfg)
	if err != nil {
		return uuid.Nil, err
	}
	resultBytes, err := marshalResult(result)
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	const query = `
		INSERT INTO runs (id, status, config, result, error, created_at)
		VALUES ($1, $2, $3, $4, '', now())`
	if _, err := s.dbtx.Exec(ctx, query, id, RunStatusCompleted, configBytes, resultBytes); err != nil {
		return uuid.Nil, fmt.Errorf("inserting run: %w", err)
	}
	return id, nil
}

// CreateFailedRun records a run that did not produce a schedule, preserving
// the configuration and the error for later inspection.
func (s *Store) CreateFailedRun(ctx context.Context, cfg *engine.Config, runErr error) (uuid.UUID, error) {
	configBytes, err := marshalConfig(cfg)
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	const query = `
		INSERT INTO runs (id, status, config, result, error, created_at)
		VALUES ($1, $2, $3, '{}', $4, now())`
	if _, err := s.dbtx.Exec(ctx, query, id, RunStatusFailed, configBytes, runErr.Error()); err != nil {
		return uuid.Nil, fmt.Errorf("inserting failed run: %w", err)
	}
	return id, nil
}

// GetRun fetches a run by id.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	const query = `
		SELECT id, status, config, result, error, created_at
		FROM runs WHERE id = $1`
	row := s.dbtx.QueryRow(ctx, query, id)
	return scanRun(row)
}

// ListRuns returns the most recently created runs, newest first, limited to
// limit rows.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, status, config, result, error, created_at
		FROM runs ORDER BY created_at DESC LIMIT $1`
	rows, err := s.dbtx.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*Run, error) {
	var (
		r           Run
		configBytes []byte
		resultBytes []byte
	)
	if err := row.Scan(&r.ID, &r.Status, &configBytes, &resultBytes, &r.Error, &r.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	if err := unmarshalRun(&r, configBytes, resultBytes); err != nil {
		return nil, err
	}
	return &r, nil
}
