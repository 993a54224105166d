// Package store records consultation metadata in PostgreSQL. Symptom text is
// never written; only language, outcome, timing and input length.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Skufu/AfyaChecker/internal/advisor"
)

const schema = `
CREATE TABLE IF NOT EXISTS consultations (
	id           UUID PRIMARY KEY,
	created_at   TIMESTAMPTZ NOT NULL,
	language     TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	is_emergency BOOLEAN NOT NULL DEFAULT FALSE,
	cached       BOOLEAN NOT NULL DEFAULT FALSE,
	provider     TEXT NOT NULL DEFAULT '',
	model        TEXT NOT NULL DEFAULT '',
	latency_ms   BIGINT NOT NULL,
	input_length INTEGER NOT NULL
)`

const insertConsultation = `
INSERT INTO consultations
	(id, created_at, language, outcome, is_emergency, cached, provider, model, latency_ms, input_length)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

type Store struct {
	db    DB
	now   func() time.Time
	newID func() uuid.UUID
}

// Connect opens a pool for url and verifies it with a ping.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

func New(db DB) *Store {
	return &Store{db: db, now: time.Now, newID: uuid.New}
}

// EnsureSchema creates the consultations table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Record implements advisor.Recorder.
func (s *Store) Record(ctx context.Context, c advisor.Consultation) error {
	_, err := s.db.Exec(ctx, insertConsultation,
		s.newID(),
		s.now().UTC(),
		string(c.Language),
		c.Outcome,
		c.IsEmergency,
		c.Cached,
		c.Provider,
		c.Model,
		c.Latency.Milliseconds(),
		c.InputLength,
	)
	if err != nil {
		return fmt.Errorf("insert consultation: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}
