package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the tables clerk needs if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}

// pgVector formats a vector as a pgvector literal, e.g. "[0.1,0.2,0.3]".
func pgVector(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS analyses (
		id          UUID PRIMARY KEY,
		document    TEXT NOT NULL,
		clauses     INT NOT NULL,
		unparsed    INT NOT NULL,
		partial     BOOLEAN NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS analysis_clauses (
		analysis_id  UUID NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
		clause_index INT NOT NULL,
		clause_text  TEXT NOT NULL,
		parsed       BOOLEAN NOT NULL,
		reason       TEXT NOT NULL DEFAULT '',
		outcome      JSONB NOT NULL,
		PRIMARY KEY (analysis_id, clause_index)
	)`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id          UUID PRIMARY KEY,
		username    TEXT NOT NULL,
		rating      INT NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comments    TEXT NOT NULL DEFAULT '',
		sentiment   TEXT NOT NULL DEFAULT 'neutral',
		source      TEXT NOT NULL DEFAULT 'api',
		analysis_id TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS memory_fragments (
		collection TEXT NOT NULL,
		id         TEXT NOT NULL,
		text       TEXT NOT NULL,
		metadata   JSONB NOT NULL DEFAULT '{}',
		embedding  vector NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (collection, id)
	)`,
}
