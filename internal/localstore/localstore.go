// Package localstore keeps feedback and analysis history in a SQLite file
// when no Postgres database is configured.
package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/MikeSquared-Agency/clerk/internal/feedback"
	"github.com/MikeSquared-Agency/clerk/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS feedback (
	id          TEXT PRIMARY KEY,
	username    TEXT NOT NULL,
	rating      INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
	comments    TEXT NOT NULL DEFAULT '',
	sentiment   TEXT NOT NULL DEFAULT 'neutral',
	source      TEXT NOT NULL DEFAULT 'api',
	analysis_id TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_created ON feedback(created_at);

CREATE TABLE IF NOT EXISTS analyses (
	id         TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	clauses    INTEGER NOT NULL,
	unparsed   INTEGER NOT NULL,
	partial    INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS analysis_clauses (
	analysis_id  TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
	clause_index INTEGER NOT NULL,
	clause_text  TEXT NOT NULL,
	parsed       INTEGER NOT NULL,
	reason       TEXT NOT NULL DEFAULT '',
	outcome      TEXT NOT NULL,
	PRIMARY KEY (analysis_id, clause_index)
);
`

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path and ensures its schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) InsertFeedback(ctx context.Context, e feedback.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, username, rating, comments, sentiment, source, analysis_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Username, e.Rating, e.Comments, e.Sentiment, e.Source, e.AnalysisID,
		e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// ListFeedback returns all feedback, oldest first.
func (s *Store) ListFeedback(ctx context.Context) ([]feedback.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, rating, comments, sentiment, source, analysis_id, created_at
		FROM feedback ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	var entries []feedback.Entry
	for rows.Next() {
		var e feedback.Entry
		var id, created string
		if err := rows.Scan(&id, &e.Username, &e.Rating, &e.Comments, &e.Sentiment, &e.Source, &e.AnalysisID, &created); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse feedback id %q: %w", id, err)
		}
		if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", created, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return entries, nil
}

func (s *Store) ClearFeedback(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM feedback`); err != nil {
		return fmt.Errorf("clear feedback: %w", err)
	}
	return nil
}

// WriteAnalysis stores an analysis and its clauses in one transaction.
func (s *Store) WriteAnalysis(ctx context.Context, a store.AnalysisRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analyses (id, document, clauses, unparsed, partial, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.Document, len(a.Clauses), a.Unparsed, a.Partial,
		a.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	for _, c := range a.Clauses {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO analysis_clauses (analysis_id, clause_index, clause_text, parsed, reason, outcome)
			VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID.String(), c.Index, c.Text, c.Parsed, c.Reason, string(c.Outcome),
		)
		if err != nil {
			return fmt.Errorf("insert clause %d: %w", c.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetAnalysis fetches an analysis and its clauses in index order.
func (s *Store) GetAnalysis(ctx context.Context, id uuid.UUID) (*store.AnalysisRow, error) {
	a := store.AnalysisRow{ID: id}
	var created string
	err := s.db.QueryRowContext(ctx, `
		SELECT document, partial, unparsed, created_at FROM analyses WHERE id = ?`, id.String(),
	).Scan(&a.Document, &a.Partial, &a.Unparsed, &created)
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	if a.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", created, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT clause_index, clause_text, parsed, reason, outcome
		FROM analysis_clauses WHERE analysis_id = ? ORDER BY clause_index`, id.String())
	if err != nil {
		return nil, fmt.Errorf("query clauses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c store.ClauseRow
		var outcome string
		if err := rows.Scan(&c.Index, &c.Text, &c.Parsed, &c.Reason, &outcome); err != nil {
			return nil, fmt.Errorf("scan clause: %w", err)
		}
		c.Outcome = []byte(outcome)
		a.Clauses = append(a.Clauses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return &a, nil
}
