package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AnalysisRow is one analyzed document with its per-clause outcomes.
type AnalysisRow struct {
	ID        uuid.UUID
	Document  string
	Partial   bool
	Unparsed  int
	CreatedAt time.Time
	Clauses   []ClauseRow
}

// ClauseRow stores one clause outcome. Outcome is the JSON rendering of the
// normalized record or of the unparsed sentinel.
type ClauseRow struct {
	Index   int
	Text    string
	Parsed  bool
	Reason  string
	Outcome []byte
}

// WriteAnalysis stores an analysis and its clauses in one transaction.
func (s *Store) WriteAnalysis(ctx context.Context, a AnalysisRow) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO analyses (id, document, clauses, unparsed, partial, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.Document, len(a.Clauses), a.Unparsed, a.Partial, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	for _, c := range a.Clauses {
		_, err = tx.Exec(ctx, `
			INSERT INTO analysis_clauses (analysis_id, clause_index, clause_text, parsed, reason, outcome)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			a.ID, c.Index, c.Text, c.Parsed, c.Reason, string(c.Outcome),
		)
		if err != nil {
			return fmt.Errorf("insert clause %d: %w", c.Index, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetAnalysis fetches an analysis and its clauses in index order.
func (s *Store) GetAnalysis(ctx context.Context, id uuid.UUID) (*AnalysisRow, error) {
	a := AnalysisRow{ID: id}
	err := s.pool.QueryRow(ctx, `
		SELECT document, partial, unparsed, created_at FROM analyses WHERE id = $1`, id,
	).Scan(&a.Document, &a.Partial, &a.Unparsed, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT clause_index, clause_text, parsed, reason, outcome::text
		FROM analysis_clauses WHERE analysis_id = $1 ORDER BY clause_index`, id)
	if err != nil {
		return nil, fmt.Errorf("query clauses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c ClauseRow
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
