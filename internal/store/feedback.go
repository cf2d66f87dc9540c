package store

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/clerk/internal/feedback"
)

func (s *Store) InsertFeedback(ctx context.Context, e feedback.Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO feedback (id, username, rating, comments, sentiment, source, analysis_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Username, e.Rating, e.Comments, e.Sentiment, e.Source, e.AnalysisID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// ListFeedback returns all feedback, oldest first.
func (s *Store) ListFeedback(ctx context.Context) ([]feedback.Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, username, rating, comments, sentiment, source, analysis_id, created_at
		FROM feedback ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	var entries []feedback.Entry
	for rows.Next() {
		var e feedback.Entry
		if err := rows.Scan(&e.ID, &e.Username, &e.Rating, &e.Comments, &e.Sentiment, &e.Source, &e.AnalysisID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return entries, nil
}

func (s *Store) ClearFeedback(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM feedback`); err != nil {
		return fmt.Errorf("clear feedback: %w", err)
	}
	return nil
}
