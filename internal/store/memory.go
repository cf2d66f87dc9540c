package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MikeSquared-Agency/clerk/internal/memory"
)

// Nearest returns the k fragments of collection closest to embedding by
// pgvector cosine distance, ascending.
func (s *Store) Nearest(ctx context.Context, collection string, embedding []float32, k int) ([]memory.Fragment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, text, metadata::text, embedding <=> $2::vector AS distance
		FROM memory_fragments
		WHERE collection = $1
		ORDER BY distance
		LIMIT $3`,
		collection, pgVector(embedding), k,
	)
	if err != nil {
		return nil, fmt.Errorf("query fragments: %w", err)
	}
	defer rows.Close()

	var frags []memory.Fragment
	for rows.Next() {
		f := memory.Fragment{Collection: collection}
		var meta string
		if err := rows.Scan(&f.ID, &f.Text, &meta, &f.Score); err != nil {
			return nil, fmt.Errorf("scan fragment: %w", err)
		}
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &f.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", f.ID, err)
			}
		}
		frags = append(frags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return frags, nil
}

// Insert stores a fragment, replacing any previous fragment with the same id.
func (s *Store) Insert(ctx context.Context, collection, id, text string, metadata map[string]any, embedding []float32) error {
	meta := []byte("{}")
	if len(metadata) > 0 {
		var err error
		if meta, err = json.Marshal(metadata); err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO memory_fragments (collection, id, text, metadata, embedding)
		VALUES ($1, $2, $3, $4::jsonb, $5::vector)
		ON CONFLICT (collection, id) DO UPDATE
		SET text = EXCLUDED.text, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding`,
		collection, id, text, string(meta), pgVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("upsert fragment: %w", err)
	}
	return nil
}

// CountFragments returns the number of fragments stored in collection.
func (s *Store) CountFragments(ctx context.Context, collection string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM memory_fragments WHERE collection = $1`, collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("count fragments: %w", err)
	}
	return n, nil
}
