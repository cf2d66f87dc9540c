package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index stores embeddings and answers nearest-neighbour queries. Returned
// fragments carry their cosine distance in Score, ascending.
type Index interface {
	Nearest(ctx context.Context, collection string, embedding []float32, k int) ([]Fragment, error)
	Insert(ctx context.Context, collection, id, text string, metadata map[string]any, embedding []float32) error
}

// VectorStore is a Store that embeds text and delegates to an Index. Appends
// whose nearest neighbour is closer than dedupDistance are skipped.
type VectorStore struct {
	embedder      Embedder
	index         Index
	dedupDistance float64
	logger        *slog.Logger
}

func NewVectorStore(embedder Embedder, index Index, dedupDistance float64, logger *slog.Logger) *VectorStore {
	return &VectorStore{
		embedder:      embedder,
		index:         index,
		dedupDistance: dedupDistance,
		logger:        logger,
	}
}

func (s *VectorStore) Search(ctx context.Context, collection, text string, k int) ([]Fragment, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	frags, err := s.index.Nearest(ctx, collection, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}
	return frags, nil
}

// SearchAll embeds text once and searches every collection with the same
// vector.
func (s *VectorStore) SearchAll(ctx context.Context, collections []string, text string, k int) ([]Fragment, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var all []Fragment
	var errs []error
	for _, col := range collections {
		frags, err := s.index.Nearest(ctx, col, vec, k)
		if err != nil {
			errs = append(errs, fmt.Errorf("search %s: %w", col, err))
			continue
		}
		all = append(all, frags...)
	}
	return all, errors.Join(errs...)
}

func (s *VectorStore) Append(ctx context.Context, collection, id, text string, metadata map[string]any) error {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed fragment: %w", err)
	}

	if s.dedupDistance > 0 {
		nearest, err := s.index.Nearest(ctx, collection, vec, 1)
		if err != nil {
			return fmt.Errorf("dedup lookup: %w", err)
		}
		if len(nearest) > 0 && nearest[0].Score < s.dedupDistance {
			s.logger.Debug("skipping near-duplicate fragment",
				"collection", collection, "id", id, "duplicate_of", nearest[0].ID,
				"distance", nearest[0].Score)
			return nil
		}
	}

	if err := s.index.Insert(ctx, collection, id, text, metadata, vec); err != nil {
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	return nil
}
