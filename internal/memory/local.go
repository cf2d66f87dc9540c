package memory

import (
	"context"
	"math"
	"sort"
	"sync"
)

type localEntry struct {
	id        string
	text      string
	metadata  map[string]any
	embedding []float32
}

// LocalIndex is an in-process Index with exact cosine search. It backs the
// CLI when no database is configured.
type LocalIndex struct {
	mu          sync.RWMutex
	collections map[string][]localEntry
}

func NewLocalIndex() *LocalIndex {
	return &LocalIndex{collections: make(map[string][]localEntry)}
}

func (ix *LocalIndex) Nearest(_ context.Context, collection string, embedding []float32, k int) ([]Fragment, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	entries := ix.collections[collection]
	frags := make([]Fragment, 0, len(entries))
	for _, e := range entries {
		frags = append(frags, Fragment{
			ID:         e.id,
			Collection: collection,
			Text:       e.text,
			Metadata:   e.metadata,
			Score:      CosineDistance(embedding, e.embedding),
		})
	}
	sort.SliceStable(frags, func(i, j int) bool { return frags[i].Score < frags[j].Score })
	if len(frags) > k {
		frags = frags[:k]
	}
	return frags, nil
}

func (ix *LocalIndex) Insert(_ context.Context, collection, id, text string, metadata map[string]any, embedding []float32) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	entries := ix.collections[collection]
	for i := range entries {
		if entries[i].id == id {
			entries[i] = localEntry{id: id, text: text, metadata: metadata, embedding: embedding}
			return nil
		}
	}
	ix.collections[collection] = append(entries, localEntry{id: id, text: text, metadata: metadata, embedding: embedding})
	return nil
}

// CosineDistance returns 1 - cosine similarity. Mismatched or zero vectors
// are maximally distant.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
