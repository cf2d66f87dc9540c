package memory

import (
	"context"
	"log/slog"
	"sort"
)

// Collections used by clerk.
const (
	CollectionLaw          = "law_summaries"
	CollectionNegotiations = "negotiation_cases"
	CollectionFeedback     = "feedback"
	CollectionClauses      = "reviewed_clauses"
)

// Fragment is a stored text snippet returned by a query. Score is the cosine
// distance to the query: lower is more similar and 0 means identical.
type Fragment struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Score      float64        `json:"score"`
}

// Store is a searchable, append-only fragment store.
type Store interface {
	Search(ctx context.Context, collection, text string, k int) ([]Fragment, error)
	Append(ctx context.Context, collection, id, text string, metadata map[string]any) error
}

// MultiSearcher is implemented by stores that can answer one query text
// against several collections more cheaply than repeated Search calls. A
// failing collection is skipped; its error is returned alongside the
// fragments found in the others.
type MultiSearcher interface {
	SearchAll(ctx context.Context, collections []string, text string, k int) ([]Fragment, error)
}

// Client fronts a Store and turns read failures into empty results. A nil
// Client, or one without a store, behaves as an empty memory.
type Client struct {
	store  Store
	logger *slog.Logger
}

func NewClient(store Store, logger *slog.Logger) *Client {
	return &Client{store: store, logger: logger}
}

// Query returns up to k fragments from collection, most similar first.
func (c *Client) Query(ctx context.Context, collection, text string, k int) []Fragment {
	if c == nil || c.store == nil || k <= 0 || text == "" {
		return nil
	}
	frags, err := c.store.Search(ctx, collection, text, k)
	if err != nil {
		c.logger.Warn("memory query failed, continuing without context",
			"collection", collection, "error", err)
		return nil
	}
	if len(frags) > k {
		frags = frags[:k]
	}
	return frags
}

// QueryAll queries each collection and returns the k most similar fragments
// across all of them.
func (c *Client) QueryAll(ctx context.Context, collections []string, text string, k int) []Fragment {
	if c == nil || c.store == nil || k <= 0 || text == "" || len(collections) == 0 {
		return nil
	}

	var all []Fragment
	if ms, ok := c.store.(MultiSearcher); ok {
		frags, err := ms.SearchAll(ctx, collections, text, k)
		if err != nil {
			c.logger.Warn("memory query failed, continuing with what was found",
				"collections", collections, "found", len(frags), "error", err)
		}
		all = frags
	} else {
		for _, col := range collections {
			all = append(all, c.Query(ctx, col, text, k)...)
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score < all[j].Score })
	if len(all) > k {
		all = all[:k]
	}
	return all
}

// Append stores text under id. Unlike Query, failures are returned.
func (c *Client) Append(ctx context.Context, collection, id, text string, metadata map[string]any) error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Append(ctx, collection, id, text, metadata)
}

// Enabled reports whether a backing store is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.store != nil
}
