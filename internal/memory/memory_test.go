package memory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// keywordEmbedder maps text onto a fixed vocabulary, one dimension per word.
type keywordEmbedder struct {
	vocab []string
	err   error
	calls int
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	vec := make([]float32, len(e.vocab))
	lower := strings.ToLower(text)
	for i, w := range e.vocab {
		if strings.Contains(lower, w) {
			vec[i] = 1
		}
	}
	return vec, nil
}

type failingStore struct{}

func (failingStore) Search(context.Context, string, string, int) ([]Fragment, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Append(context.Context, string, string, string, map[string]any) error {
	return errors.New("connection refused")
}

func newVectorClient(t *testing.T) (*Client, *keywordEmbedder) {
	t.Helper()
	emb := &keywordEmbedder{vocab: []string{"salary", "termination", "notice", "data", "privacy"}}
	store := NewVectorStore(emb, NewLocalIndex(), 0.02, discardLogger())
	return NewClient(store, discardLogger()), emb
}

func TestQuery_ReturnsMostSimilarFirst(t *testing.T) {
	ctx := context.Background()
	c, _ := newVectorClient(t)

	require.NoError(t, c.Append(ctx, CollectionLaw, "ea-35", "Termination requires written notice", nil))
	require.NoError(t, c.Append(ctx, CollectionLaw, "dpa-25", "Data privacy principles", nil))
	require.NoError(t, c.Append(ctx, CollectionLaw, "ea-17", "Salary paid monthly", map[string]any{"section_no": "17"}))

	frags := c.Query(ctx, CollectionLaw, "notice of termination", 2)
	require.Len(t, frags, 2)
	assert.Equal(t, "ea-35", frags[0].ID)
	assert.InDelta(t, 0, frags[0].Score, 1e-9)
	assert.LessOrEqual(t, frags[0].Score, frags[1].Score)
	assert.Equal(t, CollectionLaw, frags[0].Collection)
}

func TestQuery_BackendFailureYieldsEmpty(t *testing.T) {
	c := NewClient(failingStore{}, discardLogger())
	assert.Empty(t, c.Query(context.Background(), CollectionLaw, "anything", 4))
	assert.Error(t, c.Append(context.Background(), CollectionLaw, "id", "text", nil))
}

func TestQuery_NilClientIsEmpty(t *testing.T) {
	var c *Client
	assert.Empty(t, c.Query(context.Background(), CollectionLaw, "anything", 4))
	assert.NoError(t, c.Append(context.Background(), CollectionLaw, "id", "text", nil))
	assert.False(t, c.Enabled())
}

func TestQuery_EmbedFailureYieldsEmpty(t *testing.T) {
	emb := &keywordEmbedder{vocab: []string{"x"}, err: errors.New("quota exceeded")}
	c := NewClient(NewVectorStore(emb, NewLocalIndex(), 0, discardLogger()), discardLogger())
	assert.Empty(t, c.Query(context.Background(), CollectionLaw, "x", 4))
}

func TestQueryAll_MergesAcrossCollections(t *testing.T) {
	ctx := context.Background()
	c, _ := newVectorClient(t)

	require.NoError(t, c.Append(ctx, CollectionLaw, "law-1", "Data privacy obligations", nil))
	require.NoError(t, c.Append(ctx, CollectionFeedback, "fb-1", "Salary clause advice was useful", nil))
	require.NoError(t, c.Append(ctx, CollectionFeedback, "fb-2", "Termination notice clause", nil))

	frags := c.QueryAll(ctx, []string{CollectionLaw, CollectionFeedback}, "termination notice", 2)
	require.Len(t, frags, 2)
	assert.Equal(t, "fb-2", frags[0].ID)
}

func TestQueryAll_EmbedsQueryOnce(t *testing.T) {
	ctx := context.Background()
	c, emb := newVectorClient(t)

	require.NoError(t, c.Append(ctx, CollectionLaw, "law-1", "Termination requires notice", nil))
	require.NoError(t, c.Append(ctx, CollectionNegotiations, "neg-1", "Salary negotiation", nil))
	require.NoError(t, c.Append(ctx, CollectionFeedback, "fb-1", "Data privacy feedback", nil))
	emb.calls = 0

	cols := []string{CollectionLaw, CollectionNegotiations, CollectionFeedback, CollectionClauses}
	frags := c.QueryAll(ctx, cols, "termination notice", 3)
	require.Len(t, frags, 3)
	assert.Equal(t, "law-1", frags[0].ID)
	assert.Equal(t, 1, emb.calls)
}

// flakyIndex fails lookups in one collection.
type flakyIndex struct {
	*LocalIndex
	broken string
}

func (f flakyIndex) Nearest(ctx context.Context, collection string, embedding []float32, k int) ([]Fragment, error) {
	if collection == f.broken {
		return nil, errors.New("relation does not exist")
	}
	return f.LocalIndex.Nearest(ctx, collection, embedding, k)
}

func TestQueryAll_SkipsFailingCollection(t *testing.T) {
	ctx := context.Background()
	emb := &keywordEmbedder{vocab: []string{"salary", "termination", "notice"}}
	c := NewClient(NewVectorStore(emb, flakyIndex{LocalIndex: NewLocalIndex(), broken: CollectionLaw}, 0, discardLogger()), discardLogger())

	require.NoError(t, c.Append(ctx, CollectionFeedback, "fb-1", "Termination notice clause", nil))

	frags := c.QueryAll(ctx, []string{CollectionLaw, CollectionFeedback}, "termination notice", 4)
	require.Len(t, frags, 1)
	assert.Equal(t, "fb-1", frags[0].ID)
}

func TestAppend_SkipsNearDuplicates(t *testing.T) {
	ctx := context.Background()
	c, _ := newVectorClient(t)

	require.NoError(t, c.Append(ctx, CollectionFeedback, "a", "Termination notice was too short", nil))
	require.NoError(t, c.Append(ctx, CollectionFeedback, "b", "termination NOTICE too short!", nil))

	frags := c.Query(ctx, CollectionFeedback, "termination notice", 10)
	require.Len(t, frags, 1)
	assert.Equal(t, "a", frags[0].ID)
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, CosineDistance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 2.0, CosineDistance([]float32{1}, []float32{1, 0}))
	assert.Equal(t, 2.0, CosineDistance([]float32{0, 0}, []float32{1, 0}))
}
