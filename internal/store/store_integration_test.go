//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/clerk/internal/feedback"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestIntegration_WriteAndGetAnalysis(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	row := AnalysisRow{
		ID:        uuid.New(),
		Document:  "1. The Tenant shall pay rent monthly in advance on the first day.",
		Unparsed:  1,
		Partial:   false,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		Clauses: []ClauseRow{
			{Index: 2, Text: "second clause", Parsed: false, Reason: "timeout", Outcome: []byte(`{"error":"timeout"}`)},
			{Index: 1, Text: "first clause", Parsed: true, Outcome: []byte(`{"issue":"rent timing"}`)},
		},
	}
	if err := s.WriteAnalysis(ctx, row); err != nil {
		t.Fatalf("WriteAnalysis failed: %v", err)
	}

	got, err := s.GetAnalysis(ctx, row.ID)
	if err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}
	if len(got.Clauses) != 2 {
		t.Fatalf("expected 2 clauses, got %d", len(got.Clauses))
	}
	if got.Clauses[0].Index != 1 || got.Clauses[1].Index != 2 {
		t.Errorf("clauses not in index order: %+v", got.Clauses)
	}
	if got.Clauses[1].Reason != "timeout" {
		t.Errorf("reason = %q, want timeout", got.Clauses[1].Reason)
	}
	if got.Unparsed != 1 {
		t.Errorf("unparsed = %d, want 1", got.Unparsed)
	}
}

func TestIntegration_MemoryNearest(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	collection := "integration-" + uuid.New().String()[:8]

	if err := s.Insert(ctx, collection, "near", "rent", map[string]any{"source": "test"}, []float32{1, 0, 0}); err != nil {
		t.Fatalf("Insert near: %v", err)
	}
	if err := s.Insert(ctx, collection, "far", "termination", nil, []float32{0, 1, 0}); err != nil {
		t.Fatalf("Insert far: %v", err)
	}
	// Upsert must not create a second row.
	if err := s.Insert(ctx, collection, "near", "rent updated", nil, []float32{1, 0.01, 0}); err != nil {
		t.Fatalf("Insert upsert: %v", err)
	}

	frags, err := s.Nearest(ctx, collection, []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if len(frags) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(frags))
	}
	if frags[0].ID != "near" || frags[0].Text != "rent updated" {
		t.Errorf("closest = %+v, want near/rent updated", frags[0])
	}
	if frags[0].Score > frags[1].Score {
		t.Errorf("scores not ascending: %v then %v", frags[0].Score, frags[1].Score)
	}

	n, err := s.CountFragments(ctx, collection)
	if err != nil {
		t.Fatalf("CountFragments: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestIntegration_FeedbackRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	e := feedback.Entry{
		ID:        uuid.New(),
		Username:  "integration",
		Rating:    4,
		Comments:  "useful revision",
		Sentiment: "positive",
		Source:    "api",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.InsertFeedback(ctx, e); err != nil {
		t.Fatalf("InsertFeedback: %v", err)
	}

	entries, err := s.ListFeedback(ctx)
	if err != nil {
		t.Fatalf("ListFeedback: %v", err)
	}
	found := false
	for _, got := range entries {
		if got.ID == e.ID {
			found = true
			if got.Rating != 4 || got.Sentiment != "positive" {
				t.Errorf("unexpected entry: %+v", got)
			}
		}
	}
	if !found {
		t.Error("inserted feedback not listed")
	}
}
