package feedback

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidFeedback is returned for submissions that fail validation.
var ErrInvalidFeedback = errors.New("invalid feedback")

// Sources of feedback.
const (
	SourceAPI   = "api"
	SourceCLI   = "cli"
	SourceSlack = "slack"
)

// Entry is one stored piece of user feedback.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	Rating     int       `json:"rating"`
	Comments   string    `json:"comments"`
	Sentiment  string    `json:"sentiment"`
	Source     string    `json:"source"`
	AnalysisID string    `json:"analysis_id,omitempty"`
	CreatedAt  time.Time `json:"timestamp"`
}

// Submission is user input before validation and enrichment.
type Submission struct {
	Username   string
	Rating     int
	Comments   string
	AnalysisID string
	Source     string
}

// Stats aggregates all stored feedback.
type Stats struct {
	Count         int     `json:"count"`
	AverageRating float64 `json:"average_rating"`
}

// Repository persists feedback entries. Implemented by the Postgres store
// and the SQLite localstore.
type Repository interface {
	InsertFeedback(ctx context.Context, e Entry) error
	ListFeedback(ctx context.Context) ([]Entry, error)
	ClearFeedback(ctx context.Context) error
}

// Publisher emits feedback events.
type Publisher interface {
	Publish(subject string, data any) error
}
